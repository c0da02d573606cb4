package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stockpit/go-inventory-api/internal/auth"
	"github.com/stockpit/go-inventory-api/internal/catalog"
	"github.com/stockpit/go-inventory-api/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses:
// validation 400, missing entity 404, stock conflict 409, auth 401.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *orders.ValidationError
	var nf *orders.NotFoundError
	var is *orders.InsufficientStockError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Msg)
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":      nf.Error(),
			"product_id": nf.ProductID,
		})
	case errors.As(err, &is):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      is.Error(),
			"product_id": is.ProductID,
			"requested":  is.Requested,
			"available":  is.Available,
		})
	case errors.Is(err, catalog.ErrNegativeStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrBadTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrBadCredentials), errors.Is(err, auth.ErrBadToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
