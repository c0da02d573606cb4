package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/stockpit/go-inventory-api/internal/auth"
	"github.com/stockpit/go-inventory-api/internal/redisx"
	"github.com/stockpit/go-inventory-api/internal/reports"
)

type ReportsHandler struct {
	Repo  *reports.Repo
	Auth  *auth.Service
	Redis *redis.Client
}

func (h *ReportsHandler) Register(r chi.Router) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(Protect(h.Auth))
		r.With(RequireRole(auth.RoleAdmin, auth.RoleManager)).Get("/sales", h.sales)
		r.With(RequireRole(auth.RoleAdmin, auth.RoleManager)).Get("/inventory-value", h.inventoryValue)
		r.With(RequireRole(auth.RoleAdmin, auth.RoleManager)).Get("/product-performance", h.productPerformance)
		r.With(RequireRole(auth.RoleAdmin, auth.RoleManager)).Get("/sales-trend", h.salesTrend)
		r.Get("/low-stock", h.lowStock)
	})
}

// dateWindow parses the startDate/endDate query params the windowed reports
// share. Both are required RFC3339 timestamps.
func dateWindow(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	q := r.URL.Query()
	startS, endS := q.Get("startDate"), q.Get("endDate")
	if startS == "" || endS == "" {
		writeError(w, http.StatusBadRequest, "startDate and endDate are required")
		return start, end, false
	}
	start, err := time.Parse(time.RFC3339, startS)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be RFC3339")
		return start, end, false
	}
	end, err = time.Parse(time.RFC3339, endS)
	if err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be RFC3339")
		return start, end, false
	}
	return start, end, true
}

func (h *ReportsHandler) sales(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateWindow(w, r)
	if !ok {
		return
	}

	rep, err := h.Repo.Sales(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportsHandler) productPerformance(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateWindow(w, r)
	if !ok {
		return
	}
	perf, err := h.Repo.ProductPerformance(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": perf})
}

func (h *ReportsHandler) salesTrend(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateWindow(w, r)
	if !ok {
		return
	}
	trend, err := h.Repo.SalesTrend(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trend": trend})
}

func (h *ReportsHandler) inventoryValue(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Repo.InventoryValue(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *ReportsHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	// short-lived cache; the dashboard polls this
	if s, err := h.Redis.Get(r.Context(), redisx.KeyLowStockReport).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	rep, err := h.Repo.LowStock(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body, _ := json.Marshal(rep)
	_ = h.Redis.Set(r.Context(), redisx.KeyLowStockReport, body, redisx.TTLReportCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
