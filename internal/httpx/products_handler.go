package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockpit/go-inventory-api/internal/auth"
	"github.com/stockpit/go-inventory-api/internal/catalog"
)

type ProductsHandler struct {
	Repo *catalog.Repo
	Auth *auth.Service
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(Protect(h.Auth))
		r.Get("/", h.list)
		r.Get("/status/low-stock", h.lowStock)
		r.Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleAdmin, auth.RoleManager))
			r.Post("/", h.create)
			r.Patch("/{id}", h.update)
			r.Patch("/{id}/stock", h.adjustStock)
		})
		r.With(RequireRole(auth.RoleAdmin)).Delete("/{id}", h.delete)
	})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return limit, (page - 1) * limit
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	f := catalog.ListFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   catalog.Status(q.Get("status")),
		LowStock: q.Get("lowStock") == "true",
		Sort:     q.Get("sort"),
		Desc:     q.Get("order") == "DESC" || q.Get("order") == "desc",
		Limit:    limit,
		Offset:   offset,
	}
	if f.Status != "" && !catalog.ValidStatus(f.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	products, total, err := h.Repo.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    total,
		"pages":    (total + limit - 1) / limit,
	})
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

type productReq struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	SKU               string           `json:"sku"`
	Category          string           `json:"category"`
	Price             *decimal.Decimal `json:"price"`
	Cost              *decimal.Decimal `json:"cost"`
	StockQuantity     *int             `json:"stock_quantity"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
	Unit              string           `json:"unit"`
	Status            catalog.Status   `json:"status"`
	ImageURL          string           `json:"image_url"`
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" || req.SKU == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "name, sku and category are required")
		return
	}
	if req.Price == nil || req.Price.IsNegative() || req.Cost == nil || req.Cost.IsNegative() {
		writeError(w, http.StatusBadRequest, "price and cost must be non-negative numbers")
		return
	}
	in := catalog.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Category:    req.Category,
		Price:       *req.Price,
		Cost:        *req.Cost,
		Unit:        req.Unit,
		Status:      req.Status,
		ImageURL:    req.ImageURL,
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			writeError(w, http.StatusBadRequest, "stock quantity must not be negative")
			return
		}
		in.StockQuantity = *req.StockQuantity
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			writeError(w, http.StatusBadRequest, "low stock threshold must not be negative")
			return
		}
		in.LowStockThreshold = *req.LowStockThreshold
	} else {
		in.LowStockThreshold = 10
	}
	if in.Status != "" && !catalog.ValidStatus(in.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	p, err := h.Repo.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": p})
}

type productPatch struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	Category          *string          `json:"category"`
	Price             *decimal.Decimal `json:"price"`
	Cost              *decimal.Decimal `json:"cost"`
	LowStockThreshold *int             `json:"low_stock_threshold"`
	Unit              *string          `json:"unit"`
	Status            *catalog.Status  `json:"status"`
	ImageURL          *string          `json:"image_url"`
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req productPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		writeError(w, http.StatusBadRequest, "cost must not be negative")
		return
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold < 0 {
		writeError(w, http.StatusBadRequest, "low stock threshold must not be negative")
		return
	}
	if req.Status != nil && !catalog.ValidStatus(*req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	p, err := h.Repo.Update(r.Context(), id, catalog.UpdateInput{
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Price:             req.Price,
		Cost:              req.Cost,
		LowStockThreshold: req.LowStockThreshold,
		Unit:              req.Unit,
		Status:            req.Status,
		ImageURL:          req.ImageURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type adjustStockReq struct {
	Quantity int               `json:"quantity"`
	Type     catalog.Direction `json:"type"`
}

// adjustStock is the manual stock-correction endpoint; it routes through the
// same ledger mutator as order fulfillment.
func (h *ProductsHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req adjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity <= 0 || !catalog.ValidDirection(req.Type) {
		writeError(w, http.StatusBadRequest, "provide a positive quantity and type add or subtract")
		return
	}

	p, err := h.Repo.AdjustStock(r.Context(), id, req.Quantity, req.Type)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *ProductsHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.Repo.ListLowStock(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}
