package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/stockpit/go-inventory-api/internal/auth"
	kafkax "github.com/stockpit/go-inventory-api/internal/kafka"
	"github.com/stockpit/go-inventory-api/internal/orders"
	"github.com/stockpit/go-inventory-api/internal/redisx"
)

type OrdersHandler struct {
	Repo      *orders.Repo
	Fulfiller *orders.Fulfiller
	Auth      *auth.Service
	Producer  *kafkax.Producer
	Redis     *redis.Client
	Service   string
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(Protect(h.Auth))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/", h.create)
		r.With(RequireRole(auth.RoleAdmin, auth.RoleManager)).Patch("/{id}/status", h.updateStatus)
		r.With(RequireRole(auth.RoleAdmin, auth.RoleManager)).Post("/{id}/recompute", h.recompute)
		r.With(RequireRole(auth.RoleAdmin)).Delete("/{id}", h.delete)
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	f := orders.ListFilter{
		Type:   orders.OrderType(q.Get("type")),
		Status: orders.Status(q.Get("status")),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	}
	if f.Type != "" && !orders.ValidType(f.Type) {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}
	if f.Status != "" && !orders.ValidStatus(f.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if s := q.Get("startDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "startDate must be RFC3339")
			return
		}
		f.StartDate = t
	}
	if s := q.Get("endDate"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "endDate must be RFC3339")
			return
		}
		f.EndDate = t
	}

	list, total, err := h.Repo.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": list,
		"total":  total,
		"pages":  (total + limit - 1) / limit,
	})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	// cache first
	key := fmt.Sprintf(redisx.KeyOrder, id)
	if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	o, err := h.Repo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]any{"order": o})
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLOrderCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p, ok := PrincipalFrom(r.Context()); ok {
		req.CreatedBy = p.UserID
	}

	o, err := h.Fulfiller.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.publishCreated(o, r.Header.Get("X-Request-Id"))
	body, _ := json.Marshal(map[string]any{"order": o})
	_ = h.Redis.Set(r.Context(), fmt.Sprintf(redisx.KeyOrder, o.ID), body, redisx.TTLOrderCache).Err()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) publishCreated(o orders.Order, trace string) {
	items := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: o.OrderNumber,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Type:        o.Type,
			Items:       items,
			TotalAmount: o.TotalAmount.String(),
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.OrderNumber), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !orders.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	o, err := h.Repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrder, id)).Err()
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

// recompute repairs a header total that drifted from its items, e.g. after a
// manual data fix.
func (h *OrdersHandler) recompute(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, err := h.Repo.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	total, err := h.Fulfiller.RecomputeTotal(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	_ = h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrder, id)).Err()
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "total_amount": total})
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	_ = h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrder, id)).Err()
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
