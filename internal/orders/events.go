package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventStockLow     = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order number
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderCreatedPayload struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Type        OrderType `json:"type"`
	Items       []ItemQty `json:"items"`
	TotalAmount string    `json:"total_amount"`
}

type StockLowPayload struct {
	ProductID     int64  `json:"product_id"`
	SKU           string `json:"sku"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
}
