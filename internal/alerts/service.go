// Package alerts consumes order events and records low-stock alerts for the
// products an order touched. Stock itself already moved inside the order
// transaction; this service only observes the result.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/stockpit/go-inventory-api/internal/catalog"
	kafkax "github.com/stockpit/go-inventory-api/internal/kafka"
	"github.com/stockpit/go-inventory-api/internal/orders"
	"github.com/stockpit/go-inventory-api/internal/redisx"
)

type Service struct {
	DB          *pgxpool.Pool
	Products    *catalog.Repo
	Redis       *redis.Client
	Producer    *kafkax.Producer // publishes inventory.stock.low
	ServiceName string
	Log         *slog.Logger
}

// HandleOrderCreated is the consumer handler for inventory.order.created.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil // ignore
	}

	// dedup by event id
	dkey := fmt.Sprintf(redisx.KeyDedup, "alerts", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	for _, it := range p.Items {
		product, err := s.Products.Get(ctx, it.ProductID)
		if err != nil {
			return err
		}
		if !product.IsLowStock() {
			continue
		}
		if err := s.recordAlert(ctx, product); err != nil {
			return err
		}
		s.publishStockLow(product, env.TraceID)
		s.Log.Warn("low stock",
			"product_id", product.ID, "sku", product.SKU,
			"stock", product.StockQuantity, "threshold", product.LowStockThreshold)
	}
	return nil
}

// recordAlert keeps at most one open alert per product; re-inserts while an
// alert is still open are no-ops via the partial unique index.
func (s *Service) recordAlert(ctx context.Context, p catalog.Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO stock_alerts (product_id, stock_quantity, threshold)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) WHERE NOT resolved DO NOTHING`,
		p.ID, p.StockQuantity, p.LowStockThreshold)
	return err
}

func (s *Service) publishStockLow(p catalog.Product, trace string) {
	ev := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    orders.EventStockLow,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     s.ServiceName,
		TraceID:      trace,
		Payload: kafkax.MustMarshal(orders.StockLowPayload{
			ProductID:     p.ID,
			SKU:           p.SKU,
			StockQuantity: p.StockQuantity,
			Threshold:     p.LowStockThreshold,
		}),
	}
	s.Producer.Publish([]byte(p.SKU), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
