// Package catalog owns products and their stock ledger. Stock quantity is
// mutated only through Product.Adjust (and the repo methods that call it),
// which is where the non-negative invariant is enforced.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusDiscontinued Status = "discontinued"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}

// Direction of a stock adjustment.
type Direction string

const (
	DirAdd      Direction = "add"
	DirSubtract Direction = "subtract"
)

func ValidDirection(d Direction) bool { return d == DirAdd || d == DirSubtract }

// ErrNegativeStock is returned by Adjust when the adjustment would drive the
// quantity below zero. The product is left unmodified.
var ErrNegativeStock = errors.New("stock quantity cannot be negative")

type Product struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	SKU               string          `json:"sku"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	Cost              decimal.Decimal `json:"cost"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	Unit              string          `json:"unit"`
	Status            Status          `json:"status"`
	ImageURL          string          `json:"image_url,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsLowStock reports whether the product is at or below its threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}

// Adjust applies a stock movement in memory. It is the only sanctioned
// mutator of StockQuantity; every persistence path goes through it.
func (p *Product) Adjust(quantity int, dir Direction) error {
	if quantity < 0 {
		return fmt.Errorf("adjust quantity must not be negative: %d", quantity)
	}
	next := p.StockQuantity
	if dir == DirAdd {
		next += quantity
	} else {
		next -= quantity
	}
	if next < 0 {
		return ErrNegativeStock
	}
	p.StockQuantity = next
	return nil
}
