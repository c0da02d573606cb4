package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stockpit/go-inventory-api/internal/catalog"
)

// Store hands the fulfillment workflow a transactional scope: fn runs against
// one transaction which commits only when fn returns nil and rolls back on
// every other exit path.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of writes/reads one order creation needs. All calls happen
// inside the same transaction.
type Tx interface {
	// ProductsForUpdate loads and write-locks the given products, in
	// ascending id order so concurrent creations cannot deadlock. Missing
	// ids are simply absent from the result.
	ProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error)

	// InsertOrder persists the header and fills ID and timestamps.
	InsertOrder(ctx context.Context, o *Order) error

	// InsertItem persists a line item and fills its ID.
	InsertItem(ctx context.Context, it *OrderItem) error

	// UpdateProductStock writes an already-adjusted quantity back.
	UpdateProductStock(ctx context.Context, productID int64, quantity int) error

	// SumItems returns the sum of persisted item subtotals for the order.
	SumItems(ctx context.Context, orderID int64) (decimal.Decimal, error)

	// UpdateOrderTotal writes the reconciled total into the header.
	UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
}
