package orders

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpit/go-inventory-api/internal/catalog"
)

type ItemInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CreateInput struct {
	Type            OrderType   `json:"type"`
	Items           []ItemInput `json:"items"`
	Notes           string      `json:"notes"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethod   string      `json:"payment_method"`
	CreatedBy       int64       `json:"-"`
}

// Fulfiller turns an order request into a persisted, stock-consistent
// Order + OrderItem set. The whole creation runs in one transaction: either
// every item and stock adjustment commits, or none of it does.
type Fulfiller struct {
	Store Store
	Now   func() time.Time // nil means time.Now
}

func (f *Fulfiller) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now().UTC()
}

func (f *Fulfiller) validate(in CreateInput) error {
	if !ValidType(in.Type) {
		return validationf("invalid order type: %q", in.Type)
	}
	if len(in.Items) == 0 {
		return validationf("order must have at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return validationf("invalid product id: %d", it.ProductID)
		}
		if it.Quantity < 1 {
			return validationf("quantity must be at least 1 for product %d", it.ProductID)
		}
		if it.Price.IsNegative() {
			return validationf("price must not be negative for product %d", it.ProductID)
		}
	}
	return nil
}

// Create runs the four fulfillment steps: validate product references, insert
// the header, materialize items while moving stock through the ledger, then
// reconcile the total against what was actually persisted.
func (f *Fulfiller) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := f.validate(in); err != nil {
		return Order{}, err
	}

	dir := catalog.DirSubtract
	if in.Type == TypePurchase {
		dir = catalog.DirAdd
	}

	// requested total, before items exist; reconciled in the finalize step
	requested := decimal.Zero
	for _, it := range in.Items {
		requested = requested.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	now := f.now()
	order := Order{
		OrderNumber:     NewOrderNumber(in.Type, now),
		Type:            in.Type,
		Status:          StatusPending,
		Date:            now,
		TotalAmount:     requested,
		Notes:           in.Notes,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   in.PaymentMethod,
		CreatedBy:       in.CreatedBy,
	}

	err := f.Store.InTx(ctx, func(tx Tx) error {
		// lock referenced products up front, ascending ids
		ids := make([]int64, 0, len(in.Items))
		seen := map[int64]bool{}
		for _, it := range in.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		products, err := tx.ProductsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if products[id] == nil {
				return &NotFoundError{ProductID: id}
			}
		}

		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}

		// materialize items in submission order, moving stock as we go
		for _, it := range in.Items {
			item := OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
				Subtotal:  it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
			}
			if err := tx.InsertItem(ctx, &item); err != nil {
				return err
			}

			p := products[it.ProductID]
			if err := p.Adjust(it.Quantity, dir); err != nil {
				if errors.Is(err, catalog.ErrNegativeStock) {
					return &InsufficientStockError{
						ProductID: it.ProductID,
						Requested: it.Quantity,
						Available: p.StockQuantity,
					}
				}
				return err
			}
			if err := tx.UpdateProductStock(ctx, it.ProductID, p.StockQuantity); err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		// finalize: reconcile the header total against persisted items
		total, err := tx.SumItems(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateOrderTotal(ctx, order.ID, total); err != nil {
			return err
		}
		order.TotalAmount = total
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// RecomputeTotal re-derives the header total from the persisted items and
// writes it back, in one transaction. Repeating it over unchanged items
// always yields the same total, so it is safe to run as a repair step.
func (f *Fulfiller) RecomputeTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := f.Store.InTx(ctx, func(tx Tx) error {
		t, err := tx.SumItems(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.UpdateOrderTotal(ctx, orderID, t); err != nil {
			return err
		}
		total = t
		return nil
	})
	return total, err
}
