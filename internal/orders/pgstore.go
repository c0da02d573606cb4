package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockpit/go-inventory-api/internal/catalog"
)

// PgStore implements Store on a pgx pool. Rollback on every non-nil return is
// guaranteed by the deferred tx.Rollback; a committed tx makes it a no-op.
type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) ProductsForUpdate(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, sku, price, stock_quantity, low_stock_threshold
		FROM products WHERE id = ANY($1)
		ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]*catalog.Product, len(ids))
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Price, &p.StockQuantity, &p.LowStockThreshold); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, type, status, date, total_amount, notes,
			customer_name, customer_email, customer_phone, shipping_address,
			payment_status, payment_method, created_by)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),$11,NULLIF($12,''),NULLIF($13,0))
		RETURNING id, created_at, updated_at`,
		o.OrderNumber, o.Type, o.Status, o.Date, o.TotalAmount, o.Notes,
		o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.ShippingAddress,
		o.PaymentStatus, o.PaymentMethod, o.CreatedBy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) InsertItem(ctx context.Context, it *OrderItem) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price, subtotal)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity, it.Price, it.Subtotal,
	).Scan(&it.ID)
}

func (t *pgTx) UpdateProductStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.Exec(ctx, `UPDATE products SET stock_quantity=$2, updated_at=now() WHERE id=$1`,
		productID, quantity)
	return err
}

func (t *pgTx) SumItems(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(subtotal), 0) FROM order_items WHERE order_id=$1`, orderID).Scan(&total)
	return total, err
}

func (t *pgTx) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET total_amount=$2, updated_at=now() WHERE id=$1`,
		orderID, total)
	return err
}
