package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo covers the read side and externally-driven mutations of orders.
// Creation goes through the Fulfiller, never through Repo.
type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, order_number, type, status, date, total_amount,
	COALESCE(notes,''), COALESCE(customer_name,''), COALESCE(customer_email,''),
	COALESCE(customer_phone,''), COALESCE(shipping_address,''),
	payment_status, COALESCE(payment_method,''), COALESCE(created_by,0), created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Type, &o.Status, &o.Date, &o.TotalAmount,
		&o.Notes, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone, &o.ShippingAddress,
		&o.PaymentStatus, &o.PaymentMethod, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return o, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return o, err
	}
	items, err := r.itemsFor(ctx, []int64{id})
	if err != nil {
		return o, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.name, p.sku, i.quantity, i.price, i.subtotal
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU,
			&it.Quantity, &it.Price, &it.Subtotal); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

type ListFilter struct {
	Type      OrderType
	Status    Status
	StartDate time.Time
	EndDate   time.Time
	Search    string // matches order number, customer name, customer email
	Limit     int
	Offset    int
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Type != "" {
		where = append(where, "type = "+arg(string(f.Type)))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if !f.StartDate.IsZero() {
		where = append(where, "date >= "+arg(f.StartDate))
	}
	if !f.EndDate.IsZero() {
		where = append(where, "date <= "+arg(f.EndDate))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(order_number ILIKE %s OR customer_name ILIKE %s OR customer_email ILIKE %s)", p, p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 10
	}
	q := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY date DESC LIMIT %s OFFSET %s`,
		orderCols, cond, arg(f.Limit), arg(f.Offset))
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if len(ids) > 0 {
		items, err := r.itemsFor(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range out {
			out[i].Items = items[out[i].ID]
		}
	}
	return out, total, nil
}

// UpdateStatus applies an externally-driven status transition. Illegal
// transitions are rejected. The total is recomputed in the same transaction
// so a transition can never leave it out of sync with the items.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, to Status) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback(ctx)

	var from Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(from, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrBadTransition, from, to)
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status=$2,
			total_amount=(SELECT COALESCE(SUM(subtotal),0) FROM order_items WHERE order_id=$1),
			updated_at=now()
		WHERE id=$1 RETURNING `+orderCols, id, to))
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Delete removes the order; items go with it via ON DELETE CASCADE.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
