package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, COALESCE(description,''), sku, category, price, cost,
	stock_quantity, low_stock_threshold, unit, status, COALESCE(image_url,''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Category, &p.Price, &p.Cost,
		&p.StockQuantity, &p.LowStockThreshold, &p.Unit, &p.Status, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (r *Repo) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

type CreateInput struct {
	Name              string
	Description       string
	SKU               string
	Category          string
	Price             decimal.Decimal
	Cost              decimal.Decimal
	StockQuantity     int
	LowStockThreshold int
	Unit              string
	Status            Status
	ImageURL          string
}

func (r *Repo) Create(ctx context.Context, in CreateInput) (Product, error) {
	if in.Unit == "" {
		in.Unit = "piece"
	}
	if in.Status == "" {
		in.Status = StatusActive
	}
	return scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products (name, description, sku, category, price, cost,
			stock_quantity, low_stock_threshold, unit, status, image_url)
		VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11,''))
		RETURNING `+productCols,
		in.Name, in.Description, in.SKU, in.Category, in.Price, in.Cost,
		in.StockQuantity, in.LowStockThreshold, in.Unit, in.Status, in.ImageURL))
}

// UpdateInput carries a partial update; nil fields are left untouched.
// StockQuantity is deliberately absent: stock moves only through AdjustStock.
type UpdateInput struct {
	Name              *string
	Description       *string
	Category          *string
	Price             *decimal.Decimal
	Cost              *decimal.Decimal
	LowStockThreshold *int
	Unit              *string
	Status            *Status
	ImageURL          *string
}

func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (Product, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Category != nil {
		add("category", *in.Category)
	}
	if in.Price != nil {
		add("price", *in.Price)
	}
	if in.Cost != nil {
		add("cost", *in.Cost)
	}
	if in.LowStockThreshold != nil {
		add("low_stock_threshold", *in.LowStockThreshold)
	}
	if in.Unit != nil {
		add("unit", *in.Unit)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.ImageURL != nil {
		add("image_url", *in.ImageURL)
	}
	q := `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id=$1 RETURNING ` + productCols
	return scanProduct(r.DB.QueryRow(ctx, q, args...))
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type ListFilter struct {
	Search   string
	Category string
	Status   Status
	LowStock bool
	Sort     string // name, sku, category, price, stock_quantity, created_at
	Desc     bool
	Limit    int
	Offset   int
}

var sortable = map[string]bool{
	"name": true, "sku": true, "category": true,
	"price": true, "stock_quantity": true, "created_at": true,
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR sku ILIKE %s OR description ILIKE %s)", p, p, p))
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.LowStock {
		where = append(where, "stock_quantity <= low_stock_threshold")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sort := f.Sort
	if !sortable[sort] {
		sort = "name"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	q := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s LIMIT %s OFFSET %s`,
		productCols, cond, sort, dir, arg(f.Limit), arg(f.Offset))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// ListLowStock returns every product at or below its threshold, most
// depleted first.
func (r *Repo) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products
		WHERE stock_quantity <= low_stock_threshold
		ORDER BY stock_quantity ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AdjustStock is the persisted counterpart of Product.Adjust: it locks the
// row, applies the movement through the domain mutator and writes the result
// back, all in one transaction. Concurrent adjustments of the same product
// serialize on the row lock.
func (r *Repo) AdjustStock(ctx context.Context, id int64, quantity int, dir Direction) (Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Product{}, err
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Product{}, err
	}
	if err := p.Adjust(quantity, dir); err != nil {
		return Product{}, err
	}
	if err := tx.QueryRow(ctx, `UPDATE products SET stock_quantity=$2, updated_at=now()
		WHERE id=$1 RETURNING updated_at`, id, p.StockQuantity).Scan(&p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Product{}, err
	}
	return p, nil
}
