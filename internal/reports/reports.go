// Package reports holds the read-only aggregation projections behind the
// dashboard: sales summaries, inventory value by category, low stock.
package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stockpit/go-inventory-api/internal/catalog"
	"github.com/stockpit/go-inventory-api/internal/orders"
)

type Repo struct{ DB *pgxpool.Pool }

type SalesSummary struct {
	TotalSales  decimal.Decimal `json:"total_sales"`
	TotalItems  int             `json:"total_items"`
	TotalOrders int             `json:"total_orders"`
}

type SalesReport struct {
	Sales   []orders.Order `json:"sales"`
	Summary SalesSummary   `json:"summary"`
}

// Sales lists completed sale orders in the window, newest first, with a
// summary computed over the same set.
func (r *Repo) Sales(ctx context.Context, start, end time.Time) (SalesReport, error) {
	ordersRepo := &orders.Repo{DB: r.DB}
	list, _, err := ordersRepo.List(ctx, orders.ListFilter{
		Type:      orders.TypeSale,
		Status:    orders.StatusCompleted,
		StartDate: start,
		EndDate:   end,
		Limit:     1000,
	})
	if err != nil {
		return SalesReport{}, err
	}

	rep := SalesReport{Sales: list, Summary: SalesSummary{TotalSales: decimal.Zero}}
	for _, o := range list {
		rep.Summary.TotalSales = rep.Summary.TotalSales.Add(o.TotalAmount)
		rep.Summary.TotalOrders++
		for _, it := range o.Items {
			rep.Summary.TotalItems += it.Quantity
		}
	}
	return rep, nil
}

type CategoryValue struct {
	Category      string          `json:"category"`
	TotalProducts int             `json:"total_products"`
	TotalStock    int             `json:"total_stock"`
	TotalValue    decimal.Decimal `json:"total_value"` // stock x cost
}

type InventoryValueReport struct {
	Categories []CategoryValue `json:"categories"`
	TotalValue decimal.Decimal `json:"total_value"`
}

func (r *Repo) InventoryValue(ctx context.Context) (InventoryValueReport, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT category,
			COUNT(*),
			COALESCE(SUM(stock_quantity), 0),
			COALESCE(SUM(stock_quantity * cost), 0)
		FROM products
		GROUP BY category
		ORDER BY category`)
	if err != nil {
		return InventoryValueReport{}, err
	}
	defer rows.Close()

	rep := InventoryValueReport{TotalValue: decimal.Zero}
	for rows.Next() {
		var c CategoryValue
		if err := rows.Scan(&c.Category, &c.TotalProducts, &c.TotalStock, &c.TotalValue); err != nil {
			return InventoryValueReport{}, err
		}
		rep.Categories = append(rep.Categories, c)
		rep.TotalValue = rep.TotalValue.Add(c.TotalValue)
	}
	return rep, rows.Err()
}

type ProductPerformance struct {
	ProductID    int64           `json:"product_id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// ProductPerformance ranks products by units sold across completed sales in
// the window.
func (r *Repo) ProductPerformance(ctx context.Context, start, end time.Time) ([]ProductPerformance, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.sku, p.category,
			COALESCE(SUM(i.quantity), 0),
			COALESCE(SUM(i.subtotal), 0)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		JOIN products p ON p.id = i.product_id
		WHERE o.type = 'sale' AND o.status = 'completed' AND o.date BETWEEN $1 AND $2
		GROUP BY p.id, p.name, p.sku, p.category
		ORDER BY SUM(i.quantity) DESC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductPerformance
	for rows.Next() {
		var p ProductPerformance
		if err := rows.Scan(&p.ProductID, &p.Name, &p.SKU, &p.Category, &p.QuantitySold, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type TrendPoint struct {
	Date       time.Time       `json:"date"`
	OrderCount int             `json:"order_count"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

// SalesTrend buckets completed sales by day across the window.
func (r *Repo) SalesTrend(ctx context.Context, start, end time.Time) ([]TrendPoint, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT date_trunc('day', date), COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE type = 'sale' AND status = 'completed' AND date BETWEEN $1 AND $2
		GROUP BY 1
		ORDER BY 1`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.OrderCount, &p.TotalSales); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type LowStockReport struct {
	Products      []catalog.Product `json:"products"`
	TotalLowStock int               `json:"total_low_stock"`
}

func (r *Repo) LowStock(ctx context.Context) (LowStockReport, error) {
	repo := &catalog.Repo{DB: r.DB}
	products, err := repo.ListLowStock(ctx)
	if err != nil {
		return LowStockReport{}, err
	}
	return LowStockReport{Products: products, TotalLowStock: len(products)}, nil
}
