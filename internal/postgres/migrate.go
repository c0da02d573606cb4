package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		email               TEXT NOT NULL UNIQUE,
		password_hash       TEXT NOT NULL,
		role                TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('admin','manager','staff')),
		active              BOOLEAN NOT NULL DEFAULT TRUE,
		password_changed_at TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		description         TEXT,
		sku                 TEXT NOT NULL UNIQUE,
		category            TEXT NOT NULL,
		price               NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		cost                NUMERIC(10,2) NOT NULL CHECK (cost >= 0),
		stock_quantity      INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		low_stock_threshold INTEGER NOT NULL DEFAULT 10 CHECK (low_stock_threshold >= 0),
		unit                TEXT NOT NULL DEFAULT 'piece',
		status              TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive','discontinued')),
		image_url           TEXT,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category)`,
	`CREATE INDEX IF NOT EXISTS idx_products_status ON products (status)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               BIGSERIAL PRIMARY KEY,
		order_number     TEXT NOT NULL UNIQUE,
		type             TEXT NOT NULL CHECK (type IN ('sale','purchase')),
		status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','processing','completed','cancelled')),
		date             TIMESTAMPTZ NOT NULL DEFAULT now(),
		total_amount     NUMERIC(10,2) NOT NULL CHECK (total_amount >= 0),
		notes            TEXT,
		customer_name    TEXT,
		customer_email   TEXT,
		customer_phone   TEXT,
		shipping_address TEXT,
		payment_status   TEXT NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending','paid','failed')),
		payment_method   TEXT,
		created_by       BIGINT REFERENCES users(id),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_type ON orders (type)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_date ON orders (date)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id         BIGSERIAL PRIMARY KEY,
		order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INTEGER NOT NULL CHECK (quantity >= 1),
		price      NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		subtotal   NUMERIC(10,2) NOT NULL CHECK (subtotal >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
	`CREATE TABLE IF NOT EXISTS stock_alerts (
		id             BIGSERIAL PRIMARY KEY,
		product_id     BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		stock_quantity INTEGER NOT NULL,
		threshold      INTEGER NOT NULL,
		resolved       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_alerts_open ON stock_alerts (product_id) WHERE NOT resolved`,
}

// Migrate applies the schema. Statements are idempotent so re-running is safe.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type seedProduct struct {
	name, description, sku, category, unit string
	price, cost                            string
	stock, threshold                       int
}

var seedProducts = []seedProduct{
	{"Laptop", "High-performance laptop for professionals", "TECH-001", "Electronics", "piece", "1299.99", "900.00", 50, 10},
	{"Smartphone", "Latest model smartphone", "TECH-002", "Electronics", "piece", "699.99", "400.00", 100, 20},
	{"Office Desk", "Modern office desk", "FURN-001", "Furniture", "piece", "299.99", "150.00", 30, 5},
}

// Seed inserts the default admin user and a handful of demo products.
// Existing rows are left alone (ON CONFLICT DO NOTHING).
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), 12)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ('Admin User', 'admin@example.com', $1, 'admin')
		ON CONFLICT (email) DO NOTHING`, string(hash)); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	for _, p := range seedProducts {
		if _, err := db.Exec(ctx, `
			INSERT INTO products (name, description, sku, category, price, cost, stock_quantity, low_stock_threshold, unit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (sku) DO NOTHING`,
			p.name, p.description, p.sku, p.category, p.price, p.cost, p.stock, p.threshold, p.unit,
		); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
	}
	return nil
}
