// Package postgres provides a PostgreSQL-backed catalog [catalog.Store].
//
// Dishes live in a single dishes table. Prices are NUMERIC and travel as text
// between the database and [decimal.Decimal] so no precision is lost.
//
// Usage:
//
//	src, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer src.Close()
//
//	dishes, _ := src.List(ctx)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlDishes = `
CREATE TABLE IF NOT EXISTS dishes (
    id          TEXT         PRIMARY KEY,
    seq         BIGSERIAL    NOT NULL,
    name        TEXT         NOT NULL,
    price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
    category    TEXT         NOT NULL DEFAULT '',
    available   BOOLEAN      NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dishes_name_lower
    ON dishes (lower(name));

CREATE INDEX IF NOT EXISTS idx_dishes_available_seq
    ON dishes (available, seq);
`

// Migrate creates the dishes table and its indexes. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlDishes); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
