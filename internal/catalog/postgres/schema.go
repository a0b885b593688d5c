// Package postgres provides the PostgreSQL-backed catalog source and
// command audit log.
//
// Both share a single [pgxpool.Pool]. [Migrate] is idempotent and runs on
// every application start.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	products, _ := store.ActiveProducts(ctx, storeID)
//	_ = store.Record(ctx, rec)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlProducts = `
CREATE TABLE IF NOT EXISTS products (
    id          BIGSERIAL    PRIMARY KEY,
    store_id    BIGINT       NOT NULL,
    name        TEXT         NOT NULL,
    aliases     TEXT[]       NOT NULL DEFAULT '{}',
    unit_price  NUMERIC(10,2) NOT NULL DEFAULT 0,
    unit        TEXT         NOT NULL DEFAULT 'unidad',
    stock       NUMERIC(10,3) NOT NULL DEFAULT 0,
    active      BOOLEAN      NOT NULL DEFAULT true,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_products_store_active
    ON products (store_id) WHERE active;

CREATE INDEX IF NOT EXISTS idx_products_name
    ON products (name);
`

const ddlCommandLog = `
CREATE TABLE IF NOT EXISTS command_log (
    id           BIGSERIAL    PRIMARY KEY,
    store_id     BIGINT       NOT NULL,
    transcript   TEXT         NOT NULL,
    corrected    TEXT         NOT NULL DEFAULT '',
    intent       TEXT         NOT NULL,
    item_count   INT          NOT NULL DEFAULT 0,
    ambiguous    INT          NOT NULL DEFAULT 0,
    not_found    INT          NOT NULL DEFAULT 0,
    cost_usd     NUMERIC(10,6) NOT NULL DEFAULT 0,
    duration_ns  BIGINT       NOT NULL DEFAULT 0,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_command_log_store_created
    ON command_log (store_id, created_at);
`

// Migrate creates or ensures all required tables and indexes exist. It is
// idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlProducts, ddlCommandLog} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
