package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dquispe/ventavoz/internal/catalog"
	"github.com/dquispe/ventavoz/pkg/types"
)

// Compile-time interface checks.
var (
	_ catalog.Source     = (*Store)(nil)
	_ catalog.CommandLog = (*Store)(nil)
)

// Store is the PostgreSQL-backed catalog. It holds a single [pgxpool.Pool]
// and implements both [catalog.Source] and [catalog.CommandLog].
//
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store, establishes a connection pool to the
// PostgreSQL database at dsn, and runs [Migrate] to ensure all required
// tables exist.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// ActiveProducts implements [catalog.Source]. It returns every active
// product for storeID, ordered by name for stable ambiguous-option lists.
func (s *Store) ActiveProducts(ctx context.Context, storeID int64) ([]types.CatalogEntry, error) {
	const q = `
		SELECT id, name, aliases, unit_price, unit, stock
		FROM   products
		WHERE  store_id = $1
		  AND  active
		ORDER  BY name`

	rows, err := s.pool.Query(ctx, q, storeID)
	if err != nil {
		return nil, fmt.Errorf("catalog store: active products: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.CatalogEntry, error) {
		var e types.CatalogEntry
		err := row.Scan(&e.ID, &e.Name, &e.Aliases, &e.UnitPrice, &e.Unit, &e.Stock)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("catalog store: scan rows: %w", err)
	}
	if entries == nil {
		entries = []types.CatalogEntry{}
	}
	return entries, nil
}

// UpsertProduct inserts or updates one product. Zero ID inserts; a non-zero
// ID updates that row. Returns the product's ID.
func (s *Store) UpsertProduct(ctx context.Context, storeID int64, e types.CatalogEntry) (int64, error) {
	if e.ID == 0 {
		const q = `
			INSERT INTO products (store_id, name, aliases, unit_price, unit, stock)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		var id int64
		err := s.pool.QueryRow(ctx, q, storeID, e.Name, e.Aliases, e.UnitPrice, e.Unit, e.Stock).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("catalog store: insert product: %w", err)
		}
		return id, nil
	}

	const q = `
		UPDATE products
		SET    name = $3, aliases = $4, unit_price = $5, unit = $6, stock = $7,
		       updated_at = now()
		WHERE  id = $1 AND store_id = $2`
	tag, err := s.pool.Exec(ctx, q, e.ID, storeID, e.Name, e.Aliases, e.UnitPrice, e.Unit, e.Stock)
	if err != nil {
		return 0, fmt.Errorf("catalog store: update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("catalog store: product %d not found in store %d", e.ID, storeID)
	}
	return e.ID, nil
}

// Record implements [catalog.CommandLog]. It appends rec to the command_log
// audit table.
func (s *Store) Record(ctx context.Context, rec catalog.CommandRecord) error {
	const q = `
		INSERT INTO command_log
		    (store_id, transcript, corrected, intent, item_count, ambiguous, not_found, cost_usd, duration_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE(NULLIF($10::timestamptz, '0001-01-01'::timestamptz), now()))`

	_, err := s.pool.Exec(ctx, q,
		rec.StoreID,
		rec.Transcript,
		rec.Corrected,
		string(rec.Intent),
		rec.ItemCount,
		rec.Ambiguous,
		rec.NotFound,
		rec.CostUSD,
		rec.Duration.Nanoseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("catalog store: record command: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
