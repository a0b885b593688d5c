package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dquispe/ventavoz/internal/catalog"
	"github.com/dquispe/ventavoz/internal/catalog/postgres"
	"github.com/dquispe/ventavoz/pkg/types"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VENTAVOZ_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VENTAVOZ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VENTAVOZ_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
// It calls t.Cleanup to close the store when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(cleanPool.Close)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS command_log CASCADE",
		"DROP TABLE IF EXISTS products CASCADE",
	} {
		if _, err := cleanPool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema: %v", err)
		}
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestActiveProducts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const storeID = 7
	for _, e := range []types.CatalogEntry{
		{Name: "Inca Kola 500ml", Aliases: []string{"inca kola", "la amarilla"}, UnitPrice: 3.50, Unit: "unidad", Stock: 24},
		{Name: "Arroz Costeño 1kg", UnitPrice: 4.80, Unit: "kg", Stock: 50},
	} {
		if _, err := store.UpsertProduct(ctx, storeID, e); err != nil {
			t.Fatalf("UpsertProduct: %v", err)
		}
	}
	// A product in another store must not leak into the snapshot.
	if _, err := store.UpsertProduct(ctx, storeID+1, types.CatalogEntry{Name: "Pan Francés", UnitPrice: 0.40}); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}

	got, err := store.ActiveProducts(ctx, storeID)
	if err != nil {
		t.Fatalf("ActiveProducts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("products = %d, want 2: %+v", len(got), got)
	}
	// Ordered by name.
	if got[0].Name != "Arroz Costeño 1kg" || got[1].Name != "Inca Kola 500ml" {
		t.Errorf("order = %q, %q", got[0].Name, got[1].Name)
	}
	if len(got[1].Aliases) != 2 {
		t.Errorf("aliases = %v, want 2 entries", got[1].Aliases)
	}
	if got[0].UnitPrice != 4.80 {
		t.Errorf("unit price = %v, want 4.80", got[0].UnitPrice)
	}
}

func TestUpsertProductUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const storeID = 1
	id, err := store.UpsertProduct(ctx, storeID, types.CatalogEntry{Name: "Leche Gloria", UnitPrice: 4.20})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := store.UpsertProduct(ctx, storeID, types.CatalogEntry{ID: id, Name: "Leche Gloria Entera", UnitPrice: 4.50}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.ActiveProducts(ctx, storeID)
	if err != nil {
		t.Fatalf("ActiveProducts: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Leche Gloria Entera" || got[0].UnitPrice != 4.50 {
		t.Errorf("after update: %+v", got)
	}

	// Updating a row that does not exist is an error, not an insert.
	if _, err := store.UpsertProduct(ctx, storeID, types.CatalogEntry{ID: 99999, Name: "ghost"}); err == nil {
		t.Error("update of missing product: want error, got nil")
	}
}

func TestRecordCommand(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Record(ctx, catalog.CommandRecord{
		StoreID:    3,
		Transcript: "dame dos inca colas",
		Corrected:  "dame dos inca kolas",
		Intent:     types.IntentAdd,
		ItemCount:  1,
		CostUSD:    0.000042,
		Duration:   87 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
}
