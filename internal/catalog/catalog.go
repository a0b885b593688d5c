// Package catalog defines how the voice pipeline reads store product lists
// and records resolved commands.
//
// The matcher works against an in-memory snapshot of the active products
// fetched per request, so a mid-request price update never produces a cart
// that mixes old and new prices.
package catalog

import (
	"context"
	"time"

	"github.com/dquispe/ventavoz/pkg/types"
)

// Source supplies the product snapshot for one store.
type Source interface {
	// ActiveProducts returns every sellable product for storeID, including
	// aliases. The returned slice is owned by the caller.
	ActiveProducts(ctx context.Context, storeID int64) ([]types.CatalogEntry, error)
}

// CommandRecord is the audit trail entry for one processed voice command.
type CommandRecord struct {
	StoreID     int64
	Transcript  string
	Corrected   string
	Intent      types.Intent
	ItemCount   int
	Ambiguous   int
	NotFound    int
	CostUSD     float64
	Duration    time.Duration
	CreatedAt   time.Time
}

// CommandLog persists processed commands so the owner can review what the
// register heard and resolved.
type CommandLog interface {
	// Record appends rec to the audit log. A failed write must not fail the
	// sale; callers log the error and move on.
	Record(ctx context.Context, rec CommandRecord) error
}
