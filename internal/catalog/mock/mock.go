// Package mock provides test doubles for the catalog interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/dquispe/ventavoz/internal/catalog"
	"github.com/dquispe/ventavoz/pkg/types"
)

// Source is a mock implementation of catalog.Source.
type Source struct {
	mu sync.Mutex

	// Products is returned by ActiveProducts for any store ID.
	Products []types.CatalogEntry

	// Err, if non-nil, is returned as the error from ActiveProducts.
	Err error

	// Calls records the store IDs passed to ActiveProducts, in order.
	Calls []int64
}

// ActiveProducts records the call and returns Products, Err.
func (s *Source) ActiveProducts(ctx context.Context, storeID int64) ([]types.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, storeID)
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]types.CatalogEntry, len(s.Products))
	copy(out, s.Products)
	return out, nil
}

// CommandLog is a mock implementation of catalog.CommandLog.
type CommandLog struct {
	mu sync.Mutex

	// Err, if non-nil, is returned as the error from Record.
	Err error

	// Records holds every record passed to Record, in order.
	Records []catalog.CommandRecord
}

// Record appends rec to Records and returns Err.
func (l *CommandLog) Record(ctx context.Context, rec catalog.CommandRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Records = append(l.Records, rec)
	return l.Err
}

var (
	_ catalog.Source     = (*Source)(nil)
	_ catalog.CommandLog = (*CommandLog)(nil)
)
