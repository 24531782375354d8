// Package cache stores computed composite scores in a bounded in-memory
// tier backed by a durable tier that survives restarts.
package cache

import (
	"context"

	"github.com/somacore/soma/internal/domain/model"
)

// Stats carries hit/miss counters for diagnostics. Observational only;
// nothing reads them to make correctness decisions.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Store provides keyed access to computed scores. The reactive
// coordinator owns no entries itself; every read and write goes through
// here.
type Store interface {
	// Get returns the cached score for key, reporting presence.
	Get(ctx context.Context, key model.Key) (model.Score, bool, error)

	// Put publishes a new score for key, superseding any previous value.
	Put(ctx context.Context, key model.Key, score model.Score) error

	// Invalidate removes the entry for key from every tier.
	Invalidate(ctx context.Context, key model.Key) error

	// ListRecent returns up to limit scores of one kind, most recent
	// day first, skipping offset entries.
	ListRecent(ctx context.Context, kind model.ScoreKind, offset, limit int) ([]model.Score, error)

	// Stats returns cumulative hit/miss counters.
	Stats() Stats
}
