// Package samplestore defines the raw-sample repository interface and errors.
package samplestore

import (
	"context"
	"time"

	"github.com/somacore/soma/internal/domain/model"
)

// Store provides read/write access to raw biometric samples. It is the
// single source the baseline tracker and the scoring pipeline re-derive
// from; everything downstream of it is a cache.
type Store interface {
	// Put inserts a sample, keeping per-metric timestamp order.
	// Returns false when a sample with the same (kind, timestamp)
	// already exists.
	Put(ctx context.Context, s model.Sample) (bool, error)

	// Range returns samples for kind in [from, to), ordered by timestamp.
	Range(ctx context.Context, kind model.MetricKind, from, to time.Time) ([]model.Sample, error)

	// DayValues returns the samples for kind on one local calendar day,
	// ordered by timestamp.
	DayValues(ctx context.Context, kind model.MetricKind, day model.DayKey) ([]model.Sample, error)

	// Count returns the total number of stored samples.
	Count(ctx context.Context) int
}
