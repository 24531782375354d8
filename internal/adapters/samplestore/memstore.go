package samplestore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/pkg/metrics"
)

// shard holds one metric's samples in timestamp order. Sharding by metric
// kind keeps writers for different metrics off each other's locks.
type shard struct {
	mu      sync.RWMutex
	samples []model.Sample
}

// MemStore implements Store with per-metric sorted slices.
type MemStore struct {
	shards map[model.MetricKind]*shard
	total  atomic.Int64
}

// NewMemStore creates an in-memory sample store with one shard per
// known metric kind.
func NewMemStore() *MemStore {
	shards := make(map[model.MetricKind]*shard, len(model.AllMetricKinds))
	for _, kind := range model.AllMetricKinds {
		shards[kind] = &shard{}
	}
	return &MemStore{shards: shards}
}

// Put inserts a sample into its shard, preserving timestamp order.
func (m *MemStore) Put(_ context.Context, s model.Sample) (bool, error) {
	sh, ok := m.shards[s.Kind]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	i := sort.Search(len(sh.samples), func(i int) bool {
		return !sh.samples[i].TS.Before(s.TS)
	})
	if i < len(sh.samples) && sh.samples[i].TS.Equal(s.TS) {
		return false, nil
	}

	sh.samples = append(sh.samples, model.Sample{})
	copy(sh.samples[i+1:], sh.samples[i:])
	sh.samples[i] = s

	metrics.UpdateSampleCount(int(m.total.Add(1)))
	return true, nil
}

// Range returns samples for kind in [from, to), ordered by timestamp.
func (m *MemStore) Range(_ context.Context, kind model.MetricKind, from, to time.Time) ([]model.Sample, error) {
	sh, ok := m.shards[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	lo := sort.Search(len(sh.samples), func(i int) bool {
		return !sh.samples[i].TS.Before(from)
	})
	hi := sort.Search(len(sh.samples), func(i int) bool {
		return !sh.samples[i].TS.Before(to)
	})
	if lo >= hi {
		return nil, nil
	}

	out := make([]model.Sample, hi-lo)
	copy(out, sh.samples[lo:hi])
	return out, nil
}

// DayValues returns the samples for one local calendar day.
func (m *MemStore) DayValues(ctx context.Context, kind model.MetricKind, day model.DayKey) ([]model.Sample, error) {
	start := day.Time()
	return m.Range(ctx, kind, start, day.AddDays(1).Time())
}

// Count returns the total number of stored samples.
func (m *MemStore) Count(_ context.Context) int {
	return int(m.total.Load())
}
