// Package baseline maintains rolling trailing-window personal baselines
// per metric.
package baseline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/pkg/metrics"
)

// Default window configuration. Coverage defaults to half the window:
// fewer sampled days than that and the mean is not a trustworthy
// reference, so the baseline reports unavailable.
const (
	defaultWindowDays  = 14
	defaultMinCoverage = 7
)

// SampleSource supplies raw samples for window fetches. Range is
// half-open: [from, to).
type SampleSource interface {
	Range(ctx context.Context, kind model.MetricKind, from, to time.Time) ([]model.Sample, error)
}

// Tracker computes and caches rolling baselines.
type Tracker interface {
	// Refresh returns the baseline for (kind, asOf), computing it from
	// the trailing window when no cached value exists. The window ends
	// the day before asOf; the current day's in-progress samples never
	// feed their own reference.
	Refresh(ctx context.Context, kind model.MetricKind, asOf model.DayKey) (model.Baseline, error)

	// Invalidate drops cached baselines whose trailing window contains
	// day, for the given metric.
	Invalidate(kind model.MetricKind, day model.DayKey)

	// Size returns the number of cached baselines.
	Size() int
}

// Option applies a configuration option to the tracker.
type Option func(*tracker)

// WithWindowDays sets the trailing window length.
func WithWindowDays(days int) Option {
	return func(t *tracker) {
		if days > 0 {
			t.windowDays = days
		}
	}
}

// WithMinCoverage sets the minimum number of sampled days for a baseline
// to be considered available.
func WithMinCoverage(n int) Option {
	return func(t *tracker) {
		if n > 0 {
			t.minCoverage = n
		}
	}
}

// WithClock overrides the clock stamped into computed baselines.
func WithClock(now func() time.Time) Option {
	return func(t *tracker) {
		if now != nil {
			t.now = now
		}
	}
}

type cacheKey struct {
	kind model.MetricKind
	day  model.DayKey
}

// tracker implements Tracker with a mutex-guarded (kind, asOf) cache.
type tracker struct {
	mu          sync.Mutex
	source      SampleSource
	cache       map[cacheKey]model.Baseline
	windowDays  int
	minCoverage int
	now         func() time.Time
}

// NewTracker creates a tracker reading raw samples from source.
func NewTracker(source SampleSource, opts ...Option) Tracker {
	t := &tracker{
		source:      source,
		cache:       make(map[cacheKey]model.Baseline),
		windowDays:  defaultWindowDays,
		minCoverage: defaultMinCoverage,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Refresh returns the cached baseline or recomputes it from the window.
func (t *tracker) Refresh(ctx context.Context, kind model.MetricKind, asOf model.DayKey) (model.Baseline, error) {
	key := cacheKey{kind: kind, day: asOf}

	t.mu.Lock()
	if b, ok := t.cache[key]; ok {
		t.mu.Unlock()
		return b, nil
	}
	t.mu.Unlock()

	to := asOf.Time()
	from := asOf.AddDays(-t.windowDays).Time()
	samples, err := t.source.Range(ctx, kind, from, to)
	if err != nil {
		return model.Baseline{}, fmt.Errorf("%w: %s as of %s: %w", ErrWindowFetch, kind, asOf, err)
	}

	b := t.aggregate(kind, asOf, samples)
	metrics.RecordBaselineRefresh()

	t.mu.Lock()
	t.cache[key] = b
	t.mu.Unlock()
	return b, nil
}

// aggregate folds window samples into a baseline. Coverage counts
// distinct sampled days, not raw samples, so a burst of readings on one
// day cannot fake a stable reference.
func (t *tracker) aggregate(kind model.MetricKind, asOf model.DayKey, samples []model.Sample) model.Baseline {
	b := model.Baseline{
		Kind:       kind,
		Day:        asOf,
		WindowDays: t.windowDays,
		ComputedAt: t.now().UTC(),
	}
	if len(samples) == 0 {
		return b
	}

	days := make(map[model.DayKey]struct{}, t.windowDays)
	var sum float64
	for _, s := range samples {
		sum += s.Value
		days[s.Day()] = struct{}{}
	}
	b.SampleCount = len(days)
	if b.SampleCount >= t.minCoverage {
		b.Available = true
		b.Mean = sum / float64(len(samples))
	}
	return b
}

// Invalidate drops every cached baseline whose window [asOf-window, asOf)
// contains day.
func (t *tracker) Invalidate(kind model.MetricKind, day model.DayKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.cache {
		if key.kind != kind {
			continue
		}
		windowStart := key.day.AddDays(-t.windowDays)
		if !day.Before(windowStart) && day.Before(key.day) {
			delete(t.cache, key)
		}
	}
}

// Size returns the number of cached baselines.
func (t *tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cache)
}
