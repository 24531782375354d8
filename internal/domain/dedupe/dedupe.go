// Package dedupe tracks sample fingerprints for ingest idempotency.
//
// The external health-data provider delivers batches at-least-once, so the
// same (metric, timestamp) sample can arrive twice; recording fingerprints
// here keeps duplicate deliveries from double-ingesting.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen sample fingerprints for at-most-once ingest.
type Deduper interface {
	// SeenAndRecord atomically checks whether fingerprint was seen and
	// records it if not. Returns true when it was already seen.
	SeenAndRecord(ctx context.Context, fingerprint string) bool

	// Unrecord removes a fingerprint, allowing a retry. Used when a
	// sample was marked seen but failed to be stored.
	Unrecord(ctx context.Context, fingerprint string)

	// Size returns the number of fingerprints currently tracked.
	Size() int64
}

// rotatingDeduper implements Deduper with two generation maps. When the
// current generation fills, it becomes the previous generation and the
// oldest fingerprints age out wholesale. Lookups consult both, so the
// effective memory spans between maxSize and 2*maxSize fingerprints.
// With maxSize <= 0 the deduper is unbounded.
type rotatingDeduper struct {
	mu       sync.Mutex
	current  map[string]struct{}
	previous map[string]struct{}
	maxSize  int
}

// New creates a deduper with configuration options.
func New(opts ...Option) Deduper {
	d := &rotatingDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.current = make(map[string]struct{})
	return d
}

// SeenAndRecord atomically checks and records a fingerprint.
func (d *rotatingDeduper) SeenAndRecord(_ context.Context, fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.current[fingerprint]; ok {
		return true
	}
	if _, ok := d.previous[fingerprint]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.current) >= d.maxSize {
		d.previous = d.current
		d.current = make(map[string]struct{}, d.maxSize)
	}
	d.current[fingerprint] = struct{}{}
	return false
}

// Unrecord removes a fingerprint from both generations.
func (d *rotatingDeduper) Unrecord(_ context.Context, fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.current, fingerprint)
	delete(d.previous, fingerprint)
}

// Size returns the number of fingerprints currently tracked.
func (d *rotatingDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.current) + len(d.previous))
}
