package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/pkg/logger"
	"github.com/somacore/soma/pkg/metrics"
)

// Default tuning for the asynchronous durable writer.
const (
	defaultWriteQueueSize = 256
	defaultWriteRetries   = 5
	defaultWriteBackoff   = 100 * time.Millisecond
	defaultFlushTimeout   = 5 * time.Second
)

// writeOp is one pending durable mutation. A single writer goroutine
// applies ops in submission order, so later publishes for a key always
// land after earlier ones.
type writeOp struct {
	key         model.Key
	score       model.Score
	publishedAt time.Time
	remove      bool
}

// Tiered combines the in-memory and durable tiers. Publishes hit
// memory synchronously and flow to SQLite through a background writer,
// so score readers never wait on disk.
type Tiered struct {
	mem *Memory
	dur *Durable
	log logger.Logger

	retries      int
	backoff      time.Duration
	flushTimeout time.Duration
	now          func() time.Time

	writes chan writeOp
	done   chan struct{}

	mu     sync.Mutex
	closed bool

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures the tiered store.
type Option func(*Tiered)

// WithWriteQueueSize sets the pending durable write buffer.
func WithWriteQueueSize(n int) Option {
	return func(t *Tiered) {
		if n > 0 {
			t.writes = make(chan writeOp, n)
		}
	}
}

// WithWriteRetries sets how many attempts a durable write gets before
// it is dropped.
func WithWriteRetries(n int) Option {
	return func(t *Tiered) {
		if n > 0 {
			t.retries = n
		}
	}
}

// WithWriteBackoff sets the base delay between write attempts. The
// delay doubles after each failure.
func WithWriteBackoff(d time.Duration) Option {
	return func(t *Tiered) {
		if d > 0 {
			t.backoff = d
		}
	}
}

// WithFlushTimeout bounds how long Close waits for pending writes.
func WithFlushTimeout(d time.Duration) Option {
	return func(t *Tiered) {
		if d > 0 {
			t.flushTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(t *Tiered) {
		t.log = log
	}
}

// WithClock sets the time source used for published-at stamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tiered) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTiered creates a tiered store over mem and dur and starts the
// durable writer.
func NewTiered(mem *Memory, dur *Durable, opts ...Option) *Tiered {
	t := &Tiered{
		mem:          mem,
		dur:          dur,
		log:          logger.Get().Named("cache"),
		retries:      defaultWriteRetries,
		backoff:      defaultWriteBackoff,
		flushTimeout: defaultFlushTimeout,
		now:          time.Now,
		writes:       make(chan writeOp, defaultWriteQueueSize),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	go t.writer()
	return t
}

// Get serves from memory first, falling back to the durable tier and
// promoting hits back into memory.
func (t *Tiered) Get(ctx context.Context, key model.Key) (model.Score, bool, error) {
	if score, ok := t.mem.Get(key); ok {
		t.hits.Add(1)
		metrics.RecordCacheHit()
		return score, true, nil
	}

	t.misses.Add(1)
	metrics.RecordCacheMiss()

	score, ok, err := t.dur.Get(ctx, key)
	if err != nil || !ok {
		return model.Score{}, false, err
	}
	t.mem.Put(key, score)
	return score, true, nil
}

// Put publishes score under key. Memory updates before Put returns;
// the durable write is queued.
func (t *Tiered) Put(_ context.Context, key model.Key, score model.Score) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.mem.Put(key, score)
	t.writes <- writeOp{key: key, score: score, publishedAt: t.now().UTC()}
	t.mu.Unlock()
	return nil
}

// Invalidate removes key from both tiers. The durable delete is queued
// behind any pending publish for the same key.
func (t *Tiered) Invalidate(_ context.Context, key model.Key) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.mem.Remove(key)
	t.writes <- writeOp{key: key, remove: true}
	t.mu.Unlock()
	return nil
}

// ListRecent returns history from the durable tier.
func (t *Tiered) ListRecent(ctx context.Context, kind model.ScoreKind, offset, limit int) ([]model.Score, error) {
	return t.dur.ListRecent(ctx, kind, offset, limit)
}

// Stats returns cumulative counters across both tiers.
func (t *Tiered) Stats() Stats {
	return Stats{
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Evictions: t.mem.Evictions(),
	}
}

// Close stops accepting writes, drains the pending queue, and closes
// the durable tier.
func (t *Tiered) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.writes)
	t.mu.Unlock()

	select {
	case <-t.done:
	case <-time.After(t.flushTimeout):
		t.log.Warn(context.Background(), "durable flush timed out")
	}
	return t.dur.Close()
}

// writer drains the queue, retrying failed writes with exponential
// backoff before dropping them.
func (t *Tiered) writer() {
	defer close(t.done)
	for op := range t.writes {
		t.apply(op)
	}
}

func (t *Tiered) apply(op writeOp) {
	ctx := context.Background()
	var err error
	for attempt := 0; attempt < t.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordDurableWriteRetry()
			time.Sleep(t.backoff << (attempt - 1))
		}
		if op.remove {
			err = t.dur.Delete(ctx, op.key)
		} else {
			err = t.dur.Put(ctx, op.key, op.score, op.publishedAt)
		}
		if err == nil {
			return
		}
		metrics.RecordDurableWriteError()
	}
	t.log.Error(ctx, "durable write dropped after retries",
		logger.String("key", op.key.String()),
		logger.Error(err),
	)
}
