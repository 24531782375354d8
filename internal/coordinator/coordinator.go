// Package coordinator reacts to sample arrivals by invalidating affected
// scores and recomputing them on a worker pool. Per key it guarantees at
// most one recompute in flight; arrivals during a compute mark the key
// dirty and trigger one follow-up recompute instead of publishing the
// stale result.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/somacore/soma/internal/adapters/mq/queue"
	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/internal/domain/scoring"
	"github.com/somacore/soma/internal/domain/types"
	"github.com/somacore/soma/pkg/logger"
	"github.com/somacore/soma/pkg/metrics"
)

// Freshness statuses reported for a (day, kind).
const (
	StatusSilent          = "silent"
	StatusRecentlyUpdated = "recently_updated"
	StatusWaitingForData  = "waiting_for_data"
	StatusComputing       = "computing"
)

// SampleReader supplies one day's samples for a metric.
type SampleReader interface {
	DayValues(ctx context.Context, kind model.MetricKind, day model.DayKey) ([]model.Sample, error)
}

// BaselineTracker supplies and invalidates rolling baselines.
type BaselineTracker interface {
	Refresh(ctx context.Context, kind model.MetricKind, asOf model.DayKey) (model.Baseline, error)
	Invalidate(kind model.MetricKind, day model.DayKey)
}

// Engine computes a composite score from prepared inputs.
type Engine interface {
	Score(ctx context.Context, kind model.ScoreKind, day model.DayKey, in scoring.Inputs) (model.Score, error)
}

// ScoreCache is where recomputed scores get published and read back.
type ScoreCache interface {
	Get(ctx context.Context, key model.Key) (model.Score, bool, error)
	Put(ctx context.Context, key model.Key, score model.Score) error
	ListRecent(ctx context.Context, kind model.ScoreKind, offset, limit int) ([]model.Score, error)
}

// keyState is the per-key recompute lifecycle. queued means a task for
// the key sits in the queue; computing means a worker holds it; dirty
// means another invalidation arrived and the current result, if any,
// must not be the last word.
type keyState struct {
	queued    bool
	computing bool
	dirty     bool
}

// Coordinator owns the invalidation state machine and the worker pool.
type Coordinator struct {
	samples   SampleReader
	baselines BaselineTracker
	engine    Engine
	cache     ScoreCache
	queue     queue.Queue

	windowDays  int
	freshFor    time.Duration
	morningFrom int
	morningTo   int
	workerCount int
	now         func() time.Time
	log         logger.Logger

	mu        sync.Mutex
	states    map[model.Key]*keyState
	published map[model.Key]time.Time
	subs      []chan model.Score

	shutdown chan struct{}
	workers  []chan struct{}
}

// New creates a coordinator over the given collaborators. Call Start to
// launch the workers.
func New(samples SampleReader, baselines BaselineTracker, engine Engine, cache ScoreCache, q queue.Queue, opts ...Option) *Coordinator {
	c := &Coordinator{
		samples:     samples,
		baselines:   baselines,
		engine:      engine,
		cache:       cache,
		queue:       q,
		windowDays:  defaultWindowDays,
		freshFor:    defaultFreshFor,
		morningFrom: defaultMorningFrom,
		morningTo:   defaultMorningTo,
		workerCount: defaultWorkerCount,
		now:         time.Now,
		log:         logger.Get().Named("coordinator"),
		states:      make(map[model.Key]*keyState),
		published:   make(map[model.Key]time.Time),
		shutdown:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.seedPublished()
	return c
}

// seedPublished recovers every key that already holds a durable score,
// so later-day re-invalidation keeps working across restarts. It pages
// through the whole set; a late sample must find even the oldest
// published day.
func (c *Coordinator) seedPublished() {
	ctx := context.Background()
	for _, kind := range []model.ScoreKind{model.ScoreRecovery, model.ScoreSleep} {
		for offset := 0; ; offset += seedPageSize {
			scores, err := c.cache.ListRecent(ctx, kind, offset, seedPageSize)
			if err != nil {
				c.log.Warn(ctx, "cached score recovery failed", logger.Error(err))
				break
			}
			for _, s := range scores {
				c.published[s.Key()] = s.ComputedAt
			}
			if len(scores) < seedPageSize {
				break
			}
		}
	}
}

// Start launches the recompute workers. They stop when ctx is cancelled
// or the queue closes.
func (c *Coordinator) Start(ctx context.Context) {
	taskChan := c.queue.Dequeue(ctx)
	for i := 0; i < c.workerCount; i++ {
		done := make(chan struct{})
		c.workers = append(c.workers, done)
		go c.run(ctx, taskChan, done)
	}
}

// run is one worker loop.
func (c *Coordinator) run(ctx context.Context, tasks <-chan queue.Task, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			if err := c.process(ctx, task); err != nil {
				c.log.Error(ctx, "recompute failed",
					logger.String("task_id", task.ID),
					logger.String("key", task.Key.String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown closes the queue and waits for in-flight recomputes to land.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if err := c.queue.Close(); err != nil {
		c.log.Error(ctx, "error closing queue", logger.Error(err))
	}

	for i, done := range c.workers {
		select {
		case <-done:
		case <-ctx.Done():
			c.log.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			close(c.shutdown)
			return fmt.Errorf("coordinator shutdown: %w", ctx.Err())
		}
	}
	return nil
}

// Notify reports newly stored samples. Each sample invalidates its own
// day for every profile that reads its metric, plus any later cached day
// whose trailing baseline window contains the sample's day.
func (c *Coordinator) Notify(ctx context.Context, samples []model.Sample) {
	for i := range samples {
		c.notifyOne(ctx, samples[i])
	}
}

func (c *Coordinator) notifyOne(ctx context.Context, s model.Sample) {
	day := s.Day()
	c.baselines.Invalidate(s.Kind, day)

	for _, kind := range []model.ScoreKind{model.ScoreRecovery, model.ScoreSleep} {
		if !profileReads(kind, s.Kind) {
			continue
		}
		c.invalidate(ctx, model.Key{Day: day, Kind: kind})

		// A sample for day D sits inside the baseline window of the
		// following windowDays days. Those recompute only if a score was
		// ever published for them; untouched days stay silent.
		for off := 1; off <= c.windowDays; off++ {
			later := model.Key{Day: day.AddDays(off), Kind: kind}
			if c.hasPublished(later) {
				c.invalidate(ctx, later)
			}
		}
	}
}

// invalidate marks the key dirty and schedules a recompute unless one is
// already queued or running. Re-invalidation while queued collapses into
// the pending task.
func (c *Coordinator) invalidate(ctx context.Context, key model.Key) {
	c.mu.Lock()
	st, ok := c.states[key]
	if !ok {
		st = &keyState{}
		c.states[key] = st
	}
	st.dirty = true
	if st.queued || st.computing {
		c.mu.Unlock()
		return
	}
	st.queued = true
	c.mu.Unlock()

	metrics.RecordInvalidation()
	c.enqueue(ctx, key, st)
}

// enqueue pushes a recompute task, reverting the queued mark on failure
// so a later invalidation can retry.
func (c *Coordinator) enqueue(ctx context.Context, key model.Key, st *keyState) {
	task := queue.Task{
		ID:         uuid.NewString(),
		Key:        key,
		EnqueuedAt: c.now(),
	}
	if c.queue.Enqueue(ctx, task) {
		return
	}

	c.mu.Lock()
	st.queued = false
	c.mu.Unlock()
	c.log.Error(ctx, "recompute task dropped",
		logger.String("key", key.String()),
		logger.Error(ErrQueueFull),
	)
}

// process recomputes one key. A key invalidated mid-compute or
// mid-publish discards the result's claim and requeues, so an older
// computation's value can never be the last word over a newer one.
func (c *Coordinator) process(ctx context.Context, task queue.Task) error {
	c.mu.Lock()
	st, ok := c.states[task.Key]
	if !ok {
		st = &keyState{}
		c.states[task.Key] = st
	}
	st.queued = false
	st.computing = true
	st.dirty = false
	c.mu.Unlock()

	start := time.Now()
	score, err := c.compute(ctx, task.Key)
	metrics.RecordComputeLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		c.mu.Lock()
		st.computing = false
		requeue := st.dirty && !st.queued
		if requeue {
			st.queued = true
		}
		c.mu.Unlock()
		if requeue {
			c.enqueue(ctx, task.Key, st)
		}
		return fmt.Errorf("%w: %s: %w", ErrCompute, task.Key, err)
	}

	c.mu.Lock()
	if st.dirty {
		st.computing = false
		st.queued = true
		c.mu.Unlock()
		metrics.RecordRecomputeSuperseded()
		c.enqueue(ctx, task.Key, st)
		return nil
	}
	c.mu.Unlock()

	// computing stays set while the write is in flight: an invalidation
	// landing now marks the key dirty instead of starting a second
	// compute that this delayed write could then overwrite.
	putErr := c.cache.Put(ctx, task.Key, score)

	c.mu.Lock()
	published := putErr == nil && !st.dirty
	if published {
		c.published[task.Key] = c.now()
	}
	st.computing = false
	requeue := st.dirty && !st.queued
	if requeue {
		st.queued = true
	}
	var subs []chan model.Score
	if published {
		subs = make([]chan model.Score, len(c.subs))
		copy(subs, c.subs)
	}
	c.mu.Unlock()

	if requeue {
		metrics.RecordRecomputeSuperseded()
		c.enqueue(ctx, task.Key, st)
	}
	if putErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, task.Key, putErr)
	}
	if !published {
		return nil
	}

	metrics.RecordScorePublished()
	for _, sub := range subs {
		select {
		case sub <- score:
		default:
		}
	}
	return nil
}

// compute assembles the day's aggregates and baselines and runs the
// engine. The tracker is asked once per metric; its cache makes repeat
// asks within one invalidation cycle free.
func (c *Coordinator) compute(ctx context.Context, key model.Key) (model.Score, error) {
	values := make(map[model.MetricKind]float64)
	bases := make(map[model.MetricKind]model.Baseline)

	for _, mk := range scoring.RequiredMetrics(key.Kind) {
		samples, err := c.samples.DayValues(ctx, mk, key.Day)
		if err != nil {
			return model.Score{}, fmt.Errorf("day values for %s: %w", mk, err)
		}
		if v, ok := scoring.DailyValue(mk, samples); ok {
			values[mk] = v
		}

		b, err := c.baselines.Refresh(ctx, mk, key.Day)
		if err != nil {
			return model.Score{}, fmt.Errorf("baseline for %s: %w", mk, err)
		}
		bases[mk] = b
	}

	in := scoring.Inputs{Values: values, Baselines: bases}
	score, err := c.engine.Score(ctx, key.Kind, key.Day, in)
	if err != nil {
		return model.Score{}, err
	}
	if !score.DataComplete {
		for _, derr := range in.Diagnostics(key.Kind) {
			c.log.Debug(ctx, "component degraded",
				logger.String("key", key.String()),
				logger.Error(derr),
			)
		}
	}
	return score, nil
}

// Subscribe returns a channel carrying every published score. Slow
// subscribers miss updates rather than stalling publishes.
func (c *Coordinator) Subscribe() <-chan model.Score {
	ch := make(chan model.Score, subscriberBuffer)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Freshness reports how current the cached score for (kind, day) is.
func (c *Coordinator) Freshness(ctx context.Context, kind model.ScoreKind, day model.DayKey) types.FreshnessView {
	key := model.Key{Day: day, Kind: kind}
	view := types.FreshnessView{
		Kind:              string(kind),
		Day:               string(day),
		Status:            StatusSilent,
		MorningSyncWindow: c.inMorningWindow(),
	}

	c.mu.Lock()
	st := c.states[key]
	lastPub, hasPub := c.published[key]
	c.mu.Unlock()

	if st != nil && (st.computing || st.queued) {
		view.Status = StatusComputing
		return view
	}

	if score, ok, err := c.cache.Get(ctx, key); err == nil && ok && !score.DataComplete {
		view.Status = StatusWaitingForData
		return view
	}

	if hasPub && c.now().Sub(lastPub) <= c.freshFor {
		view.Status = StatusRecentlyUpdated
	}
	return view
}

// hasPublished reports whether the key ever had a score published.
func (c *Coordinator) hasPublished(key model.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.published[key]
	return ok
}

// inMorningWindow reports whether local time is inside the configured
// morning sync hours.
func (c *Coordinator) inMorningWindow() bool {
	h := c.now().Local().Hour()
	return h >= c.morningFrom && h < c.morningTo
}

// profileReads reports whether a scoring profile consumes a metric.
func profileReads(kind model.ScoreKind, metric model.MetricKind) bool {
	for _, mk := range scoring.RequiredMetrics(kind) {
		if mk == metric {
			return true
		}
	}
	return false
}
