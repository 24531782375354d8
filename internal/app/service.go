// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/somacore/soma/internal/adapters/cache"
	taskqueue "github.com/somacore/soma/internal/adapters/mq/queue"
	"github.com/somacore/soma/internal/adapters/samplestore"
	"github.com/somacore/soma/internal/coordinator"
	"github.com/somacore/soma/internal/domain/baseline"
	"github.com/somacore/soma/internal/domain/dedupe"
	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/internal/domain/scoring"
	"github.com/somacore/soma/internal/domain/types"
	"github.com/somacore/soma/pkg/logger"
	"github.com/somacore/soma/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize       = 4096
	defaultDedupeSize      = 50_000
	defaultWorkerCount     = 4
	defaultWindowDays      = 14
	defaultMinCoverage     = 7
	defaultCacheCapacity   = 100
	defaultDurablePath     = "soma.db"
	defaultHistoryLimit    = 14
	defaultMaxHistoryLimit = 90
	shutdownTimeout        = 10 * time.Second
)

// Service wires the sample store, baselines, scoring engine, cache, and
// reactive coordinator behind the API surface.
type Service struct {
	mu sync.RWMutex

	// Core components
	samples   *samplestore.MemStore
	deduper   dedupe.Deduper
	baselines baseline.Tracker
	engine    scoring.Engine
	scores    *cache.Tiered
	queue     taskqueue.Queue
	coord     *coordinator.Coordinator

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	windowDays      int
	minCoverage     int
	cacheCapacity   int
	durablePath     string
	durableRetries  int
	durableBackoff  time.Duration
	freshFor        time.Duration
	morningFrom     int
	morningTo       int
	curve           scoring.GrowthCurve
	maxHistoryLimit int
	now             func() time.Time

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the recompute task queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the ingestion fingerprint cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithBaselineWindow sets the trailing window length and its minimum
// coverage in sampled days.
func WithBaselineWindow(days, minCoverage int) Option {
	return func(s *Service) {
		if days > 0 && minCoverage > 0 && minCoverage <= days {
			s.windowDays = days
			s.minCoverage = minCoverage
		}
	}
}

// WithCacheCapacity bounds the in-memory score cache.
func WithCacheCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheCapacity = n
		}
	}
}

// WithDurablePath locates the SQLite score database.
func WithDurablePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.durablePath = path
		}
	}
}

// WithDurableRetryPolicy sets the durable write retry count and base
// backoff.
func WithDurableRetryPolicy(retries int, backoff time.Duration) Option {
	return func(s *Service) {
		if retries > 0 {
			s.durableRetries = retries
		}
		if backoff > 0 {
			s.durableBackoff = backoff
		}
	}
}

// WithFreshnessWindow sets how long a publish reads as recently updated.
func WithFreshnessWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.freshFor = d
		}
	}
}

// WithMorningWindow sets the local hours [from, to) of the usual
// provider sync window.
func WithMorningWindow(from, to int) Option {
	return func(s *Service) {
		if from >= 0 && to <= 24 && from < to {
			s.morningFrom = from
			s.morningTo = to
		}
	}
}

// WithCurveGains recalibrates the growth curve around the default anchor.
func WithCurveGains(up, down float64) Option {
	return func(s *Service) {
		c := scoring.DefaultGrowthCurve()
		c.UpGain = up
		c.DownGain = down
		s.curve = c
	}
}

// WithMaxHistoryLimit caps history query page sizes.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithClock overrides the service time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		dedupeSize:      defaultDedupeSize,
		windowDays:      defaultWindowDays,
		minCoverage:     defaultMinCoverage,
		cacheCapacity:   defaultCacheCapacity,
		durablePath:     defaultDurablePath,
		curve:           scoring.DefaultGrowthCurve(),
		maxHistoryLimit: defaultMaxHistoryLimit,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		logger:          nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting scoring service...")

	s.samples = samplestore.NewMemStore()
	s.deduper = dedupe.New(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.baselines = baseline.NewTracker(s.samples,
		baseline.WithWindowDays(s.windowDays),
		baseline.WithMinCoverage(s.minCoverage),
	)
	s.engine = scoring.NewCompositeEngine(
		scoring.WithGrowthCurve(s.curve),
	)

	durable, err := cache.OpenDurable(s.durablePath)
	if err != nil {
		return fmt.Errorf("open durable cache: %w", err)
	}
	tieredOpts := []cache.Option{}
	if s.durableRetries > 0 {
		tieredOpts = append(tieredOpts, cache.WithWriteRetries(s.durableRetries))
	}
	if s.durableBackoff > 0 {
		tieredOpts = append(tieredOpts, cache.WithWriteBackoff(s.durableBackoff))
	}
	s.scores = cache.NewTiered(cache.NewMemory(cache.WithCapacity(s.cacheCapacity)), durable, tieredOpts...)

	s.queue = taskqueue.NewInMemoryQueue(
		taskqueue.WithCapacity(s.queueSize),
		taskqueue.WithBufferSize(s.queueSize),
	)

	coordOpts := []coordinator.Option{
		coordinator.WithWindowDays(s.windowDays),
		coordinator.WithWorkerCount(s.workerCount),
	}
	if s.freshFor > 0 {
		coordOpts = append(coordOpts, coordinator.WithFreshFor(s.freshFor))
	}
	if s.morningFrom < s.morningTo {
		coordOpts = append(coordOpts, coordinator.WithMorningWindow(s.morningFrom, s.morningTo))
	}
	s.coord = coordinator.New(s.samples, s.baselines, s.engine, s.scores, s.queue, coordOpts...)
	s.coord.Start(ctx)
	metrics.UpdateWorkerActiveCount(s.workerCount)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("windowDays", s.windowDays),
		logger.String("durablePath", s.durablePath),
	)

	return nil
}

// Stop gracefully shuts down the service, draining in-flight recomputes
// and flushing pending durable writes.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.coord.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "coordinator shutdown incomplete", logger.Error(err))
	}

	if err := s.scores.Close(); err != nil {
		s.logger.Error(ctx, "error closing score cache", logger.Error(err))
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// Ingest stores a batch of samples and notifies the coordinator about
// the fresh ones. Duplicates, by fingerprint or by exact (kind,
// timestamp) collision, are dropped and counted, never an error.
func (s *Service) Ingest(ctx context.Context, batch []model.Sample) (accepted, duplicates int, err error) {
	batchID := uuid.NewString()
	fresh := make([]model.Sample, 0, len(batch))

	for i := range batch {
		sample := batch[i]
		if !sample.Kind.Valid() {
			return accepted, duplicates, fmt.Errorf("%w: %q", samplestore.ErrUnknownKind, sample.Kind)
		}

		fp := sample.Fingerprint()
		if s.deduper.SeenAndRecord(ctx, fp) {
			duplicates++
			metrics.RecordSampleDuplicate()
			continue
		}

		ok, putErr := s.samples.Put(ctx, sample)
		if putErr != nil {
			s.deduper.Unrecord(ctx, fp)
			return accepted, duplicates, fmt.Errorf("store sample: %w", putErr)
		}
		if !ok {
			duplicates++
			metrics.RecordSampleDuplicate()
			continue
		}

		accepted++
		metrics.RecordSampleIngested()
		fresh = append(fresh, sample)
	}

	if len(fresh) > 0 {
		s.coord.Notify(ctx, fresh)
	}

	s.logger.Debug(ctx, "sample batch ingested",
		logger.String("batchID", batchID),
		logger.Int("accepted", accepted),
		logger.Int("duplicates", duplicates),
	)
	return accepted, duplicates, nil
}

// Score returns the cached score for (kind, day). An empty day means
// the current local day.
func (s *Service) Score(ctx context.Context, kind, day string) (types.ScoreView, bool, error) {
	sk, err := model.ParseScoreKind(kind)
	if err != nil {
		return types.ScoreView{}, false, err
	}
	dk, err := s.dayOrToday(day)
	if err != nil {
		return types.ScoreView{}, false, err
	}

	score, ok, err := s.scores.Get(ctx, model.Key{Day: dk, Kind: sk})
	if err != nil || !ok {
		return types.ScoreView{}, false, err
	}
	return scoreView(score), true, nil
}

// History returns up to limit recent scores of one kind, newest first.
func (s *Service) History(ctx context.Context, kind string, offset, limit int) ([]types.ScoreView, error) {
	sk, err := model.ParseScoreKind(kind)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > s.maxHistoryLimit {
		limit = s.maxHistoryLimit
	}

	scores, err := s.scores.ListRecent(ctx, sk, offset, limit)
	if err != nil {
		return nil, err
	}
	views := make([]types.ScoreView, len(scores))
	for i := range scores {
		views[i] = scoreView(scores[i])
	}
	return views, nil
}

// Freshness reports how current the cached score for (kind, day) is.
func (s *Service) Freshness(ctx context.Context, kind, day string) (types.FreshnessView, error) {
	sk, err := model.ParseScoreKind(kind)
	if err != nil {
		return types.FreshnessView{}, err
	}
	dk, err := s.dayOrToday(day)
	if err != nil {
		return types.FreshnessView{}, err
	}
	return s.coord.Freshness(ctx, sk, dk), nil
}

// Baseline returns the rolling baseline for (metric, day), computing it
// if no cached value exists.
func (s *Service) Baseline(ctx context.Context, metric, day string) (types.BaselineView, error) {
	mk := model.MetricKind(metric)
	if !mk.Valid() {
		return types.BaselineView{}, fmt.Errorf("%w: %q", samplestore.ErrUnknownKind, metric)
	}
	dk, err := s.dayOrToday(day)
	if err != nil {
		return types.BaselineView{}, err
	}

	b, err := s.baselines.Refresh(ctx, mk, dk)
	if err != nil {
		return types.BaselineView{}, err
	}
	metrics.UpdateBaselineCacheSize(s.baselines.Size())
	return types.BaselineView{
		Kind:        string(b.Kind),
		Day:         string(b.Day),
		WindowDays:  b.WindowDays,
		Mean:        b.Mean,
		SampleCount: b.SampleCount,
		ComputedAt:  b.ComputedAt,
		Available:   b.Available,
		Unit:        b.Kind.Unit(),
	}, nil
}

// Subscribe returns a channel carrying every published score.
func (s *Service) Subscribe() <-chan model.Score {
	return s.coord.Subscribe()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"windowDays":  s.windowDays,
	}

	if s.started {
		cacheStats := s.scores.Stats()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["sampleCount"] = s.samples.Count(ctx)
		stats["baselineCacheSize"] = s.baselines.Size()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["cacheHits"] = cacheStats.Hits
		stats["cacheMisses"] = cacheStats.Misses
		stats["cacheEvictions"] = cacheStats.Evictions

		metrics.UpdateBaselineCacheSize(s.baselines.Size())
	}

	return stats
}

// dayOrToday parses day, defaulting to the current local day.
func (s *Service) dayOrToday(day string) (model.DayKey, error) {
	if day == "" {
		return model.NewDayKey(s.now()), nil
	}
	return model.ParseDayKey(day)
}

// scoreView converts a domain score to its API form, attaching the
// qualitative stress band.
func scoreView(score model.Score) types.ScoreView {
	components := make([]types.ComponentView, len(score.Components))
	for i, c := range score.Components {
		components[i] = types.ComponentView{
			Name:         c.Name,
			Weight:       c.Weight,
			Normalized:   c.Normalized,
			Contribution: c.Contribution,
			Raw:          c.Raw,
			Complete:     c.Complete,
		}
		if c.Name == scoring.CompStress && c.Complete {
			components[i].Band = scoring.StressBand(c.Raw)
		}
	}
	return types.ScoreView{
		Kind:         string(score.Kind),
		Day:          string(score.Day),
		Overall:      score.Overall,
		Components:   components,
		ComputedAt:   score.ComputedAt,
		DataComplete: score.DataComplete,
	}
}
