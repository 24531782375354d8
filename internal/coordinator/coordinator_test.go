package coordinator_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	queue "github.com/somacore/soma/internal/adapters/mq/queue"
	coordinator "github.com/somacore/soma/internal/coordinator"
	model "github.com/somacore/soma/internal/domain/model"
	scoring "github.com/somacore/soma/internal/domain/scoring"
	logging "github.com/somacore/soma/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const waitFor = 2 * time.Second

type fakeSamples struct {
	mu   sync.Mutex
	data map[model.MetricKind]map[model.DayKey][]model.Sample
}

func newFakeSamples() *fakeSamples {
	return &fakeSamples{data: make(map[model.MetricKind]map[model.DayKey][]model.Sample)}
}

func (f *fakeSamples) add(s model.Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byDay, ok := f.data[s.Kind]
	if !ok {
		byDay = make(map[model.DayKey][]model.Sample)
		f.data[s.Kind] = byDay
	}
	byDay[s.Day()] = append(byDay[s.Day()], s)
}

func (f *fakeSamples) DayValues(_ context.Context, kind model.MetricKind, day model.DayKey) ([]model.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[kind][day], nil
}

type fakeBaselines struct {
	mu          sync.Mutex
	invalidated map[model.MetricKind][]model.DayKey
}

func newFakeBaselines() *fakeBaselines {
	return &fakeBaselines{invalidated: make(map[model.MetricKind][]model.DayKey)}
}

func (f *fakeBaselines) Refresh(_ context.Context, kind model.MetricKind, asOf model.DayKey) (model.Baseline, error) {
	return model.Baseline{Kind: kind, Day: asOf, WindowDays: 14, Mean: 50, SampleCount: 10, Available: true}, nil
}

func (f *fakeBaselines) Invalidate(kind model.MetricKind, day model.DayKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated[kind] = append(f.invalidated[kind], day)
}

func (f *fakeBaselines) invalidations(kind model.MetricKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invalidated[kind])
}

// gatedEngine lets a test hold a compute open to race invalidations
// against it. With a nil gate it completes immediately.
type gatedEngine struct {
	mu       sync.Mutex
	computes int
	started  chan struct{}
	gate     chan struct{}
}

func (e *gatedEngine) Score(_ context.Context, kind model.ScoreKind, day model.DayKey, _ scoring.Inputs) (model.Score, error) {
	e.mu.Lock()
	e.computes++
	n := e.computes
	e.mu.Unlock()

	if e.started != nil && n == 1 {
		close(e.started)
	}
	if e.gate != nil && n == 1 {
		<-e.gate
	}
	return model.Score{
		Kind:         kind,
		Day:          day,
		Overall:      50 + n,
		ComputedAt:   time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		DataComplete: true,
	}, nil
}

func (e *gatedEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computes
}

type fakeCache struct {
	mu     sync.Mutex
	scores map[model.Key]model.Score
	puts   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{scores: make(map[model.Key]model.Score)}
}

func (f *fakeCache) Get(_ context.Context, key model.Key) (model.Score, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scores[key]
	return s, ok, nil
}

func (f *fakeCache) Put(_ context.Context, key model.Key, score model.Score) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[key] = score
	f.puts++
	return nil
}

func (f *fakeCache) ListRecent(_ context.Context, kind model.ScoreKind, offset, limit int) ([]model.Score, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Score
	for _, s := range f.scores {
		if s.Kind == kind {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Day > all[j].Day })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeCache) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

// gatedCache lets a test hold the first publish open, racing
// invalidations against the cache write itself rather than the compute.
type gatedCache struct {
	*fakeCache
	gateMu  sync.Mutex
	gated   int
	started chan struct{}
	gate    chan struct{}
}

func (g *gatedCache) Put(ctx context.Context, key model.Key, score model.Score) error {
	g.gateMu.Lock()
	g.gated++
	n := g.gated
	g.gateMu.Unlock()

	if n == 1 {
		close(g.started)
		<-g.gate
	}
	return g.fakeCache.Put(ctx, key, score)
}

func hrvSample(day string) model.Sample {
	ts, _ := time.ParseInLocation("2006-01-02", day, time.Local)
	return model.Sample{Kind: model.MetricHRV, TS: ts.Add(7 * time.Hour), Value: 48}
}

func recv(c <-chan model.Score) (model.Score, bool) {
	select {
	case s := <-c:
		return s, true
	case <-time.After(waitFor):
		return model.Score{}, false
	}
}

func TestCoordinatorRecompute(t *testing.T) {
	_ = logging.Init()

	Convey("Given a running coordinator", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		samples := newFakeSamples()
		cache := newFakeCache()
		engine := &gatedEngine{}
		now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)
		c := coordinator.New(samples, newFakeBaselines(), engine, cache, queue.NewInMemoryQueue(),
			coordinator.WithWorkerCount(1),
			coordinator.WithClock(func() time.Time { return now }),
		)
		published := c.Subscribe()
		c.Start(ctx)

		Convey("When a sample arrives", func() {
			s := hrvSample("2026-03-10")
			samples.add(s)
			c.Notify(ctx, []model.Sample{s})

			Convey("Then the recovery score for its day gets recomputed and published", func() {
				score, ok := recv(published)
				So(ok, ShouldBeTrue)
				So(score.Kind, ShouldEqual, model.ScoreRecovery)
				So(score.Day, ShouldEqual, model.DayKey("2026-03-10"))

				cached, found, err := cache.Get(ctx, score.Key())
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(cached.Overall, ShouldEqual, score.Overall)

				Convey("And freshness reads recently updated", func() {
					view := c.Freshness(ctx, model.ScoreRecovery, model.DayKey("2026-03-10"))
					So(view.Status, ShouldEqual, coordinator.StatusRecentlyUpdated)
				})
			})

			Convey("Then a sleep metric it does not carry stays silent", func() {
				view := c.Freshness(ctx, model.ScoreSleep, model.DayKey("2026-03-10"))
				So(view.Status, ShouldEqual, coordinator.StatusSilent)
			})
		})
	})
}

func TestCoordinatorCoalescing(t *testing.T) {
	_ = logging.Init()

	Convey("Given a coordinator whose workers have not started", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		c := coordinator.New(newFakeSamples(), newFakeBaselines(), &gatedEngine{}, newFakeCache(), q)

		Convey("When the same key is invalidated repeatedly", func() {
			s := hrvSample("2026-03-10")
			for i := 0; i < 5; i++ {
				c.Notify(ctx, []model.Sample{s})
			}

			Convey("Then only one recompute task is queued", func() {
				So(q.Len(ctx), ShouldEqual, 1)
			})

			Convey("And the key reports computing", func() {
				view := c.Freshness(ctx, model.ScoreRecovery, model.DayKey("2026-03-10"))
				So(view.Status, ShouldEqual, coordinator.StatusComputing)
			})
		})
	})
}

func TestCoordinatorSupersede(t *testing.T) {
	_ = logging.Init()

	Convey("Given a compute held open by the engine", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		engine := &gatedEngine{
			started: make(chan struct{}),
			gate:    make(chan struct{}),
		}
		cache := newFakeCache()
		c := coordinator.New(newFakeSamples(), newFakeBaselines(), engine, cache, queue.NewInMemoryQueue(),
			coordinator.WithWorkerCount(1),
		)
		published := c.Subscribe()
		c.Start(ctx)

		s := hrvSample("2026-03-10")
		c.Notify(ctx, []model.Sample{s})
		<-engine.started

		Convey("When another sample for the key lands mid-compute", func() {
			c.Notify(ctx, []model.Sample{s})
			close(engine.gate)

			Convey("Then the stale result is discarded and exactly one score is published", func() {
				score, ok := recv(published)
				So(ok, ShouldBeTrue)

				// Overall encodes the compute ordinal: the published value
				// must come from the second run.
				So(score.Overall, ShouldEqual, 52)
				So(engine.count(), ShouldEqual, 2)
				So(cache.putCount(), ShouldEqual, 1)
			})
		})
	})
}

func TestCoordinatorPublishOrdering(t *testing.T) {
	_ = logging.Init()

	Convey("Given a publish held open by the cache", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		engine := &gatedEngine{}
		cache := &gatedCache{
			fakeCache: newFakeCache(),
			started:   make(chan struct{}),
			gate:      make(chan struct{}),
		}
		c := coordinator.New(newFakeSamples(), newFakeBaselines(), engine, cache, queue.NewInMemoryQueue(),
			coordinator.WithWorkerCount(2),
		)
		published := c.Subscribe()
		c.Start(ctx)

		s := hrvSample("2026-03-10")
		c.Notify(ctx, []model.Sample{s})
		<-cache.started

		Convey("When another sample for the key lands mid-publish", func() {
			c.Notify(ctx, []model.Sample{s})
			close(cache.gate)

			Convey("Then the newer compute wins and its value is what the cache keeps", func() {
				score, ok := recv(published)
				So(ok, ShouldBeTrue)

				// Overall encodes the compute ordinal: only the follow-up
				// run may reach subscribers, and the delayed first write
				// must not remain in the cache over it.
				So(score.Overall, ShouldEqual, 52)
				So(engine.count(), ShouldEqual, 2)

				key := model.Key{Day: model.DayKey("2026-03-10"), Kind: model.ScoreRecovery}
				cached, found, err := cache.Get(ctx, key)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(cached.Overall, ShouldEqual, 52)
			})
		})
	})
}

func TestCoordinatorSeedBeyondOnePage(t *testing.T) {
	_ = logging.Init()

	Convey("Given a durable cache holding months of published scores", t, func() {
		ctx := context.Background()
		cache := newFakeCache()
		first := model.DayKey("2026-01-01")
		for i := 0; i < 80; i++ {
			key := model.Key{Day: first.AddDays(i), Kind: model.ScoreRecovery}
			_ = cache.Put(ctx, key, model.Score{
				Kind: key.Kind, Day: key.Day, Overall: 60,
				ComputedAt: time.Now(), DataComplete: true,
			})
		}

		q := queue.NewInMemoryQueue()
		c := coordinator.New(newFakeSamples(), newFakeBaselines(), &gatedEngine{}, cache, q)

		Convey("When a late sample lands inside the oldest days' baseline windows", func() {
			c.Notify(ctx, []model.Sample{hrvSample("2026-01-02")})

			Convey("Then the sample's own day and every published day in reach recompute", func() {
				So(q.Len(ctx), ShouldEqual, 15)
			})
		})
	})
}

func TestCoordinatorLaterDayInvalidation(t *testing.T) {
	_ = logging.Init()

	Convey("Given a cached score three days after an incoming sample", t, func() {
		ctx := context.Background()
		cache := newFakeCache()
		later := model.Key{Day: model.DayKey("2026-03-13"), Kind: model.ScoreRecovery}
		_ = cache.Put(ctx, later, model.Score{
			Kind: model.ScoreRecovery, Day: later.Day, Overall: 60,
			ComputedAt: time.Now(), DataComplete: true,
		})

		q := queue.NewInMemoryQueue()
		baselines := newFakeBaselines()
		c := coordinator.New(newFakeSamples(), baselines, &gatedEngine{}, cache, q)

		Convey("When the earlier sample arrives", func() {
			c.Notify(ctx, []model.Sample{hrvSample("2026-03-10")})

			Convey("Then both the sample's day and the cached later day are queued", func() {
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And the metric's baselines were invalidated", func() {
				So(baselines.invalidations(model.MetricHRV), ShouldEqual, 1)
			})
		})

		Convey("When a sample lands outside the later day's trailing window", func() {
			c.Notify(ctx, []model.Sample{hrvSample("2026-02-01")})

			Convey("Then only the sample's own day is queued", func() {
				So(q.Len(ctx), ShouldEqual, 1)
			})
		})
	})
}

func TestCoordinatorFreshnessStates(t *testing.T) {
	_ = logging.Init()

	Convey("Given a coordinator with a fixed clock", t, func() {
		ctx := context.Background()
		cache := newFakeCache()
		now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.Local)
		c := coordinator.New(newFakeSamples(), newFakeBaselines(), &gatedEngine{}, cache, queue.NewInMemoryQueue(),
			coordinator.WithClock(func() time.Time { return now }),
			coordinator.WithMorningWindow(5, 11),
		)

		Convey("Then an untouched key is silent inside the morning sync window", func() {
			view := c.Freshness(ctx, model.ScoreRecovery, model.DayKey("2026-03-10"))
			So(view.Status, ShouldEqual, coordinator.StatusSilent)
			So(view.MorningSyncWindow, ShouldBeTrue)
		})

		Convey("Then a cached incomplete score reads waiting for data", func() {
			key := model.Key{Day: model.DayKey("2026-03-10"), Kind: model.ScoreSleep}
			_ = cache.Put(ctx, key, model.Score{
				Kind: key.Kind, Day: key.Day, Overall: 12,
				ComputedAt: now, DataComplete: false,
			})
			view := c.Freshness(ctx, model.ScoreSleep, key.Day)
			So(view.Status, ShouldEqual, coordinator.StatusWaitingForData)
		})
	})
}

func TestCoordinatorShutdown(t *testing.T) {
	_ = logging.Init()

	Convey("Given a running coordinator with queued work", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cache := newFakeCache()
		c := coordinator.New(newFakeSamples(), newFakeBaselines(), &gatedEngine{}, cache, queue.NewInMemoryQueue(),
			coordinator.WithWorkerCount(2),
		)
		published := c.Subscribe()
		c.Start(ctx)
		c.Notify(ctx, []model.Sample{hrvSample("2026-03-10")})

		Convey("When shutting down", func() {
			_, ok := recv(published)
			So(ok, ShouldBeTrue)

			shutdownCtx, done := context.WithTimeout(context.Background(), waitFor)
			defer done()

			Convey("Then in-flight work drains cleanly", func() {
				So(c.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}
