package coordinator

import (
	"time"

	"github.com/somacore/soma/pkg/logger"
)

// Default coordinator configuration constants.
const (
	defaultWindowDays  = 14
	defaultFreshFor    = 30 * time.Minute
	defaultMorningFrom = 5
	defaultMorningTo   = 11
	defaultWorkerCount = 4
	seedPageSize       = 64
	subscriberBuffer   = 16
)

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithWindowDays sets how many later days one sample can re-invalidate.
// It should match the baseline tracker's trailing window.
func WithWindowDays(days int) Option {
	return func(c *Coordinator) {
		if days > 0 {
			c.windowDays = days
		}
	}
}

// WithFreshFor sets how long after a publish the freshness status reads
// recently_updated.
func WithFreshFor(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.freshFor = d
		}
	}
}

// WithMorningWindow sets the local hours [from, to) treated as the
// usual provider sync window.
func WithMorningWindow(from, to int) Option {
	return func(c *Coordinator) {
		if from >= 0 && to <= 24 && from < to {
			c.morningFrom = from
			c.morningTo = to
		}
	}
}

// WithWorkerCount sets how many recompute workers Start launches.
func WithWorkerCount(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithClock overrides the coordinator's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}
