// Package scoring turns one day's biometric aggregates and baselines into
// composite 0-100 scores. The engine is pure: identical inputs produce
// bit-identical scores, and missing data degrades components instead of
// failing.
package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/somacore/soma/internal/domain/model"
)

// Inputs carries one day's per-metric aggregates plus the baselines the
// profiles need. Absence from Values means the metric had no sample that
// day; absence from Baselines (or an unavailable baseline) means the
// trailing window was under-covered.
type Inputs struct {
	Values    map[model.MetricKind]float64
	Baselines map[model.MetricKind]model.Baseline
}

// value returns the day aggregate for a metric, if present.
func (in Inputs) value(k model.MetricKind) (float64, bool) {
	v, ok := in.Values[k]
	return v, ok
}

// baseline returns the baseline for a metric only when it is available
// and its mean is usable as a divisor.
func (in Inputs) baseline(k model.MetricKind) (model.Baseline, bool) {
	b, ok := in.Baselines[k]
	if !ok || !b.Available || b.Mean <= 0 {
		return model.Baseline{}, false
	}
	return b, true
}

// Diagnostics labels why a profile's components will degrade: a wrapped
// ErrMissingSample for each required metric absent from Values and a
// wrapped ErrInsufficientBaseline for each unusable baseline. The engine
// itself never fails on these; callers log them against incomplete scores.
func (in Inputs) Diagnostics(kind model.ScoreKind) []error {
	var errs []error
	for _, mk := range RequiredMetrics(kind) {
		if _, ok := in.value(mk); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSample, mk))
		}
		if _, ok := in.baseline(mk); !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInsufficientBaseline, mk))
		}
	}
	return errs
}

// Engine computes a composite score for a (kind, day) from prepared inputs.
type Engine interface {
	Score(ctx context.Context, kind model.ScoreKind, day model.DayKey, in Inputs) (model.Score, error)
}

// Option applies a configuration option to the CompositeEngine.
type Option func(*CompositeEngine)

// WithGrowthCurve overrides the baseline-ratio curve calibration.
// Invalid curves (broken monotonicity or anchor) are ignored.
func WithGrowthCurve(c GrowthCurve) Option {
	return func(e *CompositeEngine) {
		if c.valid() {
			e.curve = c
		}
	}
}

// WithClock overrides the clock stamped into produced scores.
func WithClock(now func() time.Time) Option {
	return func(e *CompositeEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// CompositeEngine implements Engine for the recovery and sleep profiles.
type CompositeEngine struct {
	curve GrowthCurve
	now   func() time.Time
}

// NewCompositeEngine creates an engine with the default curve calibration.
func NewCompositeEngine(opts ...Option) *CompositeEngine {
	e := &CompositeEngine{
		curve: DefaultGrowthCurve(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score dispatches to the profile for kind. The switch is exhaustive over
// the closed ScoreKind set; an unknown kind is a programming error.
func (e *CompositeEngine) Score(ctx context.Context, kind model.ScoreKind, day model.DayKey, in Inputs) (model.Score, error) {
	if err := ctx.Err(); err != nil {
		return model.Score{}, fmt.Errorf("scoring cancelled: %w", err)
	}
	switch kind {
	case model.ScoreRecovery:
		return e.recovery(day, in), nil
	case model.ScoreSleep:
		return e.sleep(day, in), nil
	default:
		return model.Score{}, fmt.Errorf("%w: %q", ErrUnknownScoreKind, kind)
	}
}

// compose assembles the final immutable score from ordered components.
// The overall value is the rounded sum of contributions, each of which is
// weight x normalized on the 0-100 scale. Raw point scales never reach
// this sum.
func (e *CompositeEngine) compose(kind model.ScoreKind, day model.DayKey, components []model.Component) model.Score {
	var sum float64
	complete := true
	for i := range components {
		components[i].Contribution = components[i].Weight * components[i].Normalized
		sum += components[i].Contribution
		if !components[i].Complete {
			complete = false
		}
	}
	overall := int(math.Round(sum))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}
	return model.Score{
		Kind:         kind,
		Day:          day,
		Overall:      overall,
		Components:   components,
		ComputedAt:   e.now().UTC(),
		DataComplete: complete,
	}
}

// missing builds the degraded form of a component whose required input
// was absent: zero contribution, completeness false.
func missing(name string, weight, raw float64) model.Component {
	return model.Component{Name: name, Weight: weight, Normalized: 0, Raw: raw, Complete: false}
}
