package scoring

import (
	"math"

	"github.com/somacore/soma/internal/domain/model"
)

// Sleep profile component names.
const (
	CompSleepDuration      = "duration"
	CompDeepSleep          = "deep_sleep"
	CompREMSleep           = "rem_sleep"
	CompSleepEfficiency    = "efficiency"
	CompBedtimeConsistency = "bedtime_consistency"
)

// Sleep profile top-level weights. They sum to 1.0.
const (
	weightSleepDuration      = 0.30
	weightDeepSleep          = 0.25
	weightREMSleep           = 0.20
	weightSleepEfficiency    = 0.15
	weightBedtimeConsistency = 0.10
)

// Per-component raw point scales. Components are first scored on these
// scales, then normalized to 0-100 before the top-level weighted sum.
// Mixing raw points into the weighted sum is the defect this layout
// exists to prevent.
const (
	durationMaxPoints    = 30.0
	deepMaxPoints        = 25.0
	remMaxPoints         = 20.0
	efficiencyMaxPoints  = 15.0
	consistencyMaxPoints = 10.0
)

// durationPoints scores total asleep minutes on the 0-30 scale.
func durationPoints(asleepMin float64) float64 {
	switch {
	case asleepMin >= 480:
		return 30
	case asleepMin >= 450:
		return 27
	case asleepMin >= 420:
		return 24
	case asleepMin >= 390:
		return 20
	case asleepMin >= 360:
		return 16
	case asleepMin >= 300:
		return 12
	case asleepMin >= 240:
		return 8
	case asleepMin >= 120:
		return 5
	default:
		return 0
	}
}

// deepPoints scores the deep-sleep share of asleep time (percent) on 0-25.
func deepPoints(propPct float64) float64 {
	switch {
	case propPct >= 20:
		return 25
	case propPct >= 17:
		return 21
	case propPct >= 14:
		return 16
	case propPct >= 10:
		return 11
	case propPct >= 6:
		return 6
	case propPct >= 3:
		return 3
	default:
		return 0
	}
}

// remPoints scores the REM share of asleep time (percent) on 0-20.
func remPoints(propPct float64) float64 {
	switch {
	case propPct >= 25:
		return 20
	case propPct >= 22:
		return 16
	case propPct >= 18:
		return 12
	case propPct >= 12:
		return 8
	case propPct >= 8:
		return 5
	case propPct >= 3:
		return 3
	default:
		return 0
	}
}

// efficiencyPoints scores asleep/in-bed percentage on 0-15.
func efficiencyPoints(effPct float64) float64 {
	switch {
	case effPct >= 92:
		return 15
	case effPct >= 88:
		return 12
	case effPct >= 85:
		return 10
	case effPct >= 80:
		return 7
	case effPct >= 70:
		return 4
	case effPct >= 50:
		return 2
	default:
		return 0
	}
}

// consistencyPoints scores bedtime drift from the trailing baseline
// (absolute minutes) on 0-10.
func consistencyPoints(driftMin float64) float64 {
	switch {
	case driftMin <= 15:
		return 10
	case driftMin <= 30:
		return 8
	case driftMin <= 45:
		return 6
	case driftMin <= 60:
		return 4
	case driftMin <= 90:
		return 2
	default:
		return 0
	}
}

// pointsComponent builds a complete sleep component from raw points on its
// own scale. Raw carries the points; Normalized carries points rescaled to
// the shared 0-100 scale.
func pointsComponent(name string, weight, points, maxPoints float64) model.Component {
	return model.Component{
		Name:       name,
		Weight:     weight,
		Normalized: clamp01x100(points / maxPoints * maxComponentNorm),
		Raw:        points,
		Complete:   true,
	}
}

// sleep computes the Sleep profile for one day.
func (e *CompositeEngine) sleep(day model.DayKey, in Inputs) model.Score {
	components := make([]model.Component, 0, 5)

	asleep, hasAsleep := in.value(model.MetricSleepDuration)

	// Duration.
	if hasAsleep {
		components = append(components, pointsComponent(CompSleepDuration, weightSleepDuration, durationPoints(asleep), durationMaxPoints))
	} else {
		components = append(components, missing(CompSleepDuration, weightSleepDuration, 0))
	}

	// Deep sleep share.
	if deep, ok := in.value(model.MetricDeepSleepDuration); ok && hasAsleep {
		components = append(components, pointsComponent(CompDeepSleep, weightDeepSleep, deepPoints(share(deep, asleep)), deepMaxPoints))
	} else {
		components = append(components, missing(CompDeepSleep, weightDeepSleep, 0))
	}

	// REM share.
	if rem, ok := in.value(model.MetricREMSleepDuration); ok && hasAsleep {
		components = append(components, pointsComponent(CompREMSleep, weightREMSleep, remPoints(share(rem, asleep)), remMaxPoints))
	} else {
		components = append(components, missing(CompREMSleep, weightREMSleep, 0))
	}

	// Efficiency.
	if tib, ok := in.value(model.MetricTimeInBed); ok && hasAsleep && tib > 0 {
		components = append(components, pointsComponent(CompSleepEfficiency, weightSleepEfficiency, efficiencyPoints(share(asleep, tib)), efficiencyMaxPoints))
	} else {
		components = append(components, missing(CompSleepEfficiency, weightSleepEfficiency, 0))
	}

	// Bedtime consistency against the trailing baseline.
	bedtime, hasBedtime := in.value(model.MetricBedtime)
	if base, ok := in.baseline(model.MetricBedtime); ok && hasBedtime {
		drift := math.Abs(bedtime - base.Mean)
		components = append(components, pointsComponent(CompBedtimeConsistency, weightBedtimeConsistency, consistencyPoints(drift), consistencyMaxPoints))
	} else {
		components = append(components, missing(CompBedtimeConsistency, weightBedtimeConsistency, 0))
	}

	return e.compose(model.ScoreSleep, day, components)
}

// share returns part/whole as a percentage, 0 when the whole is empty.
func share(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}
