package scoring

import (
	"math"

	"github.com/somacore/soma/internal/domain/model"
)

// Recovery profile component names.
const (
	CompHRV          = "hrv"
	CompRestingHR    = "resting_heart_rate"
	CompSleepQuality = "sleep_quality"
	CompStress       = "stress"
)

// Recovery profile top-level weights. They sum to 1.0.
const (
	weightHRV          = 0.50
	weightRestingHR    = 0.25
	weightSleepQuality = 0.15
	weightStress       = 0.10
)

// Sleep-quality sub-weights (reduced-granularity reuse of the Sleep
// profile's components).
const (
	subWeightEfficiency  = 0.30
	subWeightDeepREM     = 0.30
	subWeightHRDip       = 0.25
	subWeightConsistency = 0.15
)

// Per-metric sensitivity coefficients for the physiological stress
// component: small deviations in respiratory rate and oxygen saturation
// matter more than the same percentage shift in walking heart rate.
const (
	stressCoefWalkingHR = 1.2
	stressCoefRespRate  = 1.5
	stressCoefSpO2      = 2.0
)

// recovery computes the Recovery profile for one day.
func (e *CompositeEngine) recovery(day model.DayKey, in Inputs) model.Score {
	components := make([]model.Component, 0, 4)
	components = append(components, e.ratioComponent(CompHRV, weightHRV, in, model.MetricHRV, false))
	components = append(components, e.ratioComponent(CompRestingHR, weightRestingHR, in, model.MetricRestingHeartRate, true))
	components = append(components, sleepQualityComponent(in))
	components = append(components, stressComponent(in))
	return e.compose(model.ScoreRecovery, day, components)
}

// ratioComponent scores a metric on the baseline-ratio growth curve.
// For lower-is-better metrics the ratio is inverted so that ratio > 1
// still means "good". Raw carries the oriented ratio.
func (e *CompositeEngine) ratioComponent(name string, weight float64, in Inputs, metric model.MetricKind, lowerIsBetter bool) model.Component {
	v, hasValue := in.value(metric)
	base, hasBase := in.baseline(metric)
	if !hasValue || !hasBase || v <= 0 {
		return missing(name, weight, 0)
	}
	ratio := v / base.Mean
	if lowerIsBetter {
		ratio = base.Mean / v
	}
	return model.Component{
		Name:       name,
		Weight:     weight,
		Normalized: e.curve.Score(ratio),
		Raw:        ratio,
		Complete:   true,
	}
}

// sleepQualityComponent combines the sleep sub-scores at reduced
// granularity: efficiency, deep+REM share, overnight heart-rate dip, and
// bedtime consistency. Missing sub-inputs contribute 0 and mark the whole
// component incomplete; present sub-inputs still count, so a partially
// covered night produces a partial (flagged) value rather than nothing.
func sleepQualityComponent(in Inputs) model.Component {
	var sub float64
	complete := true

	asleep, hasAsleep := in.value(model.MetricSleepDuration)

	// Efficiency share of the sub-score.
	if tib, ok := in.value(model.MetricTimeInBed); ok && hasAsleep && tib > 0 {
		sub += subWeightEfficiency * (efficiencyPoints(share(asleep, tib)) / efficiencyMaxPoints * maxComponentNorm)
	} else {
		complete = false
	}

	// Deep + REM share.
	deep, hasDeep := in.value(model.MetricDeepSleepDuration)
	rem, hasREM := in.value(model.MetricREMSleepDuration)
	if hasDeep && hasREM && hasAsleep && asleep > 0 {
		points := deepPoints(share(deep, asleep)) + remPoints(share(rem, asleep))
		sub += subWeightDeepREM * (points / (deepMaxPoints + remMaxPoints) * maxComponentNorm)
	} else {
		complete = false
	}

	// Overnight heart-rate dip below the resting baseline.
	sleepHR, hasSleepHR := in.value(model.MetricSleepingHeartRate)
	if rhrBase, ok := in.baseline(model.MetricRestingHeartRate); ok && hasSleepHR {
		dipPct := (rhrBase.Mean - sleepHR) / rhrBase.Mean * 100
		sub += subWeightHRDip * hrDipScore(dipPct)
	} else {
		complete = false
	}

	// Bedtime consistency.
	bedtime, hasBedtime := in.value(model.MetricBedtime)
	if base, ok := in.baseline(model.MetricBedtime); ok && hasBedtime {
		drift := math.Abs(bedtime - base.Mean)
		sub += subWeightConsistency * (consistencyPoints(drift) / consistencyMaxPoints * maxComponentNorm)
	} else {
		complete = false
	}

	if !complete && sub == 0 {
		return missing(CompSleepQuality, weightSleepQuality, 0)
	}
	return model.Component{
		Name:       CompSleepQuality,
		Weight:     weightSleepQuality,
		Normalized: clamp01x100(sub),
		Raw:        sub,
		Complete:   complete,
	}
}

// hrDipScore maps the overnight heart-rate dip percentage to 0-100.
// A healthy dip is around 10% or more below the resting baseline; a
// sleeping heart rate above baseline is a recovery warning sign.
func hrDipScore(dipPct float64) float64 {
	switch {
	case dipPct >= 10:
		return 100
	case dipPct >= 7:
		return 80
	case dipPct >= 4:
		return 60
	case dipPct >= 1:
		return 40
	case dipPct >= 0:
		return 25
	default:
		return 10
	}
}

// stressMetrics orders the deviation metrics with their sensitivity
// coefficients.
var stressMetrics = []struct {
	kind model.MetricKind
	coef float64
}{
	{model.MetricWalkingHeartRate, stressCoefWalkingHR},
	{model.MetricRespiratoryRate, stressCoefRespRate},
	{model.MetricOxygenSaturation, stressCoefSpO2},
}

// stressComponent averages coefficient-weighted absolute deviations from
// baseline across the stress metrics and inverts onto the 0-100 scale.
// Raw carries the average weighted deviation percentage, which callers
// band via StressBand.
func stressComponent(in Inputs) model.Component {
	var total float64
	var counted int
	for _, m := range stressMetrics {
		v, hasValue := in.value(m.kind)
		base, hasBase := in.baseline(m.kind)
		if !hasValue || !hasBase {
			continue
		}
		total += math.Abs(v-base.Mean) / base.Mean * 100 * m.coef
		counted++
	}
	if counted == 0 {
		return missing(CompStress, weightStress, 0)
	}
	avg := total / float64(counted)
	return model.Component{
		Name:       CompStress,
		Weight:     weightStress,
		Normalized: clamp01x100(100 - avg),
		Raw:        avg,
		Complete:   counted == len(stressMetrics),
	}
}

// StressBand maps an average weighted deviation percentage to the
// user-facing interpretation band. Descriptive only; not part of the
// numeric contract.
func StressBand(avgWeightedDeviationPct float64) string {
	switch {
	case avgWeightedDeviationPct <= 3:
		return "excellent"
	case avgWeightedDeviationPct <= 8:
		return "good"
	case avgWeightedDeviationPct <= 15:
		return "elevated"
	default:
		return "high"
	}
}
