package scoring

import "math"

// Default growth curve calibration. The anchor is fixed by contract
// (ratio 1.0 scores 75); the gains are tunable via configuration. With
// these values a 20% improvement over baseline reaches 100 and a 50%
// deterioration reaches 0.
const (
	curveAnchor      = 75.0
	defaultUpGain    = 125.0
	defaultDownGain  = 150.0
	maxComponentNorm = 100.0
)

// GrowthCurve maps a baseline ratio to a 0-100 component score. The ratio
// is oriented so that values above 1.0 are "good" regardless of metric
// polarity (callers invert lower-is-better metrics before scoring).
// The curve is monotonic non-decreasing in the ratio, anchored at
// (1.0, Anchor), and clamped to [0, 100].
type GrowthCurve struct {
	Anchor   float64
	UpGain   float64 // points gained per unit of ratio above 1.0
	DownGain float64 // points lost per unit of ratio below 1.0
}

// DefaultGrowthCurve returns the documented default calibration.
func DefaultGrowthCurve() GrowthCurve {
	return GrowthCurve{Anchor: curveAnchor, UpGain: defaultUpGain, DownGain: defaultDownGain}
}

// valid reports whether the curve keeps its monotonicity contract.
func (c GrowthCurve) valid() bool {
	return c.Anchor > 0 && c.Anchor <= maxComponentNorm && c.UpGain >= 0 && c.DownGain >= 0
}

// Score maps a goodness ratio to a clamped 0-100 value.
func (c GrowthCurve) Score(ratio float64) float64 {
	if math.IsNaN(ratio) || ratio <= 0 {
		return 0
	}
	var s float64
	if ratio >= 1 {
		s = c.Anchor + (ratio-1)*c.UpGain
	} else {
		s = c.Anchor - (1-ratio)*c.DownGain
	}
	return clamp01x100(s)
}

// clamp01x100 clamps v to the [0, 100] normalized component scale.
func clamp01x100(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(maxComponentNorm, v))
}
