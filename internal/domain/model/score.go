package model

import (
	"fmt"
	"time"
)

// ScoreKind identifies a composite scoring profile.
type ScoreKind string

const (
	ScoreRecovery ScoreKind = "recovery"
	ScoreSleep    ScoreKind = "sleep"
)

// AllScoreKinds lists every valid score kind.
var AllScoreKinds = []ScoreKind{ScoreRecovery, ScoreSleep}

// Valid reports whether k is a known score kind.
func (k ScoreKind) Valid() bool {
	return k == ScoreRecovery || k == ScoreSleep
}

// ParseScoreKind validates a string against the closed score kind set.
func ParseScoreKind(s string) (ScoreKind, error) {
	k := ScoreKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown score kind %q", s)
	}
	return k, nil
}

// Key addresses one composite score: a calendar day and a profile.
// It is the unit of cache ownership and recompute serialization.
type Key struct {
	Day  DayKey
	Kind ScoreKind
}

// String renders the key as "day/kind", e.g. "2026-03-01/recovery".
func (k Key) String() string {
	return string(k.Day) + "/" + string(k.Kind)
}

// Baseline is a rolling trailing-window mean for one metric, used as the
// personal reference point when scoring. The window ends the day before
// Day so that in-progress same-day data never inflates its own reference.
type Baseline struct {
	Kind        MetricKind `json:"kind"`
	Day         DayKey     `json:"day"`
	WindowDays  int        `json:"window_days"`
	Mean        float64    `json:"mean"`
	SampleCount int        `json:"sample_count"`
	ComputedAt  time.Time  `json:"computed_at"`
	// Available is true only when SampleCount met the minimum coverage
	// threshold; otherwise Mean is undefined and scoring must degrade.
	Available bool `json:"available"`
}

// Component is one weighted part of a composite score.
type Component struct {
	Name       string  `json:"name"`
	Weight     float64 `json:"weight"`
	Normalized float64 `json:"normalized"` // 0-100, clamped
	// Contribution is Weight * Normalized; the overall score is the
	// rounded sum of contributions.
	Contribution float64 `json:"contribution"`
	Raw          float64 `json:"raw"`
	// Complete is false when the component's required input was absent
	// and Normalized degraded to 0.
	Complete bool `json:"complete"`
}

// Score is an immutable composite score for one day. A new sample for the
// same day produces a new Score value that supersedes, never mutates,
// the old one.
type Score struct {
	Kind       ScoreKind   `json:"kind"`
	Day        DayKey      `json:"day"`
	Overall    int         `json:"overall"` // 0-100
	Components []Component `json:"components"`
	ComputedAt time.Time   `json:"computed_at"`
	// DataComplete is true iff every component had real input data.
	DataComplete bool `json:"data_complete"`
}

// Key returns the cache/coordination key for the score.
func (s Score) Key() Key {
	return Key{Day: s.Day, Kind: s.Kind}
}
