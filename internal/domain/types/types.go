// Package types contains common types used across the application
package types

import "time"

// ComponentView is one weighted component of a score as returned by the API.
type ComponentView struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Normalized   float64 `json:"normalized"`
	Contribution float64 `json:"contribution"`
	Raw          float64 `json:"raw"`
	Complete     bool    `json:"complete"`
	// Band is a qualitative label where one applies (stress only).
	Band string `json:"band,omitempty"`
}

// ScoreView is a composite score as returned by the query API.
type ScoreView struct {
	Kind         string          `json:"kind"`
	Day          string          `json:"day"`
	Overall      int             `json:"overall"`
	Components   []ComponentView `json:"components"`
	ComputedAt   time.Time       `json:"computed_at"`
	DataComplete bool            `json:"data_complete"`
}

// FreshnessView reports how current a cached score is.
type FreshnessView struct {
	Kind   string `json:"kind"`
	Day    string `json:"day"`
	Status string `json:"status"` // silent | recently_updated | waiting_for_data | computing
	// MorningSyncWindow is true when the local time falls inside the
	// configured window where provider syncs usually land; presentation
	// layers use it to tune "waiting for data" messaging.
	MorningSyncWindow bool `json:"morning_sync_window"`
}

// BaselineView is a rolling baseline as returned by the diagnostics API.
type BaselineView struct {
	Kind        string    `json:"kind"`
	Day         string    `json:"day"`
	WindowDays  int       `json:"window_days"`
	Mean        float64   `json:"mean"`
	SampleCount int       `json:"sample_count"`
	ComputedAt  time.Time `json:"computed_at"`
	Available   bool      `json:"available"`
	Unit        string    `json:"unit"`
}
