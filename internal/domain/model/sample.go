// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// dayLayout is the canonical calendar-day format for DayKey values.
const dayLayout = "2006-01-02"

// MetricKind identifies a biometric metric. The set is closed; downstream
// switches over MetricKind are exhaustive.
type MetricKind string

const (
	MetricHRV               MetricKind = "hrv"
	MetricRestingHeartRate  MetricKind = "resting_heart_rate"
	MetricWalkingHeartRate  MetricKind = "walking_heart_rate"
	MetricSleepingHeartRate MetricKind = "sleeping_heart_rate"
	MetricRespiratoryRate   MetricKind = "respiratory_rate"
	MetricOxygenSaturation  MetricKind = "oxygen_saturation"
	MetricSleepDuration     MetricKind = "sleep_duration"
	MetricDeepSleepDuration MetricKind = "deep_sleep_duration"
	MetricREMSleepDuration  MetricKind = "rem_sleep_duration"
	MetricTimeInBed         MetricKind = "time_in_bed"
	// MetricBedtime is recorded as minutes after 12:00 local time so that
	// bedtimes crossing midnight stay on a continuous scale (23:30 -> 690,
	// 00:30 -> 750).
	MetricBedtime MetricKind = "bedtime"
)

// AllMetricKinds lists every valid metric kind.
var AllMetricKinds = []MetricKind{
	MetricHRV,
	MetricRestingHeartRate,
	MetricWalkingHeartRate,
	MetricSleepingHeartRate,
	MetricRespiratoryRate,
	MetricOxygenSaturation,
	MetricSleepDuration,
	MetricDeepSleepDuration,
	MetricREMSleepDuration,
	MetricTimeInBed,
	MetricBedtime,
}

// Valid reports whether k is a known metric kind.
func (k MetricKind) Valid() bool {
	switch k {
	case MetricHRV, MetricRestingHeartRate, MetricWalkingHeartRate,
		MetricSleepingHeartRate, MetricRespiratoryRate, MetricOxygenSaturation,
		MetricSleepDuration, MetricDeepSleepDuration, MetricREMSleepDuration,
		MetricTimeInBed, MetricBedtime:
		return true
	default:
		return false
	}
}

// Unit returns the display unit for the metric kind.
func (k MetricKind) Unit() string {
	switch k {
	case MetricHRV:
		return "ms"
	case MetricRestingHeartRate, MetricWalkingHeartRate, MetricSleepingHeartRate:
		return "bpm"
	case MetricRespiratoryRate:
		return "breaths/min"
	case MetricOxygenSaturation:
		return "%"
	case MetricSleepDuration, MetricDeepSleepDuration, MetricREMSleepDuration,
		MetricTimeInBed, MetricBedtime:
		return "min"
	default:
		return ""
	}
}

// DayKey is a calendar day in the user's local timezone, formatted as
// "2006-01-02". It is the temporal half of every score and cache key.
type DayKey string

// NewDayKey builds a DayKey from a point in time, using its location.
func NewDayKey(t time.Time) DayKey {
	return DayKey(t.Format(dayLayout))
}

// ParseDayKey validates and returns a DayKey from its string form.
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.ParseInLocation(dayLayout, s, time.Local); err != nil {
		return "", fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayKey(s), nil
}

// Time returns the midnight instant of the day in local time.
func (d DayKey) Time() time.Time {
	t, err := time.ParseInLocation(dayLayout, string(d), time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the day shifted by n calendar days.
func (d DayKey) AddDays(n int) DayKey {
	return NewDayKey(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
// The string form orders lexicographically by date.
func (d DayKey) Before(other DayKey) bool {
	return string(d) < string(other)
}

// Sample is a single raw biometric reading supplied by the external
// health-data provider. Samples are immutable and uniquely identified by
// (Kind, TS); multiple samples per day are expected.
type Sample struct {
	Kind  MetricKind
	TS    time.Time
	Value float64
}

// Fingerprint returns the identity used for ingest idempotency.
func (s Sample) Fingerprint() string {
	return string(s.Kind) + "@" + s.TS.UTC().Format(time.RFC3339Nano)
}

// Day returns the local calendar day the sample belongs to.
func (s Sample) Day() DayKey {
	return NewDayKey(s.TS.Local())
}
