package scoring

import "github.com/somacore/soma/internal/domain/model"

// DailyValue collapses one day's samples for a metric into the single
// aggregate the profiles consume. Durations sum (naps add up), bedtime
// takes the latest report, and rate-like metrics average. Samples must
// already belong to one (kind, day); ordering by timestamp is expected
// for the bedtime case.
func DailyValue(kind model.MetricKind, samples []model.Sample) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	switch kind {
	case model.MetricSleepDuration, model.MetricDeepSleepDuration,
		model.MetricREMSleepDuration, model.MetricTimeInBed:
		var sum float64
		for _, s := range samples {
			sum += s.Value
		}
		return sum, true
	case model.MetricBedtime:
		return samples[len(samples)-1].Value, true
	case model.MetricHRV, model.MetricRestingHeartRate, model.MetricWalkingHeartRate,
		model.MetricSleepingHeartRate, model.MetricRespiratoryRate, model.MetricOxygenSaturation:
		var sum float64
		for _, s := range samples {
			sum += s.Value
		}
		return sum / float64(len(samples)), true
	default:
		return 0, false
	}
}

// RequiredMetrics lists the metric kinds a scoring profile reads, used by
// callers assembling Inputs (day aggregates and baselines) ahead of a
// recompute. The baseline tracker is consulted once per listed metric per
// invalidation cycle, never per component.
func RequiredMetrics(kind model.ScoreKind) []model.MetricKind {
	switch kind {
	case model.ScoreRecovery:
		return []model.MetricKind{
			model.MetricHRV,
			model.MetricRestingHeartRate,
			model.MetricSleepingHeartRate,
			model.MetricWalkingHeartRate,
			model.MetricRespiratoryRate,
			model.MetricOxygenSaturation,
			model.MetricSleepDuration,
			model.MetricDeepSleepDuration,
			model.MetricREMSleepDuration,
			model.MetricTimeInBed,
			model.MetricBedtime,
		}
	case model.ScoreSleep:
		return []model.MetricKind{
			model.MetricSleepDuration,
			model.MetricDeepSleepDuration,
			model.MetricREMSleepDuration,
			model.MetricTimeInBed,
			model.MetricBedtime,
		}
	default:
		return nil
	}
}
