package testsamples

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/somacore/soma/internal/domain/model"
	"github.com/somacore/soma/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
)

// Physiological base ranges used to seed a per-run profile. Each run
// simulates one wearer, so day-to-day values drift around a fixed
// personal baseline instead of being independently random.
const (
	hrvBaseMin         = 40.0
	hrvBaseRange       = 45.0
	rhrBaseMin         = 48.0
	rhrBaseRange       = 20.0
	walkingHROffset    = 45.0
	sleepingHROffset   = -5.0
	respRateBaseMin    = 12.0
	respRateBaseRange  = 5.0
	spo2BaseMin        = 95.0
	spo2BaseRange      = 3.0
	sleepBaseMin       = 380.0
	sleepBaseRange     = 130.0
	deepSleepFraction  = 0.18
	remSleepFraction   = 0.22
	bedEfficiencyMin   = 0.86
	bedEfficiencyRange = 0.10
	bedtimeBaseMin     = 600.0 // 22:00 as minutes after noon
	bedtimeBaseRange   = 120.0

	dailyJitterFraction      = 0.12
	readingJitterFraction    = 0.05
	continuousReadingsPerDay = 4
)

// profile is the simulated wearer's personal baseline per metric.
type profile map[model.MetricKind]float64

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// newProfile seeds personal baselines for one simulated wearer.
func newProfile() profile {
	p := profile{}
	p[model.MetricHRV] = hrvBaseMin + getRandomFloat()*hrvBaseRange
	p[model.MetricRestingHeartRate] = rhrBaseMin + getRandomFloat()*rhrBaseRange
	p[model.MetricWalkingHeartRate] = p[model.MetricRestingHeartRate] + walkingHROffset
	p[model.MetricSleepingHeartRate] = p[model.MetricRestingHeartRate] + sleepingHROffset
	p[model.MetricRespiratoryRate] = respRateBaseMin + getRandomFloat()*respRateBaseRange
	p[model.MetricOxygenSaturation] = spo2BaseMin + getRandomFloat()*spo2BaseRange
	p[model.MetricSleepDuration] = sleepBaseMin + getRandomFloat()*sleepBaseRange
	p[model.MetricBedtime] = bedtimeBaseMin + getRandomFloat()*bedtimeBaseRange
	return p
}

// generateSamples creates a realistic trailing history for one wearer,
// ending on the current local day.
func generateSamples(ctx context.Context, config *Config, stats *Stats) ([]SampleInput, error) {
	logger.Get().Info(ctx, "generating biometric samples",
		logger.Int("numDays", config.NumDays))

	p := newProfile()
	today := model.NewDayKey(time.Now())
	samples := make([]SampleInput, 0, config.NumDays*16)

	for off := config.NumDays - 1; off >= 0; off-- {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		samples = append(samples, generateDay(p, today.AddDays(-off))...)
	}

	stats.SamplesGenerated = len(samples)
	logger.Get().Info(ctx, "generated samples successfully", logger.Int("count", len(samples)))

	return samples, nil
}

// generateDay produces one day of readings: several overnight readings
// for the continuous metrics and a single summary reading for each
// sleep metric.
func generateDay(p profile, day model.DayKey) []SampleInput {
	midnight := day.Time()
	out := make([]SampleInput, 0, 16)

	// Continuous overnight metrics, read a few times between 00:30 and 06:30.
	continuous := []model.MetricKind{
		model.MetricHRV,
		model.MetricRestingHeartRate,
		model.MetricSleepingHeartRate,
		model.MetricRespiratoryRate,
		model.MetricOxygenSaturation,
	}
	for _, kind := range continuous {
		dayValue := jitter(p[kind], dailyJitterFraction)
		for i := 0; i < continuousReadingsPerDay; i++ {
			ts := midnight.Add(30*time.Minute + time.Duration(i)*90*time.Minute)
			out = append(out, SampleInput{
				Kind:  string(kind),
				TS:    ts.Format(time.RFC3339),
				Value: round1(jitter(dayValue, readingJitterFraction)),
			})
		}
	}

	// Walking heart rate lands during the afternoon.
	out = append(out, SampleInput{
		Kind:  string(model.MetricWalkingHeartRate),
		TS:    midnight.Add(15 * time.Hour).Format(time.RFC3339),
		Value: round1(jitter(p[model.MetricWalkingHeartRate], dailyJitterFraction)),
	})

	// Sleep summary metrics, timestamped at wake-up.
	wake := midnight.Add(7 * time.Hour)
	sleep := jitter(p[model.MetricSleepDuration], dailyJitterFraction)
	efficiency := bedEfficiencyMin + getRandomFloat()*bedEfficiencyRange
	summary := []SampleInput{
		{Kind: string(model.MetricSleepDuration), Value: round1(sleep)},
		{Kind: string(model.MetricDeepSleepDuration), Value: round1(sleep * jitter(deepSleepFraction, dailyJitterFraction))},
		{Kind: string(model.MetricREMSleepDuration), Value: round1(sleep * jitter(remSleepFraction, dailyJitterFraction))},
		{Kind: string(model.MetricTimeInBed), Value: round1(sleep / efficiency)},
		{Kind: string(model.MetricBedtime), Value: round1(jitter(p[model.MetricBedtime], readingJitterFraction))},
	}
	for i := range summary {
		summary[i].TS = wake.Format(time.RFC3339)
		out = append(out, summary[i])
	}

	return out
}

// jitter shifts v by up to +/- fraction of itself.
func jitter(v, fraction float64) float64 {
	return v * (1 + (getRandomFloat()*2-1)*fraction)
}

// round1 rounds to one decimal place, matching typical provider precision.
func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
