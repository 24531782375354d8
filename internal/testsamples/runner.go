package testsamples

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/somacore/soma/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete sample load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting soma sample test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("days", config.NumDays),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate samples
	samples, err := generateSamples(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("sample generation failed: %w", err)
	}

	// Step 3: Submit samples concurrently
	if err := submitSamples(ctx, config, samples, stats); err != nil {
		return fmt.Errorf("sample submission failed: %w", err)
	}

	// Step 4: Wait for recomputation to settle
	logger.Get().Info(ctx, "waiting for scores to be recomputed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve scores concurrently
	results, err := retrieveScores(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("score retrieval failed: %w", err)
	}

	// Step 6: Check baseline diagnostics
	if err := checkBaseline(ctx, config); err != nil {
		return fmt.Errorf("baseline check failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(ctx, config, results, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save samples to file
	if err := saveSamplesToFile(ctx, config, samples); err != nil {
		logger.Get().Warn(ctx, "failed to save samples to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveSamplesToFile saves the generated samples to a JSON file.
func saveSamplesToFile(ctx context.Context, config *Config, samples []SampleInput) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_samples_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write samples to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, sample := range samples {
		jsonData, err := marshalJSON(sample)
		if err != nil {
			return fmt.Errorf("failed to marshal sample %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write sample %d: %w", i, err)
		}

		// Add comma except for last sample
		if i < len(samples)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "samples saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var acceptRate, samplesPerSecond float64

	if stats.SamplesSubmitted > 0 {
		acceptRate = float64(stats.SamplesAccepted) / float64(stats.SamplesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		samplesPerSecond = float64(stats.SamplesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("samplesGenerated", stats.SamplesGenerated),
		logger.Int("samplesSubmitted", stats.SamplesSubmitted),
		logger.Int("samplesAccepted", stats.SamplesAccepted),
		logger.Int("samplesDuplicate", stats.SamplesDuplicate),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("scoresRetrieved", stats.ScoresRetrieved),
		logger.Int("scoresMissing", stats.ScoresMissing),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("samplesPerSecond", samplesPerSecond))
}
