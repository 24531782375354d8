package testsamples

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/somacore/soma/internal/domain/model"
)

// scoreQuery identifies one (kind, day) score to retrieve.
type scoreQuery struct {
	kind model.ScoreKind
	day  model.DayKey
}

// retrieveScores reads back every daily score the submitted history
// should have produced, concurrently.
func retrieveScores(ctx context.Context, config *Config, stats *Stats) ([]ScoreResult, error) {
	queries := buildQueries(config.NumDays)
	log.Printf("📈 Retrieving %d scores with %d workers...", len(queries), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	results := make([]ScoreResult, len(queries))
	var (
		retrieved int64
		missing   int64
		failed    int64
	)

	// Create worker pool
	queryChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for index := range queryChan {
				select {
				case <-ctx.Done():
					return
				default:
					q := queries[index]
					result, found, err := retrieveSingleScore(ctx, client, config.BaseURL, q)

					switch {
					case err != nil:
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get %s score for %s: %v", q.kind, q.day, err)
						}
					case !found:
						atomic.AddInt64(&missing, 1)
					default:
						results[index] = result
						atomic.AddInt64(&retrieved, 1)
					}
				}
			}
		}(i)
	}

	// Send query indices to workers
	go func() {
		defer close(queryChan)
		for i := range queries {
			select {
			case <-ctx.Done():
				return
			case queryChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (missing or failed retrievals)
	validResults := make([]ScoreResult, 0, len(results))
	for _, r := range results {
		if r.Kind != "" {
			validResults = append(validResults, r)
		}
	}

	// Update stats
	stats.ScoresRetrieved = len(validResults)
	stats.ScoresMissing = int(atomic.LoadInt64(&missing))

	log.Printf(`✅ Score retrieval completed:
   Retrieved: %d
   Missing: %d
   Failed: %d
`, len(validResults), int(atomic.LoadInt64(&missing)), int(atomic.LoadInt64(&failed)))

	return validResults, nil
}

// buildQueries enumerates every (kind, day) pair in the generated window.
func buildQueries(numDays int) []scoreQuery {
	today := model.NewDayKey(time.Now())
	queries := make([]scoreQuery, 0, numDays*len(model.AllScoreKinds))
	for off := numDays - 1; off >= 0; off-- {
		for _, kind := range model.AllScoreKinds {
			queries = append(queries, scoreQuery{kind: kind, day: today.AddDays(-off)})
		}
	}
	return queries
}

// retrieveSingleScore fetches one daily score. A 404 is not an error;
// early days lack baseline coverage and legitimately have no score.
func retrieveSingleScore(ctx context.Context, client *HTTPClient, baseURL string, q scoreQuery) (ScoreResult, bool, error) {
	url := fmt.Sprintf("%s/v1/scores/%s?day=%s", baseURL, q.kind, q.day)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return ScoreResult{}, false, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return ScoreResult{}, false, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case StatusOK:
	case StatusNotFound:
		return ScoreResult{}, false, nil
	default:
		return ScoreResult{}, false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result ScoreResult
	if err := unmarshalJSON(body, &result); err != nil {
		return ScoreResult{}, false, fmt.Errorf("failed to parse response: %w", err)
	}

	return result, true, nil
}

// checkBaseline fetches the HRV baseline as a diagnostics smoke test.
func checkBaseline(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/v1/baselines/hrv"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var baseline struct {
		Mean        float64 `json:"mean"`
		SampleCount int     `json:"sample_count"`
		Available   bool    `json:"available"`
	}
	if err := unmarshalJSON(body, &baseline); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !baseline.Available {
		return fmt.Errorf("hrv baseline unavailable after %d samples", baseline.SampleCount)
	}

	log.Printf("✅ HRV baseline available: mean %.1f over %d samples", baseline.Mean, baseline.SampleCount)
	return nil
}
