package testsamples

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ingestBatch is one POST /v1/samples payload
type ingestBatch struct {
	Samples []SampleInput `json:"samples"`
}

// submitSamples submits samples in batches using worker pools
func submitSamples(ctx context.Context, config *Config, samples []SampleInput, stats *Stats) error {
	batches := chunkSamples(samples, config.BatchSize)
	log.Printf("📤 Submitting %d samples in %d batches with %d workers...", len(samples), len(batches), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/v1/samples"

	// Counters for statistics
	var (
		accepted  int64
		duplicate int64
		failed    int64
		submitted int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	batchChan := make(chan ingestBatch, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for batch := range batchChan {
				select {
				case <-ctx.Done():
					return
				default:
					ack, err := submitSingleBatch(ctx, client, url, batch)

					atomic.AddInt64(&submitted, int64(len(batch.Samples)))
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Batch submission failed: %v", err)
						}
					} else {
						atomic.AddInt64(&accepted, int64(ack.Accepted))
						atomic.AddInt64(&duplicate, int64(ack.Duplicates))
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						acc := atomic.LoadInt64(&accepted)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (accepted: %d, duplicate: %d, failed batches: %d)",
								total, len(samples), acc, dup, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (accepted: %d, duplicate: %d, failed batches: %d)",
								total, len(samples), acc, dup, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send batches to workers
	go func() {
		defer close(batchChan)
		for _, batch := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- batch:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.SamplesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.SamplesAccepted = int(atomic.LoadInt64(&accepted))
	stats.SamplesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Sample submission completed:
   Accepted: %d
   Duplicate: %d
   Failed batches: %d
`, stats.SamplesAccepted, stats.SamplesDuplicate, stats.BatchesFailed)

	return nil
}

// chunkSamples splits samples into ingest batches of at most size samples.
func chunkSamples(samples []SampleInput, size int) []ingestBatch {
	if size <= 0 {
		size = len(samples)
	}
	batches := make([]ingestBatch, 0, (len(samples)+size-1)/size)
	for start := 0; start < len(samples); start += size {
		end := start + size
		if end > len(samples) {
			end = len(samples)
		}
		batches = append(batches, ingestBatch{Samples: samples[start:end]})
	}
	return batches
}

// submitSingleBatch submits one batch and parses the acknowledgement
func submitSingleBatch(ctx context.Context, client *HTTPClient, url string, batch ingestBatch) (IngestResponse, error) {
	resp, err := client.Post(ctx, url, batch)
	if err != nil {
		return IngestResponse{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return IngestResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusAccepted {
		return IngestResponse{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var ack IngestResponse
	if err := unmarshalJSON(body, &ack); err != nil {
		return IngestResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return ack, nil
}
