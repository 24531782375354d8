package testsamples

import "time"

// Config holds configuration for the sample load test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumDays    int           // Number of trailing days to generate samples for
	BatchSize  int           // Samples per ingest request
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated samples
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// SampleInput mirrors one sample in the POST /v1/samples payload
type SampleInput struct {
	Kind  string  `json:"kind"`
	TS    string  `json:"ts"`
	Value float64 `json:"value"`
}

// IngestResponse represents the response from batch submission
type IngestResponse struct {
	Status     string `json:"status"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}

// ScoreResult is one retrieved daily score
type ScoreResult struct {
	Kind         string `json:"kind"`
	Day          string `json:"day"`
	Overall      int    `json:"overall"`
	DataComplete bool   `json:"data_complete"`
}

// Stats holds test statistics
type Stats struct {
	SamplesGenerated int
	SamplesSubmitted int
	SamplesAccepted  int
	SamplesDuplicate int
	BatchesFailed    int
	ScoresRetrieved  int
	ScoresMissing    int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
