package testsamples

import (
	"context"
	"fmt"
	"log"
)

// verifyResults sanity-checks the retrieved scores.
func verifyResults(ctx context.Context, config *Config, results []ScoreResult, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(results) == 0 {
		return fmt.Errorf("no scores to verify")
	}

	byKind := make(map[string][]ScoreResult)
	for _, r := range results {
		if r.Overall < 0 || r.Overall > 100 {
			return fmt.Errorf("%s score for %s out of range: %d", r.Kind, r.Day, r.Overall)
		}
		byKind[r.Kind] = append(byKind[r.Kind], r)
	}

	for kind, scores := range byKind {
		displayKindSummary(kind, scores, config.Verbose)
	}

	log.Println("✅ Result verification completed")
	return nil
}

// displayKindSummary prints per-kind score statistics.
func displayKindSummary(kind string, scores []ScoreResult, verbose bool) {
	complete := 0
	sum, minScore, maxScore := 0, 101, -1
	for _, r := range scores {
		if r.DataComplete {
			complete++
		}
		sum += r.Overall
		if r.Overall < minScore {
			minScore = r.Overall
		}
		if r.Overall > maxScore {
			maxScore = r.Overall
		}
	}

	log.Printf("🏅 %s: %d scores (%d with complete data)", kind, len(scores), complete)
	if verbose {
		log.Printf(`📊 %s statistics:
   Average: %.1f
   Maximum: %d
   Minimum: %d
`, kind, float64(sum)/float64(len(scores)), maxScore, minScore)
	}
}
