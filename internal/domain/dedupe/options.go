// Package dedupe tracks sample fingerprints for ingest idempotency.
package dedupe

// defaultMaxSize bounds one fingerprint generation.
const defaultMaxSize = 50000

// Option applies a configuration option to the deduper.
type Option func(*rotatingDeduper)

// WithMaxSize sets the per-generation fingerprint capacity.
// maxSize <= 0 disables eviction entirely.
func WithMaxSize(maxSize int) Option {
	return func(d *rotatingDeduper) {
		d.maxSize = maxSize
	}
}
