package scoring

import "errors"

// Sentinel kinds for scoring errors. Missing data is never an error here;
// components degrade instead. These exist for diagnostics and for callers
// that want to label why a component was incomplete.
var (
	ErrUnknownScoreKind     = errors.New("unknown score kind")
	ErrMissingSample        = errors.New("required sample missing for day")
	ErrInsufficientBaseline = errors.New("baseline window under-covered")
)
