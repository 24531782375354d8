package baseline

import "errors"

// Sentinel kinds for baseline errors.
var (
	ErrWindowFetch = errors.New("baseline window fetch failed")
)
