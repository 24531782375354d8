package samplestore

import "errors"

// Sentinel kinds for sample store errors.
var (
	ErrUnknownKind = errors.New("unknown metric kind")
)
