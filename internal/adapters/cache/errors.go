package cache

import "errors"

// Sentinel errors for cache operations.
var (
	ErrDurableOpen  = errors.New("failed to open durable cache")
	ErrDurableWrite = errors.New("durable cache write failed")
	ErrDurableRead  = errors.New("durable cache read failed")
	ErrClosed       = errors.New("cache is closed")
)
