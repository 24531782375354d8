package coordinator

import "errors"

// Sentinel errors for coordination failures.
var (
	ErrQueueFull = errors.New("recompute queue is full")
	ErrCompute   = errors.New("score recompute failed")
	ErrPublish   = errors.New("score publish failed")
)
