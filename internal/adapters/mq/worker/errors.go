package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrStopped   = errors.New("worker pool stopped")
	ErrQueueFull = errors.New("task queue rejected work")
	ErrPanic     = errors.New("task panicked")
)
