package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")

	// ErrAlreadyRunning is returned by Start on a running scheduler
	ErrAlreadyRunning = errors.New("scheduler: already running")

	// ErrStorePanicked wraps a panic recovered from one store's sync
	ErrStorePanicked = errors.New("scheduler: store sync panicked")
)
