package orchestrator

import "errors"

var (
	// ErrInvalidState means the job is not in a lifecycle state that allows
	// the attempted operation.
	ErrInvalidState = errors.New("operation not allowed in current job state")

	// ErrDatasetNotReady means the target dataset is not READY for analysis.
	ErrDatasetNotReady = errors.New("dataset is not ready for analysis")

	// ErrPermission means the caller lacks edit rights on the job's project.
	ErrPermission = errors.New("insufficient permissions")

	// ErrQueueFull means the execution queue cannot accept more jobs.
	ErrQueueFull = errors.New("execution queue is full")
)
