package orchestrator

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Dispatcher is the explicit work queue feeding the execution workers: a
// bounded channel of job ids drained by a fixed pool. Each job is enqueued
// exactly once, so per-job execution is trivially sequential.
type Dispatcher struct {
	queue  chan uuid.UUID
	runner func(ctx context.Context, jobID uuid.UUID)
}

// NewDispatcher creates a Dispatcher with the given queue capacity. The
// runner is invoked once per dequeued job id.
func NewDispatcher(capacity int, runner func(ctx context.Context, jobID uuid.UUID)) *Dispatcher {
	return &Dispatcher{
		queue:  make(chan uuid.UUID, capacity),
		runner: runner,
	}
}

// Enqueue adds a job to the queue without blocking. Returns ErrQueueFull
// when the queue is at capacity.
func (d *Dispatcher) Enqueue(jobID uuid.UUID) error {
	select {
	case d.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the worker pool and blocks until ctx is cancelled. Jobs execute
// concurrently across workers; a worker processes one job at a time.
func (d *Dispatcher) Run(ctx context.Context, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case jobID := <-d.queue:
					slog.Info("worker picked up job", "job_id", jobID)
					d.runner(ctx, jobID)
				}
			}
		})
	}
	return g.Wait()
}
