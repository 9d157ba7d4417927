package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/pkg/models"
)

// JobEvent is emitted on every progress or state change of a job. Events for
// a given job are delivered in the order they were produced; a terminal
// status event is always the last one published for that job.
type JobEvent struct {
	JobID    uuid.UUID         `json:"job_id"`
	Status   string            `json:"status"`
	Progress models.Progress   `json:"progress"`
	NewLogs  []models.LogEntry `json:"new_logs,omitempty"`
}

// Completion is emitted once per job on the global completion topic for
// cross-cutting consumers (notifications, audit).
type Completion struct {
	JobID uuid.UUID           `json:"job_id"`
	Job   *models.AnalysisJob `json:"job,omitempty"`
}

// Publisher is the outbound event contract the orchestrator depends on. It
// is an injected dependency, never ambient state, so tests can fake it.
type Publisher interface {
	PublishProgress(ctx context.Context, ev JobEvent)
	PublishCompletion(ctx context.Context, c Completion)
}

// Fanout publishes to several publishers in order.
type Fanout []Publisher

func (f Fanout) PublishProgress(ctx context.Context, ev JobEvent) {
	for _, p := range f {
		p.PublishProgress(ctx, ev)
	}
}

func (f Fanout) PublishCompletion(ctx context.Context, c Completion) {
	for _, p := range f {
		p.PublishCompletion(ctx, c)
	}
}
