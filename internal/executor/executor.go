// Package executor defines the pluggable unit-of-work interface the
// execution driver calls for each pipeline step. The orchestration core
// depends only on the StepExecutor interface, never on concrete tools.
package executor

import (
	"context"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/pkg/models"
)

// JobContext carries the per-job information a step implementation may need.
type JobContext struct {
	JobID      uuid.UUID
	DatasetID  uuid.UUID
	Parameters models.JobParameters
}

// StepOutput is what a completed step hands back to the driver.
type StepOutput struct {
	Summary string
	Metrics map[string]any
}

// StepExecutor runs one pipeline step to completion. A step is atomic with
// respect to progress reporting and cancellation: the driver never suspends
// mid-step, so implementations obey their own deadlines if they need one.
type StepExecutor interface {
	Execute(ctx context.Context, step models.Step, jc JobContext) (StepOutput, error)
}

// Registry dispatches steps to per-tool executors, falling back to a default
// when no tool-specific implementation is registered.
type Registry struct {
	byTool   map[string]StepExecutor
	fallback StepExecutor
}

// NewRegistry creates a Registry with the given fallback executor.
func NewRegistry(fallback StepExecutor) *Registry {
	return &Registry{byTool: make(map[string]StepExecutor), fallback: fallback}
}

// RegisterTool binds an executor to a tool name.
func (r *Registry) RegisterTool(tool string, ex StepExecutor) {
	r.byTool[tool] = ex
}

// Execute routes the step to the executor registered for its tool.
func (r *Registry) Execute(ctx context.Context, step models.Step, jc JobContext) (StepOutput, error) {
	if ex, ok := r.byTool[step.Tool]; ok {
		return ex.Execute(ctx, step, jc)
	}
	return r.fallback.Execute(ctx, step, jc)
}
