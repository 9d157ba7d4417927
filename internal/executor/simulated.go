package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/prairiebio/genomehub/pkg/models"
)

// Simulated stands in for real tool invocations. It sleeps for a fixed
// per-step duration and reports a synthetic output, which is enough to
// exercise the whole orchestration path end to end.
type Simulated struct {
	StepDuration time.Duration
}

// NewSimulated creates a Simulated executor with the given per-step duration.
func NewSimulated(stepDuration time.Duration) *Simulated {
	return &Simulated{StepDuration: stepDuration}
}

func (s *Simulated) Execute(ctx context.Context, step models.Step, jc JobContext) (StepOutput, error) {
	select {
	case <-time.After(s.StepDuration):
	case <-ctx.Done():
		return StepOutput{}, ctx.Err()
	}

	return StepOutput{
		Summary: fmt.Sprintf("step %s (%s) completed", step.Name, step.Tool),
		Metrics: map[string]any{
			"tool":    step.Tool,
			"step_id": step.ID,
		},
	}, nil
}
