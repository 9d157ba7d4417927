package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/internal/executor"
	"github.com/prairiebio/genomehub/pkg/models"
)

// runJob is the execution driver: it takes one QUEUED job through RUNNING to
// a terminal state. Steps run strictly sequentially in their declared order,
// which the catalog guarantees respects the dependency DAG. The job's status
// is re-read before each step; if it is no longer RUNNING the loop aborts
// without error, which is the cooperative cancellation checkpoint.
func (s *Service) runJob(ctx context.Context, jobID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in execution driver", "error", r, "job_id", jobID,
				"stack", string(debug.Stack()))
			s.failJob(ctx, jobID, fmt.Errorf("panic: %v", r))
		}
	}()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		slog.Error("load job for execution", "error", err, "job_id", jobID)
		return
	}
	if job.Status != models.JobStatusQueued {
		// Cancelled (or otherwise moved on) while waiting in the queue.
		slog.Info("skipping job no longer queued", "job_id", jobID, "status", job.Status)
		return
	}

	zero := 0.0
	if _, err := s.UpdateProgress(ctx, jobID, ProgressUpdate{
		Status:      models.JobStatusRunning,
		Percentage:  &zero,
		CurrentStep: "Initializing",
		Logs: []models.LogEntry{{
			Timestamp: time.Now().UTC(),
			Level:     models.LogLevelInfo,
			Message:   "Execution started",
		}},
	}); err != nil {
		slog.Error("transition job to RUNNING", "error", err, "job_id", jobID)
		return
	}

	pipeline, err := s.catalog.GetByID(ctx, job.PipelineID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Errorf("load pipeline: %w", err))
		return
	}

	totalRuntime := job.Progress.EstimatedSecondsLeft
	total := len(pipeline.Steps)
	stepStates := make([]models.StepProgress, total)
	for i, step := range pipeline.Steps {
		stepStates[i] = models.StepProgress{Name: step.Name, Status: models.StepPending}
	}

	outputs := make(map[string]any, total)
	jc := executor.JobContext{JobID: job.ID, DatasetID: job.DatasetID, Parameters: job.Parameters}

	for i, step := range pipeline.Steps {
		current, err := s.store.GetJob(ctx, jobID)
		if err != nil {
			slog.Error("re-read job before step", "error", err, "job_id", jobID)
			return
		}
		if current.Status != models.JobStatusRunning {
			slog.Info("aborting execution, job no longer running",
				"job_id", jobID, "status", current.Status, "completed_steps", i)
			return
		}

		now := time.Now().UTC()
		stepStates[i].Status = models.StepRunning
		stepStates[i].StartedAt = &now

		pct := float64(i+1) / float64(total) * 100
		remaining := int(math.Round(float64(totalRuntime) * (1 - pct/100)))
		if _, err := s.UpdateProgress(ctx, jobID, ProgressUpdate{
			Percentage:           &pct,
			CurrentStep:          step.Name,
			EstimatedSecondsLeft: &remaining,
			Steps:                append([]models.StepProgress(nil), stepStates...),
			Logs: []models.LogEntry{{
				Timestamp: now,
				Level:     models.LogLevelInfo,
				Message:   fmt.Sprintf("Starting step %d/%d: %s", i+1, total, step.Name),
			}},
		}); err != nil {
			slog.Error("update step progress", "error", err, "job_id", jobID, "step", step.ID)
			return
		}

		out, err := s.exec.Execute(ctx, step, jc)
		if err != nil {
			s.failJob(ctx, jobID, fmt.Errorf("step %q (%s) failed: %w", step.Name, step.ID, err))
			return
		}
		outputs[step.ID] = map[string]any{"summary": out.Summary, "metrics": out.Metrics}

		stepStates[i].Status = models.StepCompleted
		stepStates[i].Percentage = 100
		if _, err := s.UpdateProgress(ctx, jobID, ProgressUpdate{
			Steps: append([]models.StepProgress(nil), stepStates...),
			Logs: []models.LogEntry{{
				Timestamp: time.Now().UTC(),
				Level:     models.LogLevelInfo,
				Message:   fmt.Sprintf("Completed step %d/%d: %s", i+1, total, step.Name),
			}},
		}); err != nil {
			slog.Error("record step completion", "error", err, "job_id", jobID, "step", step.ID)
			return
		}
	}

	results := &models.JobResults{
		Summary: fmt.Sprintf("All %d steps of %q completed successfully", total, pipeline.Name),
		Outputs: outputs,
	}
	if _, err := s.FinalizeResults(ctx, jobID, results); err != nil {
		slog.Error("finalize job results", "error", err, "job_id", jobID)
	}
}

// failJob is the only path to FAILED: any error surfaced by a step's unit of
// work lands here, is recorded at ERROR level in the job's own log, and is
// reflected only through job status. There is no out-of-band error channel.
func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, cause error) {
	if _, err := s.UpdateProgress(ctx, jobID, ProgressUpdate{
		Status: models.JobStatusFailed,
		Logs: []models.LogEntry{{
			Timestamp: time.Now().UTC(),
			Level:     models.LogLevelError,
			Message:   fmt.Sprintf("Execution failed: %v", cause),
		}},
	}); err != nil {
		slog.Error("mark job failed", "error", err, "job_id", jobID, "cause", cause)
	}
}
