// Package orchestrator owns the analysis job entity: its state machine, its
// queue position, its step-by-step execution and its result finalization.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/internal/cache"
	"github.com/prairiebio/genomehub/internal/estimate"
	"github.com/prairiebio/genomehub/internal/events"
	"github.com/prairiebio/genomehub/internal/executor"
	"github.com/prairiebio/genomehub/internal/store"
	"github.com/prairiebio/genomehub/pkg/models"
)

const jobStatusTTL = 30 * time.Minute

// Store is the subset of the data layer the orchestrator needs.
type Store interface {
	CreateJob(ctx context.Context, job *models.AnalysisJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	SaveJob(ctx context.Context, job *models.AnalysisJob) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
	ListJobs(ctx context.Context, filter store.JobFilter) ([]*models.AnalysisJob, error)
	CountJobsByStatus(ctx context.Context, status string) (int, error)
	GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	ProjectEditable(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
}

// PipelineSource is the catalog dependency.
type PipelineSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineDefinition, error)
	IncrementUsage(ctx context.Context, id uuid.UUID)
}

// Service is the job lifecycle manager. All job mutations go through it and
// are serialized per job id.
type Service struct {
	store      Store
	catalog    PipelineSource
	estimator  *estimate.Engine
	bus        events.Publisher
	exec       executor.StepExecutor
	cache      cache.Cache
	dispatcher *Dispatcher
	locks      stripedLocks
}

// NewService wires the lifecycle manager. The event bus and step executor
// are injected so tests can fake them.
func NewService(st Store, cat PipelineSource, est *estimate.Engine, bus events.Publisher,
	exec executor.StepExecutor, ca cache.Cache, queueCapacity int) *Service {
	s := &Service{
		store:     st,
		catalog:   cat,
		estimator: est,
		bus:       bus,
		exec:      exec,
		cache:     ca,
	}
	s.dispatcher = NewDispatcher(queueCapacity, s.runJob)
	return s
}

// Run starts the execution workers and blocks until ctx is cancelled. Jobs
// left RUNNING by a previous run lost their executor and are failed; jobs
// left QUEUED are re-enqueued.
func (s *Service) Run(ctx context.Context, workers int) error {
	interrupted, err := s.store.ListJobs(ctx, store.JobFilter{Status: models.JobStatusRunning, Limit: 200})
	if err != nil {
		return fmt.Errorf("scan interrupted jobs: %w", err)
	}
	for _, job := range interrupted {
		s.failJob(ctx, job.ID, errors.New("execution interrupted by service restart"))
	}
	if len(interrupted) > 0 {
		slog.Warn("failed jobs left running by a previous run", "count", len(interrupted))
	}

	queued, err := s.store.ListJobs(ctx, store.JobFilter{Status: models.JobStatusQueued, Limit: 200})
	if err != nil {
		return fmt.Errorf("recover queued jobs: %w", err)
	}
	for _, job := range queued {
		if err := s.dispatcher.Enqueue(job.ID); err != nil {
			slog.Warn("could not re-enqueue job", "error", err, "job_id", job.ID)
		}
	}
	if len(queued) > 0 {
		slog.Info("re-enqueued queued jobs from previous run", "count", len(queued))
	}
	return s.dispatcher.Run(ctx, workers)
}

// SubmitRequest is a validated run request.
type SubmitRequest struct {
	ProjectID  uuid.UUID
	DatasetID  uuid.UUID
	PipelineID uuid.UUID
	Parameters models.JobParameters
	Priority   string
}

// Submit validates a run request, persists the job in QUEUED state and
// schedules asynchronous execution. The returned job has its id and cost
// estimate set; execution has not necessarily started when Submit returns.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*models.AnalysisJob, error) {
	editable, err := s.store.ProjectEditable(ctx, userID, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("check project permissions: %w", err)
	}
	if !editable {
		return nil, ErrPermission
	}

	dataset, err := s.store.GetDataset(ctx, req.DatasetID)
	if err != nil {
		return nil, err
	}
	if dataset.Status != models.DatasetReady {
		return nil, fmt.Errorf("%w: dataset status is %s", ErrDatasetNotReady, dataset.Status)
	}

	pipeline, err := s.catalog.GetByID(ctx, req.PipelineID)
	if err != nil {
		return nil, err
	}

	if err := s.estimator.CheckCompatibility(dataset, pipeline); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	estimatedCost := s.estimator.EstimateCost(pipeline, dataset, priority)
	estimatedRuntime := s.estimator.EstimateRuntime(pipeline, dataset)

	queued, err := s.store.CountJobsByStatus(ctx, models.JobStatusQueued)
	if err != nil {
		return nil, fmt.Errorf("count queued jobs: %w", err)
	}

	now := time.Now().UTC()
	steps := make([]models.StepProgress, len(pipeline.Steps))
	for i, step := range pipeline.Steps {
		steps[i] = models.StepProgress{Name: step.Name, Status: models.StepPending}
	}

	job := &models.AnalysisJob{
		ID:         uuid.New(),
		UserID:     userID,
		ProjectID:  req.ProjectID,
		DatasetID:  req.DatasetID,
		PipelineID: req.PipelineID,
		Parameters: req.Parameters,
		Priority:   priority,
		Status:     models.JobStatusQueued,
		Progress: models.Progress{
			Percentage:           0,
			CurrentStep:          "Queued",
			EstimatedSecondsLeft: estimatedRuntime,
			Steps:                steps,
		},
		Cost: models.Cost{
			Estimated: estimatedCost,
			Breakdown: s.estimator.Breakdown(estimatedCost),
		},
		Logs: []models.LogEntry{{
			Timestamp: now,
			Level:     models.LogLevelInfo,
			Message: fmt.Sprintf("Job accepted: pipeline %q against dataset %q, queue position %d",
				pipeline.Name, dataset.Name, queued+1),
		}},
		QueuePosition: queued + 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	s.catalog.IncrementUsage(ctx, job.PipelineID)
	_ = s.cache.SetJobStatus(ctx, job.ID, job.Status, jobStatusTTL)

	if err := s.dispatcher.Enqueue(job.ID); err != nil {
		// The record stays QUEUED so the recovery scan on the next Run can
		// still pick it up, but the caller must see the backpressure.
		slog.Error("enqueue job for execution", "error", err, "job_id", job.ID)
		return nil, err
	}

	return job, nil
}

// Cancel transitions a QUEUED or RUNNING job to CANCELLED. The caller must
// own the job or hold edit rights on its project. A RUNNING job stops at the
// next step boundary.
func (s *Service) Cancel(ctx context.Context, userID, jobID uuid.UUID) (*models.AnalysisJob, error) {
	mu := s.locks.lock(jobID)
	defer mu.Unlock()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusQueued && job.Status != models.JobStatusRunning {
		return nil, fmt.Errorf("%w: cannot cancel a %s job", ErrInvalidState, job.Status)
	}

	if job.UserID != userID {
		editable, err := s.store.ProjectEditable(ctx, userID, job.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("check project permissions: %w", err)
		}
		if !editable {
			return nil, ErrPermission
		}
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusCancelled
	job.CompletedAt = &now
	job.QueuePosition = 0
	entry := models.LogEntry{Timestamp: now, Level: models.LogLevelInfo, Message: "Job cancelled by user"}
	job.Logs = append(job.Logs, entry)

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save cancelled job: %w", err)
	}

	_ = s.cache.SetJobStatus(ctx, job.ID, job.Status, jobStatusTTL)
	s.bus.PublishProgress(ctx, events.JobEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		NewLogs:  []models.LogEntry{entry},
	})

	return job, nil
}

// CloneModifications overlay the original job's run request. Nil fields
// inherit from the original.
type CloneModifications struct {
	DatasetID  *uuid.UUID
	PipelineID *uuid.UUID
	Parameters *models.JobParameters
	Priority   *string
}

// Clone builds a new run request from an existing job with modifications
// overlaid and submits it. Logs, results and cost actuals are not copied.
func (s *Service) Clone(ctx context.Context, userID, jobID uuid.UUID, mods CloneModifications) (*models.AnalysisJob, error) {
	original, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	req := SubmitRequest{
		ProjectID:  original.ProjectID,
		DatasetID:  original.DatasetID,
		PipelineID: original.PipelineID,
		Parameters: original.Parameters,
		Priority:   original.Priority,
	}
	if mods.DatasetID != nil {
		req.DatasetID = *mods.DatasetID
	}
	if mods.PipelineID != nil {
		req.PipelineID = *mods.PipelineID
	}
	if mods.Parameters != nil {
		req.Parameters = *mods.Parameters
	}
	if mods.Priority != nil {
		req.Priority = *mods.Priority
	}

	return s.Submit(ctx, userID, req)
}

// Delete removes a job record. RUNNING jobs cannot be deleted; cancel first.
func (s *Service) Delete(ctx context.Context, userID, jobID uuid.UUID) error {
	mu := s.locks.lock(jobID)
	defer mu.Unlock()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusRunning {
		return fmt.Errorf("%w: cannot delete a RUNNING job", ErrInvalidState)
	}

	if job.UserID != userID {
		editable, err := s.store.ProjectEditable(ctx, userID, job.ProjectID)
		if err != nil {
			return fmt.Errorf("check project permissions: %w", err)
		}
		if !editable {
			return ErrPermission
		}
	}

	if job.Results != nil && len(job.Results.Artifacts) > 0 {
		// Artifact storage lives elsewhere; cleanup is best effort.
		slog.Info("releasing result artifacts", "job_id", job.ID, "count", len(job.Results.Artifacts))
	}

	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, cache.JobStatusKey(jobID))
	return nil
}

// GetJob fetches one job.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListJobs returns jobs for a project, optionally filtered by status.
func (s *Service) ListJobs(ctx context.Context, projectID uuid.UUID, status string) ([]*models.AnalysisJob, error) {
	return s.store.ListJobs(ctx, store.JobFilter{ProjectID: projectID, Status: status})
}

// ProgressUpdate is applied by the execution driver. Nil fields are left
// unchanged.
type ProgressUpdate struct {
	Status               string
	Percentage           *float64
	CurrentStep          string
	EstimatedSecondsLeft *int
	Steps                []models.StepProgress
	Logs                 []models.LogEntry
}

// UpdateProgress applies a driver update to a job and publishes an event.
// It is internal to the orchestration core: only the execution driver and
// tests call it. Percentage regressions while RUNNING are surfaced as WARN
// job log entries and clamped, never applied.
func (s *Service) UpdateProgress(ctx context.Context, jobID uuid.UUID, update ProgressUpdate) (*models.AnalysisJob, error) {
	mu := s.locks.lock(jobID)
	defer mu.Unlock()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(job.Status) {
		return nil, fmt.Errorf("%w: job is %s", ErrInvalidState, job.Status)
	}

	now := time.Now().UTC()
	newLogs := append([]models.LogEntry(nil), update.Logs...)

	if update.Status != "" && update.Status != job.Status {
		if !transitionAllowed(job.Status, update.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidState, job.Status, update.Status)
		}
		job.Status = update.Status
		if update.Status == models.JobStatusRunning && job.StartedAt == nil {
			job.StartedAt = &now
			job.QueuePosition = 0
		}
		if models.IsTerminalStatus(update.Status) {
			job.CompletedAt = &now
		}
	}

	if update.Percentage != nil {
		pct := *update.Percentage
		if job.Status == models.JobStatusRunning && pct < job.Progress.Percentage {
			warn := models.LogEntry{
				Timestamp: now,
				Level:     models.LogLevelWarn,
				Message: fmt.Sprintf("progress regression ignored: %.1f%% -> %.1f%%",
					job.Progress.Percentage, pct),
			}
			newLogs = append(newLogs, warn)
		} else {
			job.Progress.Percentage = pct
		}
	}
	if update.CurrentStep != "" {
		job.Progress.CurrentStep = update.CurrentStep
	}
	if update.EstimatedSecondsLeft != nil {
		job.Progress.EstimatedSecondsLeft = *update.EstimatedSecondsLeft
	}
	if update.Steps != nil {
		job.Progress.Steps = update.Steps
	}

	job.Logs = append(job.Logs, newLogs...)

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save job progress: %w", err)
	}

	_ = s.cache.SetJobStatus(ctx, job.ID, job.Status, jobStatusTTL)
	s.bus.PublishProgress(ctx, events.JobEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		NewLogs:  newLogs,
	})

	return job, nil
}

// FinalizeResults completes a RUNNING job: computes the actual cost from
// wall-clock duration, stores results and publishes the terminal events.
func (s *Service) FinalizeResults(ctx context.Context, jobID uuid.UUID, results *models.JobResults) (*models.AnalysisJob, error) {
	mu := s.locks.lock(jobID)
	defer mu.Unlock()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusRunning {
		return nil, fmt.Errorf("%w: cannot finalize a %s job", ErrInvalidState, job.Status)
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now
	job.Results = results

	actual := s.estimator.ActualCost(job)
	job.Cost.Actual = &actual
	job.Cost.Breakdown = s.estimator.Breakdown(actual)

	job.Progress.Percentage = 100
	job.Progress.CurrentStep = "Completed"
	job.Progress.EstimatedSecondsLeft = 0
	for i := range job.Progress.Steps {
		job.Progress.Steps[i].Status = models.StepCompleted
		job.Progress.Steps[i].Percentage = 100
	}

	entry := models.LogEntry{Timestamp: now, Level: models.LogLevelInfo,
		Message: fmt.Sprintf("Job completed, actual cost %.2f", actual)}
	job.Logs = append(job.Logs, entry)

	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save completed job: %w", err)
	}

	_ = s.cache.SetJobStatus(ctx, job.ID, job.Status, jobStatusTTL)
	s.bus.PublishProgress(ctx, events.JobEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		NewLogs:  []models.LogEntry{entry},
	})
	s.bus.PublishCompletion(ctx, events.Completion{JobID: job.ID, Job: job})

	return job, nil
}

var validTransitions = map[string][]string{
	models.JobStatusQueued:  {models.JobStatusRunning, models.JobStatusCancelled},
	models.JobStatusRunning: {models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusCancelled},
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
