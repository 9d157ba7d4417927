package models

import (
	"time"

	"github.com/google/uuid"
)

// Job lifecycle states. A run request is DRAFT until it is accepted and
// persisted; COMPLETED, FAILED and CANCELLED are terminal and no transition
// out of a terminal state is permitted.
const (
	JobStatusDraft     = "DRAFT"
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// Compute priorities requested at submission. They only bias the cost
// estimate; the orchestrator does not schedule by priority.
const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Job log levels.
const (
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// IsTerminalStatus reports whether a job status admits no further transitions.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled
}

// AnalysisJob is one run of a pipeline against a dataset. The API returns the
// job on POST /api/v1/jobs; clients poll GET /api/v1/jobs/{job_id} or follow
// the job's event stream until the status is terminal.
type AnalysisJob struct {
	ID            uuid.UUID     `db:"id"             json:"id"`
	UserID        uuid.UUID     `db:"user_id"        json:"user_id"`
	ProjectID     uuid.UUID     `db:"project_id"     json:"project_id"`
	DatasetID     uuid.UUID     `db:"dataset_id"     json:"dataset_id"`
	PipelineID    uuid.UUID     `db:"pipeline_id"    json:"pipeline_id"`
	Parameters    JobParameters `db:"parameters"     json:"parameters"`
	Priority      string        `db:"priority"       json:"priority"`
	Status        string        `db:"status"         json:"status"`
	Progress      Progress      `db:"progress"       json:"progress"`
	Cost          Cost          `db:"cost"           json:"cost"`
	Logs          []LogEntry    `db:"logs"           json:"logs"`
	Results       *JobResults   `db:"results"        json:"results,omitempty"`
	QueuePosition int           `db:"queue_position" json:"queue_position,omitempty"`
	CreatedAt     time.Time     `db:"created_at"     json:"created_at"`
	StartedAt     *time.Time    `db:"started_at"     json:"started_at,omitempty"`
	CompletedAt   *time.Time    `db:"completed_at"   json:"completed_at,omitempty"`
	UpdatedAt     time.Time     `db:"updated_at"     json:"updated_at"`
}

// JobParameters are the analysis knobs a user submits with a run request.
// Custom is an open key/value bag passed through verbatim to step executors;
// pipelines are user-extensible so it has no fixed schema.
type JobParameters struct {
	PValueThreshold     float64          `json:"p_value_threshold,omitempty"`
	FoldChangeThreshold float64          `json:"fold_change_threshold,omitempty"`
	CorrectionMethod    string           `json:"correction_method,omitempty"`
	Filtering           FilteringOptions `json:"filtering,omitempty"`
	Visualization       VisualPrefs      `json:"visualization,omitempty"`
	Custom              map[string]any   `json:"custom,omitempty"`
}

type FilteringOptions struct {
	MinExpression      float64 `json:"min_expression,omitempty"`
	MinSamplesPerGroup int     `json:"min_samples_per_group,omitempty"`
	ExcludeOutliers    bool    `json:"exclude_outliers,omitempty"`
}

type VisualPrefs struct {
	VolcanoPlot bool `json:"volcano_plot,omitempty"`
	Heatmap     bool `json:"heatmap,omitempty"`
	PCAPlot     bool `json:"pca_plot,omitempty"`
}

// Progress is the live progress record of a job. Percentage is monotonically
// non-decreasing while the job is RUNNING.
type Progress struct {
	Percentage           float64        `json:"percentage"`
	CurrentStep          string         `json:"current_step"`
	EstimatedSecondsLeft int            `json:"estimated_seconds_left"`
	Steps                []StepProgress `json:"steps,omitempty"`
}

// Step progress states.
const (
	StepPending   = "PENDING"
	StepRunning   = "RUNNING"
	StepCompleted = "COMPLETED"
)

type StepProgress struct {
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	Percentage float64    `json:"percentage"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
}

// Cost carries the estimate fixed at job creation and the actual computed at
// completion. The breakdown is a fixed-ratio split, recomputed proportionally
// once the actual is known.
type Cost struct {
	Estimated float64       `json:"estimated"`
	Actual    *float64      `json:"actual,omitempty"`
	Breakdown CostBreakdown `json:"breakdown"`
}

type CostBreakdown struct {
	Compute  float64 `json:"compute"`
	Storage  float64 `json:"storage"`
	Transfer float64 `json:"transfer"`
	Other    float64 `json:"other"`
}

// LogEntry is one append-only, timestamped job log line.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// JobResults is set only on successful completion.
type JobResults struct {
	Summary   string         `json:"summary"`
	Outputs   map[string]any `json:"outputs,omitempty"`
	Artifacts []string       `json:"artifacts,omitempty"`
}
