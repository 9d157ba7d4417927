package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through
// here. Services depend on narrow subsets of this interface declared at
// their point of use; PostgresStore implements all of it.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	// ProjectEditable is the permission oracle: it reports whether the user
	// owns the project or holds the editor role on it.
	ProjectEditable(ctx context.Context, userID, projectID uuid.UUID) (bool, error)

	GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, error)

	CreatePipeline(ctx context.Context, p *models.PipelineDefinition) error
	GetPipeline(ctx context.Context, id uuid.UUID) (*models.PipelineDefinition, error)
	ListPipelinesByDataType(ctx context.Context, dataType string) ([]*models.PipelineDefinition, error)
	UpdatePipeline(ctx context.Context, p *models.PipelineDefinition) error
	DeletePipeline(ctx context.Context, id uuid.UUID) error
	IncrementPipelineUsage(ctx context.Context, id uuid.UUID) error

	CreateJob(ctx context.Context, job *models.AnalysisJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error)
	SaveJob(ctx context.Context, job *models.AnalysisJob) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.AnalysisJob, error)
	CountJobsByStatus(ctx context.Context, status string) (int, error)
	CountJobsForPipeline(ctx context.Context, pipelineID uuid.UUID) (int, error)
}

// JobFilter narrows ListJobs. Zero values mean "no filter".
type JobFilter struct {
	ProjectID uuid.UUID
	Status    string
	Limit     int
}
