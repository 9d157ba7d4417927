package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prairiebio/genomehub/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// --- Projects ---

func (s *PostgresStore) ProjectEditable(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	var editable bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM projects WHERE id = $1 AND owner_id = $2
		   UNION ALL
		   SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2 AND role = 'editor'
		 )`, projectID, userID,
	).Scan(&editable)
	if err != nil {
		return false, fmt.Errorf("check project editable: %w", err)
	}
	return editable, nil
}

// --- Datasets ---

func (s *PostgresStore) GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	var d models.Dataset
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name, type, status, sample_count, feature_count, qc_passed, metadata, created_at, updated_at
		 FROM datasets WHERE id = $1`, id,
	).Scan(&d.ID, &d.ProjectID, &d.Name, &d.Type, &d.Status, &d.SampleCount,
		&d.FeatureCount, &d.QCPassed, &d.Metadata, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return &d, nil
}

// --- Pipelines ---

const pipelineColumns = `id, name, description, documentation, version, category, steps,
	input_requirements, compute_requirements, output_description, estimated_runtime_seconds,
	public, author_id, system_default, usage_count, created_at, updated_at`

func scanPipeline(row pgx.Row) (*models.PipelineDefinition, error) {
	var p models.PipelineDefinition
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Documentation, &p.Version, &p.Category,
		&p.Steps, &p.Input, &p.Compute, &p.OutputDescription, &p.EstimatedRuntime,
		&p.Public, &p.AuthorID, &p.SystemDefault, &p.UsageCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreatePipeline(ctx context.Context, p *models.PipelineDefinition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipelines (`+pipelineColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		p.ID, p.Name, p.Description, p.Documentation, p.Version, p.Category, p.Steps,
		p.Input, p.Compute, p.OutputDescription, p.EstimatedRuntime,
		p.Public, p.AuthorID, p.SystemDefault, p.UsageCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create pipeline: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPipeline(ctx context.Context, id uuid.UUID) (*models.PipelineDefinition, error) {
	p, err := scanPipeline(s.pool.QueryRow(ctx,
		`SELECT `+pipelineColumns+` FROM pipelines WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pipeline: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPipelinesByDataType(ctx context.Context, dataType string) ([]*models.PipelineDefinition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pipelineColumns+` FROM pipelines
		 WHERE public AND input_requirements->'data_types' @> to_jsonb($1::text)
		 ORDER BY usage_count DESC, created_at DESC`, dataType)
	if err != nil {
		return nil, fmt.Errorf("list pipelines by data type: %w", err)
	}
	defer rows.Close()

	var pipelines []*models.PipelineDefinition
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

func (s *PostgresStore) UpdatePipeline(ctx context.Context, p *models.PipelineDefinition) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipelines SET name = $2, description = $3, documentation = $4, version = $5,
		   steps = $6, public = $7, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Documentation, p.Version, p.Steps, p.Public)
	if err != nil {
		return fmt.Errorf("update pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeletePipeline(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementPipelineUsage(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE pipelines SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment pipeline usage: %w", err)
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, user_id, project_id, dataset_id, pipeline_id, parameters, priority, status,
	progress, cost, logs, results, queue_position, created_at, started_at, completed_at, updated_at`

func scanJob(row pgx.Row) (*models.AnalysisJob, error) {
	var j models.AnalysisJob
	err := row.Scan(&j.ID, &j.UserID, &j.ProjectID, &j.DatasetID, &j.PipelineID, &j.Parameters,
		&j.Priority, &j.Status, &j.Progress, &j.Cost, &j.Logs, &j.Results, &j.QueuePosition,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.AnalysisJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		job.ID, job.UserID, job.ProjectID, job.DatasetID, job.PipelineID, job.Parameters,
		job.Priority, job.Status, job.Progress, job.Cost, job.Logs, job.Results, job.QueuePosition,
		job.CreatedAt, job.StartedAt, job.CompletedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// SaveJob writes every mutable job field. Callers serialize writes per job
// id, so a full-record update cannot interleave with another writer.
func (s *PostgresStore) SaveJob(ctx context.Context, job *models.AnalysisJob) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, progress = $3, cost = $4, logs = $5, results = $6,
		   queue_position = $7, started_at = $8, completed_at = $9, updated_at = NOW()
		 WHERE id = $1`,
		job.ID, job.Status, job.Progress, job.Cost, job.Logs, job.Results,
		job.QueuePosition, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.AnalysisJob, error) {
	conditions := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if filter.ProjectID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", argIdx))
		args = append(args, filter.ProjectID)
		argIdx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(
		`SELECT `+jobColumns+` FROM jobs WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		strings.Join(conditions, " AND "), argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.AnalysisJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) CountJobsByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count jobs by status: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountJobsForPipeline(ctx context.Context, pipelineID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs WHERE pipeline_id = $1`, pipelineID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count jobs for pipeline: %w", err)
	}
	return n, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
