// Package catalog owns pipeline definitions: registration, lookup,
// versioning, publishing and deletion rules.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/pkg/models"
)

var (
	ErrPermission    = errors.New("caller is not the pipeline author")
	ErrAlreadyPublic = errors.New("pipeline is already public")
	ErrImmutable     = errors.New("system default pipelines cannot be modified")
	ErrInUse         = errors.New("pipeline is referenced by existing jobs")
)

// ValidationError reports why a pipeline definition was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid pipeline definition: " + e.Reason
}

// Store is the subset of the data layer the catalog needs.
type Store interface {
	CreatePipeline(ctx context.Context, p *models.PipelineDefinition) error
	GetPipeline(ctx context.Context, id uuid.UUID) (*models.PipelineDefinition, error)
	ListPipelinesByDataType(ctx context.Context, dataType string) ([]*models.PipelineDefinition, error)
	UpdatePipeline(ctx context.Context, p *models.PipelineDefinition) error
	DeletePipeline(ctx context.Context, id uuid.UUID) error
	IncrementPipelineUsage(ctx context.Context, id uuid.UUID) error
	CountJobsForPipeline(ctx context.Context, pipelineID uuid.UUID) (int, error)
}

// Catalog is the pipeline definition service.
type Catalog struct {
	store Store
}

// New creates a Catalog backed by the given store.
func New(s Store) *Catalog {
	return &Catalog{store: s}
}

const (
	defaultVersion = "1.0.0"

	defaultCPUCores  = 2
	defaultMemoryGB  = 8
	defaultStorageGB = 50
)

// Register validates and persists a new pipeline definition. Missing version
// and compute profile fields get defaults.
func (c *Catalog) Register(ctx context.Context, p *models.PipelineDefinition) (*models.PipelineDefinition, error) {
	if err := validateDefinition(p); err != nil {
		return nil, err
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == "" {
		p.Version = defaultVersion
	}
	if p.Compute.CPUCores == 0 {
		p.Compute.CPUCores = defaultCPUCores
	}
	if p.Compute.MemoryGB == 0 {
		p.Compute.MemoryGB = defaultMemoryGB
	}
	if p.Compute.StorageGB == 0 {
		p.Compute.StorageGB = defaultStorageGB
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := c.store.CreatePipeline(ctx, p); err != nil {
		return nil, fmt.Errorf("register pipeline: %w", err)
	}
	return p, nil
}

// GetByID fetches one definition. Returns store.ErrNotFound when absent.
func (c *Catalog) GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineDefinition, error) {
	return c.store.GetPipeline(ctx, id)
}

// SearchCompatible returns all public definitions accepting the dataset
// type, ordered by descending usage count then recency.
func (c *Catalog) SearchCompatible(ctx context.Context, datasetType string) ([]*models.PipelineDefinition, error) {
	return c.store.ListPipelinesByDataType(ctx, datasetType)
}

// Patch carries the fields Update may change. Nil fields are left alone.
type Patch struct {
	Name          *string
	Description   *string
	Documentation *string
	Steps         []models.Step
	Public        *bool
}

// Update applies a patch to a definition. Only the author may update, only
// before any job has used the definition, and a change to Steps increments
// the minor version component. Making a public pipeline private again is
// not allowed.
func (c *Catalog) Update(ctx context.Context, id, authorID uuid.UUID, patch Patch) (*models.PipelineDefinition, error) {
	p, err := c.store.GetPipeline(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SystemDefault {
		return nil, ErrImmutable
	}
	if p.AuthorID == nil || *p.AuthorID != authorID {
		return nil, ErrPermission
	}

	used, err := c.store.CountJobsForPipeline(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check pipeline usage: %w", err)
	}
	if used > 0 {
		return nil, ErrInUse
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, &ValidationError{Reason: "name must not be empty"}
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Documentation != nil {
		p.Documentation = *patch.Documentation
	}
	if patch.Steps != nil {
		if err := validateSteps(patch.Steps); err != nil {
			return nil, err
		}
		p.Steps = patch.Steps
		p.Version = bumpMinor(p.Version)
	}
	if patch.Public != nil {
		if !*patch.Public && p.Public {
			return nil, ErrAlreadyPublic
		}
		p.Public = *patch.Public
	}

	if err := c.store.UpdatePipeline(ctx, p); err != nil {
		return nil, fmt.Errorf("update pipeline: %w", err)
	}
	return p, nil
}

// Publish flips a private definition public. One-way.
func (c *Catalog) Publish(ctx context.Context, id, authorID uuid.UUID) (*models.PipelineDefinition, error) {
	p, err := c.store.GetPipeline(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID == nil || *p.AuthorID != authorID {
		return nil, ErrPermission
	}
	if p.Public {
		return nil, ErrAlreadyPublic
	}

	p.Public = true
	if err := c.store.UpdatePipeline(ctx, p); err != nil {
		return nil, fmt.Errorf("publish pipeline: %w", err)
	}
	return p, nil
}

// Delete removes a definition. System defaults are immutable, only the
// author may delete, and a definition referenced by any job stays.
func (c *Catalog) Delete(ctx context.Context, id, authorID uuid.UUID) error {
	p, err := c.store.GetPipeline(ctx, id)
	if err != nil {
		return err
	}
	if p.SystemDefault {
		return ErrImmutable
	}
	if p.AuthorID == nil || *p.AuthorID != authorID {
		return ErrPermission
	}

	used, err := c.store.CountJobsForPipeline(ctx, id)
	if err != nil {
		return fmt.Errorf("check pipeline usage: %w", err)
	}
	if used > 0 {
		return ErrInUse
	}

	return c.store.DeletePipeline(ctx, id)
}

// IncrementUsage bumps the usage counter. Best effort: a lost increment
// under crash or store error is acceptable.
func (c *Catalog) IncrementUsage(ctx context.Context, id uuid.UUID) {
	if err := c.store.IncrementPipelineUsage(ctx, id); err != nil {
		slog.Warn("increment pipeline usage", "error", err, "pipeline_id", id)
	}
}

func validateDefinition(p *models.PipelineDefinition) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Reason: "name must not be empty"}
	}
	if len(p.Steps) == 0 {
		return &ValidationError{Reason: "step list must not be empty"}
	}
	if err := validateSteps(p.Steps); err != nil {
		return err
	}
	if len(p.Input.DataTypes) == 0 {
		return &ValidationError{Reason: "input requirements must accept at least one data type"}
	}
	if strings.TrimSpace(p.OutputDescription) == "" {
		return &ValidationError{Reason: "output description is required"}
	}
	return nil
}

// validateSteps checks that step ids are unique and that every dependency
// references an earlier sibling step. Forbidding forward references also
// rules out cycles, and makes declared order a valid execution order.
func validateSteps(steps []models.Step) error {
	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.ID == "" {
			return &ValidationError{Reason: "every step needs an id"}
		}
		if seen[step.ID] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate step id %q", step.ID)}
		}
		for _, dep := range step.DependsOn {
			if dep == step.ID {
				return &ValidationError{Reason: fmt.Sprintf("step %q depends on itself", step.ID)}
			}
			if !seen[dep] {
				return &ValidationError{Reason: fmt.Sprintf(
					"step %q depends on %q, which is not an earlier step in the definition", step.ID, dep)}
			}
		}
		seen[step.ID] = true
	}
	return nil
}

// bumpMinor increments the minor component of a MAJOR.MINOR.PATCH version
// and resets the patch component. Unparseable versions restart at 1.1.0.
func bumpMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return "1.1.0"
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return "1.1.0"
	}
	return fmt.Sprintf("%s.%d.0", parts[0], minor+1)
}
