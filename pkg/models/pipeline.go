package models

import (
	"time"

	"github.com/google/uuid"
)

// PipelineDefinition is an immutable, versioned analysis template. Once any
// job has referenced it, the definition can no longer be edited.
type PipelineDefinition struct {
	ID                uuid.UUID           `db:"id"                  json:"id"`
	Name              string              `db:"name"                json:"name"`
	Description       string              `db:"description"         json:"description"`
	Documentation     string              `db:"documentation"       json:"documentation,omitempty"`
	Version           string              `db:"version"             json:"version"`
	Category          string              `db:"category"            json:"category"`
	Steps             []Step              `db:"steps"               json:"steps"`
	Input             InputRequirements   `db:"input_requirements"  json:"input_requirements"`
	Compute           ComputeRequirements `db:"compute_requirements" json:"compute_requirements"`
	OutputDescription string              `db:"output_description"  json:"output_description"`
	EstimatedRuntime  int                 `db:"estimated_runtime_seconds" json:"estimated_runtime_seconds"`
	Public            bool                `db:"public"              json:"public"`
	AuthorID          *uuid.UUID          `db:"author_id"           json:"author_id,omitempty"`
	SystemDefault     bool                `db:"system_default"      json:"system_default"`
	UsageCount        int                 `db:"usage_count"         json:"usage_count"`
	CreatedAt         time.Time           `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"          json:"updated_at"`
}

// Step is the smallest unit of pipeline work. DependsOn may only reference
// ids of steps declared earlier in the same definition, so declared order is
// always a valid execution order.
type Step struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
	DependsOn  []string       `json:"depends_on,omitempty"`
}

// InputRequirements describe the dataset shape a pipeline accepts.
// MaxSamples of zero means no upper bound.
type InputRequirements struct {
	DataTypes        []string `json:"data_types"`
	FileFormats      []string `json:"file_formats,omitempty"`
	MinSamples       int      `json:"min_samples"`
	MaxSamples       int      `json:"max_samples,omitempty"`
	RequiredMetadata []string `json:"required_metadata,omitempty"`
}

// ComputeRequirements carry the resource bounds and the base cost fed into
// the estimation engine.
type ComputeRequirements struct {
	CPUCores  int     `json:"cpu_cores"`
	MemoryGB  int     `json:"memory_gb"`
	StorageGB int     `json:"storage_gb"`
	BaseCost  float64 `json:"base_cost"`
}
