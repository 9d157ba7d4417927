// Package estimate holds the compatibility check and the cost/runtime
// estimation functions. Everything here is pure: same inputs, same outputs,
// no side effects.
package estimate

import (
	"fmt"
	"math"
	"slices"

	"github.com/prairiebio/genomehub/internal/config"
	"github.com/prairiebio/genomehub/pkg/models"
)

// IncompatibleDatasetError explains why a dataset cannot feed a pipeline.
type IncompatibleDatasetError struct {
	Reason string
}

func (e *IncompatibleDatasetError) Error() string {
	return "incompatible dataset: " + e.Reason
}

// Engine evaluates datasets against pipelines using configured constants.
type Engine struct {
	cfg config.EstimateConfig
}

// NewEngine creates an Engine with the given constants.
func NewEngine(cfg config.EstimateConfig) *Engine {
	return &Engine{cfg: cfg}
}

// CheckCompatibility validates a dataset against a pipeline's input
// requirements. It returns an *IncompatibleDatasetError with a readable
// reason on the first violated requirement, nil otherwise.
func (e *Engine) CheckCompatibility(dataset *models.Dataset, pipeline *models.PipelineDefinition) error {
	if !slices.Contains(pipeline.Input.DataTypes, dataset.Type) {
		return &IncompatibleDatasetError{Reason: fmt.Sprintf(
			"dataset type %s is not accepted by pipeline %q (accepts %v)",
			dataset.Type, pipeline.Name, pipeline.Input.DataTypes)}
	}
	if dataset.SampleCount < pipeline.Input.MinSamples {
		return &IncompatibleDatasetError{Reason: fmt.Sprintf(
			"dataset has %d samples but pipeline %q requires at least %d",
			dataset.SampleCount, pipeline.Name, pipeline.Input.MinSamples)}
	}
	if pipeline.Input.MaxSamples > 0 && dataset.SampleCount > pipeline.Input.MaxSamples {
		return &IncompatibleDatasetError{Reason: fmt.Sprintf(
			"dataset has %d samples but pipeline %q accepts at most %d",
			dataset.SampleCount, pipeline.Name, pipeline.Input.MaxSamples)}
	}
	return nil
}

// EstimateCost computes the up-front cost estimate:
// baseCost × max(1, samples/10) × max(1, features/1000), scaled by the
// priority multiplier and rounded to two decimals.
func (e *Engine) EstimateCost(pipeline *models.PipelineDefinition, dataset *models.Dataset, priority string) float64 {
	cost := pipeline.Compute.BaseCost
	cost *= math.Max(1, float64(dataset.SampleCount)/10)
	cost *= math.Max(1, float64(dataset.FeatureCount)/1000)

	switch priority {
	case models.PriorityHigh:
		cost *= e.cfg.HighPriorityMultiplier
	case models.PriorityUrgent:
		cost *= e.cfg.UrgentPriorityMultiplier
	}

	return round2(cost)
}

// EstimateRuntime computes the expected wall-clock runtime in seconds:
// baseRuntime × max(1, samples/10), rounded to the nearest second.
func (e *Engine) EstimateRuntime(pipeline *models.PipelineDefinition, dataset *models.Dataset) int {
	secs := float64(pipeline.EstimatedRuntime) * math.Max(1, float64(dataset.SampleCount)/10)
	return int(math.Round(secs))
}

// ActualCost computes the real cost from a finished job's wall-clock
// duration. When either timestamp is missing it falls back to the estimate;
// that fallback is deliberate, not an error.
func (e *Engine) ActualCost(job *models.AnalysisJob) float64 {
	if job.StartedAt == nil || job.CompletedAt == nil {
		return job.Cost.Estimated
	}
	minutes := job.CompletedAt.Sub(*job.StartedAt).Minutes()
	return round2(minutes * e.cfg.RatePerMinute)
}

// Breakdown splits a total cost by the configured fixed ratios.
func (e *Engine) Breakdown(total float64) models.CostBreakdown {
	return models.CostBreakdown{
		Compute:  round2(total * e.cfg.BreakdownComputeRatio),
		Storage:  round2(total * e.cfg.BreakdownStorageRatio),
		Transfer: round2(total * e.cfg.BreakdownTransferRatio),
		Other:    round2(total * e.cfg.BreakdownOtherRatio),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
