package estimate

import (
	"errors"
	"testing"
	"time"

	"github.com/prairiebio/genomehub/internal/config"
	"github.com/prairiebio/genomehub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.EstimateConfig {
	return config.EstimateConfig{
		HighPriorityMultiplier:   1.5,
		UrgentPriorityMultiplier: 2.0,
		RatePerMinute:            0.5,
		BreakdownComputeRatio:    0.70,
		BreakdownStorageRatio:    0.20,
		BreakdownTransferRatio:   0.05,
		BreakdownOtherRatio:      0.05,
	}
}

func pipelineWith(baseCost float64, runtime int) *models.PipelineDefinition {
	return &models.PipelineDefinition{
		Name:             "Differential Expression",
		Compute:          models.ComputeRequirements{BaseCost: baseCost},
		EstimatedRuntime: runtime,
		Input: models.InputRequirements{
			DataTypes:  []string{models.DataTypeRNASeq},
			MinSamples: 6,
		},
	}
}

func datasetWith(samples, features int) *models.Dataset {
	return &models.Dataset{
		Type:         models.DataTypeRNASeq,
		Status:       models.DatasetReady,
		SampleCount:  samples,
		FeatureCount: features,
	}
}

func TestEstimateCost(t *testing.T) {
	e := NewEngine(testConfig())

	// 8.50 base, 12 samples -> x1.2, 20000 features -> x20.
	got := e.EstimateCost(pipelineWith(8.50, 1800), datasetWith(12, 20000), models.PriorityNormal)
	assert.Equal(t, 204.0, got)

	// Small datasets never scale below the base cost.
	got = e.EstimateCost(pipelineWith(8.50, 1800), datasetWith(3, 500), models.PriorityNormal)
	assert.Equal(t, 8.50, got)

	// Priority multipliers.
	assert.Equal(t, 306.0, e.EstimateCost(pipelineWith(8.50, 1800), datasetWith(12, 20000), models.PriorityHigh))
	assert.Equal(t, 408.0, e.EstimateCost(pipelineWith(8.50, 1800), datasetWith(12, 20000), models.PriorityUrgent))
}

func TestEstimateCost_Deterministic(t *testing.T) {
	e := NewEngine(testConfig())
	p := pipelineWith(4.00, 900)
	d := datasetWith(37, 12345)

	first := e.EstimateCost(p, d, models.PriorityHigh)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.EstimateCost(p, d, models.PriorityHigh))
	}
}

func TestEstimateRuntime(t *testing.T) {
	e := NewEngine(testConfig())

	assert.Equal(t, 2160, e.EstimateRuntime(pipelineWith(8.50, 1800), datasetWith(12, 20000)))
	// Sample scaling never shrinks the base runtime.
	assert.Equal(t, 1800, e.EstimateRuntime(pipelineWith(8.50, 1800), datasetWith(5, 1000)))
}

func TestCheckCompatibility(t *testing.T) {
	e := NewEngine(testConfig())
	p := pipelineWith(8.50, 1800)

	require.NoError(t, e.CheckCompatibility(datasetWith(12, 20000), p))

	var incompat *IncompatibleDatasetError

	wrongType := datasetWith(12, 20000)
	wrongType.Type = models.DataTypeClinical
	err := e.CheckCompatibility(wrongType, p)
	require.True(t, errors.As(err, &incompat))
	assert.Contains(t, incompat.Reason, "not accepted")

	err = e.CheckCompatibility(datasetWith(5, 20000), p)
	require.True(t, errors.As(err, &incompat))
	assert.Contains(t, incompat.Reason, "at least 6")

	// Exactly at the minimum is compatible.
	require.NoError(t, e.CheckCompatibility(datasetWith(6, 20000), p))

	// MaxSamples of zero means unbounded.
	require.NoError(t, e.CheckCompatibility(datasetWith(100000, 20000), p))

	p.Input.MaxSamples = 50
	err = e.CheckCompatibility(datasetWith(51, 20000), p)
	require.True(t, errors.As(err, &incompat))
	assert.Contains(t, incompat.Reason, "at most 50")
	require.NoError(t, e.CheckCompatibility(datasetWith(50, 20000), p))
}

func TestActualCost(t *testing.T) {
	e := NewEngine(testConfig())

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := started.Add(40 * time.Minute)

	job := &models.AnalysisJob{
		Cost:        models.Cost{Estimated: 204.0},
		StartedAt:   &started,
		CompletedAt: &completed,
	}
	assert.Equal(t, 20.0, e.ActualCost(job))

	// Missing timestamps fall back to the estimate.
	job.StartedAt = nil
	assert.Equal(t, 204.0, e.ActualCost(job))
}

func TestBreakdown(t *testing.T) {
	e := NewEngine(testConfig())

	b := e.Breakdown(200.0)
	assert.Equal(t, 140.0, b.Compute)
	assert.Equal(t, 40.0, b.Storage)
	assert.Equal(t, 10.0, b.Transfer)
	assert.Equal(t, 10.0, b.Other)
}
