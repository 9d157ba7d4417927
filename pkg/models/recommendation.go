package models

// Recommendation is an advisory, non-binding suggestion of a pipeline for a
// dataset. It is computed on demand and never persisted.
type Recommendation struct {
	Pipeline            PipelineDefinition `json:"pipeline"`
	Confidence          float64            `json:"confidence"`
	Reasoning           string             `json:"reasoning"`
	SuggestedParameters JobParameters      `json:"suggested_parameters"`
	ExpectedRuntimeSecs int                `json:"expected_runtime_seconds"`
	EstimatedCost       float64            `json:"estimated_cost"`
	Prerequisites       []string           `json:"prerequisites,omitempty"`
}
