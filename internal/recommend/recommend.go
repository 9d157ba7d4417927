// Package recommend scores catalog pipelines against a dataset and an
// optional free-text research question. Recommendations are advisory only
// and never block a run request.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prairiebio/genomehub/internal/config"
	"github.com/prairiebio/genomehub/pkg/models"
)

// Searcher is the catalog lookup the engine needs.
type Searcher interface {
	SearchCompatible(ctx context.Context, datasetType string) ([]*models.PipelineDefinition, error)
}

// Estimator provides cost and runtime estimates for candidate pipelines.
type Estimator interface {
	EstimateCost(pipeline *models.PipelineDefinition, dataset *models.Dataset, priority string) float64
	EstimateRuntime(pipeline *models.PipelineDefinition, dataset *models.Dataset) int
}

// Engine produces ranked, explained pipeline recommendations.
type Engine struct {
	catalog  Searcher
	estimate Estimator
	cfg      config.RecommendConfig
}

// New creates an Engine.
func New(catalog Searcher, estimate Estimator, cfg config.RecommendConfig) *Engine {
	return &Engine{catalog: catalog, estimate: estimate, cfg: cfg}
}

// Default suggested analysis parameters. Taken from the platform's standard
// statistical defaults: adjusted p < 0.05 with Benjamini-Hochberg FDR
// correction and a 1.5 fold-change threshold.
const (
	defaultPValue     = 0.05
	defaultFoldChange = 1.5
	defaultCorrection = "FDR_BH"
)

// Recommend scores every compatible catalog entry for the dataset. The
// candidate set is pre-filtered by dataset type, so the type-match weight
// always applies; the research question, when given, adds up to the
// configured question weight proportional to how many of its words appear
// in the pipeline description. Results are sorted by confidence descending;
// ties keep catalog order (usage count, then recency).
func (e *Engine) Recommend(ctx context.Context, dataset *models.Dataset, researchQuestion string) ([]models.Recommendation, error) {
	candidates, err := e.catalog.SearchCompatible(ctx, dataset.Type)
	if err != nil {
		return nil, fmt.Errorf("search compatible pipelines: %w", err)
	}

	recs := make([]models.Recommendation, 0, len(candidates))
	for _, p := range candidates {
		confidence := e.cfg.BaseConfidence + e.cfg.TypeMatchWeight
		confidence += e.cfg.QuestionWeightCap * questionOverlap(researchQuestion, p.Description)
		if confidence > 1.0 {
			confidence = 1.0
		}

		recs = append(recs, models.Recommendation{
			Pipeline:            *p,
			Confidence:          confidence,
			Reasoning:           reasoning(dataset, p, researchQuestion),
			SuggestedParameters: suggestedParameters(dataset),
			ExpectedRuntimeSecs: e.estimate.EstimateRuntime(p, dataset),
			EstimatedCost:       e.estimate.EstimateCost(p, dataset, models.PriorityNormal),
			Prerequisites:       prerequisites(dataset),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Confidence > recs[j].Confidence
	})
	return recs, nil
}

// questionOverlap returns the fraction of whitespace-separated words of the
// question that appear as substrings of the description, case-insensitive.
func questionOverlap(question, description string) float64 {
	words := strings.Fields(question)
	if len(words) == 0 {
		return 0
	}
	desc := strings.ToLower(description)
	matched := 0
	for _, w := range words {
		if strings.Contains(desc, strings.ToLower(w)) {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}

func reasoning(dataset *models.Dataset, p *models.PipelineDefinition, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline %q accepts %s data and your dataset has %d samples.",
		p.Name, dataset.Type, dataset.SampleCount)
	if question != "" {
		fmt.Fprintf(&b, " Matched against your research question: %q.", question)
	}
	return b.String()
}

func suggestedParameters(dataset *models.Dataset) models.JobParameters {
	minPerGroup := dataset.SampleCount / 10
	if minPerGroup < 3 {
		minPerGroup = 3
	}
	return models.JobParameters{
		PValueThreshold:     defaultPValue,
		FoldChangeThreshold: defaultFoldChange,
		CorrectionMethod:    defaultCorrection,
		Filtering: models.FilteringOptions{
			MinSamplesPerGroup: minPerGroup,
		},
	}
}

func prerequisites(dataset *models.Dataset) []string {
	var prereqs []string
	if dataset.Status != models.DatasetReady {
		prereqs = append(prereqs, fmt.Sprintf("dataset must be READY before analysis (currently %s)", dataset.Status))
	}
	if !dataset.QCPassed {
		prereqs = append(prereqs, "dataset is missing quality control results")
	}
	return prereqs
}
