package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/internal/api/response"
	"github.com/prairiebio/genomehub/pkg/models"
)

// Recommender scores pipelines for a dataset.
type Recommender interface {
	Recommend(ctx context.Context, dataset *models.Dataset, researchQuestion string) ([]models.Recommendation, error)
}

// DatasetSource resolves dataset ids for the recommendation handler.
type DatasetSource interface {
	GetDataset(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
}

// NewRecommendationsHandler returns an http.HandlerFunc for
// GET /api/v1/recommendations?dataset_id=...&question=...
func NewRecommendationsHandler(rec Recommender, datasets DatasetSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		datasetID, err := uuid.Parse(r.URL.Query().Get("dataset_id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "dataset_id must be a valid UUID", nil)
			return
		}

		dataset, err := datasets.GetDataset(r.Context(), datasetID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		recs, err := rec.Recommend(r.Context(), dataset, r.URL.Query().Get("question"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if recs == nil {
			recs = []models.Recommendation{}
		}
		response.JSON(w, recs)
	}
}
