package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/prairiebio/genomehub/internal/api/middleware"
	"github.com/prairiebio/genomehub/internal/api/response"
	"github.com/prairiebio/genomehub/internal/catalog"
	"github.com/prairiebio/genomehub/pkg/models"
)

// CatalogService defines the pipeline catalog operations the handlers use.
type CatalogService interface {
	Register(ctx context.Context, p *models.PipelineDefinition) (*models.PipelineDefinition, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PipelineDefinition, error)
	SearchCompatible(ctx context.Context, datasetType string) ([]*models.PipelineDefinition, error)
	Update(ctx context.Context, id, authorID uuid.UUID, patch catalog.Patch) (*models.PipelineDefinition, error)
	Publish(ctx context.Context, id, authorID uuid.UUID) (*models.PipelineDefinition, error)
	Delete(ctx context.Context, id, authorID uuid.UUID) error
}

type registerPipelineRequest struct {
	Name              string                     `json:"name" validate:"required"`
	Description       string                     `json:"description"`
	Documentation     string                     `json:"documentation"`
	Category          string                     `json:"category"`
	Steps             []models.Step              `json:"steps" validate:"required"`
	Input             models.InputRequirements   `json:"input_requirements"`
	Compute           models.ComputeRequirements `json:"compute_requirements"`
	OutputDescription string                     `json:"output_description" validate:"required"`
	EstimatedRuntime  int                        `json:"estimated_runtime_seconds" validate:"omitempty,min=1"`
}

// NewRegisterPipelineHandler returns an http.HandlerFunc for POST /api/v1/pipelines.
func NewRegisterPipelineHandler(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req registerPipelineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if err := validate.Struct(req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		p, err := svc.Register(r.Context(), &models.PipelineDefinition{
			Name:              req.Name,
			Description:       req.Description,
			Documentation:     req.Documentation,
			Category:          req.Category,
			Steps:             req.Steps,
			Input:             req.Input,
			Compute:           req.Compute,
			OutputDescription: req.OutputDescription,
			EstimatedRuntime:  req.EstimatedRuntime,
			AuthorID:          &userID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Created(w, p)
	}
}

// NewGetPipelineHandler returns an http.HandlerFunc for GET /api/v1/pipelines/{pipelineID}.
func NewGetPipelineHandler(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "pipelineID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "pipelineID must be a valid UUID", nil)
			return
		}

		p, err := svc.GetByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewListPipelinesHandler returns an http.HandlerFunc for GET /api/v1/pipelines.
func NewListPipelinesHandler(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataType := r.URL.Query().Get("data_type")
		if dataType == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "data_type is required", nil)
			return
		}

		pipelines, err := svc.SearchCompatible(r.Context(), dataType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if pipelines == nil {
			pipelines = []*models.PipelineDefinition{}
		}
		response.JSON(w, pipelines)
	}
}

type updatePipelineRequest struct {
	Name          *string       `json:"name"`
	Description   *string       `json:"description"`
	Documentation *string       `json:"documentation"`
	Steps         []models.Step `json:"steps"`
	Public        *bool         `json:"public"`
}

// NewUpdatePipelineHandler returns an http.HandlerFunc for PATCH /api/v1/pipelines/{pipelineID}.
func NewUpdatePipelineHandler(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "pipelineID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "pipelineID must be a valid UUID", nil)
			return
		}

		var req updatePipelineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		p, err := svc.Update(r.Context(), id, userID, catalog.Patch{
			Name:          req.Name,
			Description:   req.Description,
			Documentation: req.Documentation,
			Steps:         req.Steps,
			Public:        req.Public,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewPublishPipelineHandler returns an http.HandlerFunc for POST /api/v1/pipelines/{pipelineID}/publish.
func NewPublishPipelineHandler(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "pipelineID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "pipelineID must be a valid UUID", nil)
			return
		}

		p, err := svc.Publish(r.Context(), id, userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, p)
	}
}

// NewDeletePipelineHandler returns an http.HandlerFunc for DELETE /api/v1/pipelines/{pipelineID}.
func NewDeletePipelineHandler(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "pipelineID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "pipelineID must be a valid UUID", nil)
			return
		}

		if err := svc.Delete(r.Context(), id, userID); err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, map[string]bool{"deleted": true})
	}
}
