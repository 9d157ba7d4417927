package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	mw "github.com/prairiebio/genomehub/internal/api/middleware"
	"github.com/prairiebio/genomehub/internal/api/response"
	"github.com/prairiebio/genomehub/internal/orchestrator"
	"github.com/prairiebio/genomehub/pkg/models"
)

var validate = validator.New()

// JobService defines the lifecycle operations the handlers depend on.
type JobService interface {
	Submit(ctx context.Context, userID uuid.UUID, req orchestrator.SubmitRequest) (*models.AnalysisJob, error)
	Cancel(ctx context.Context, userID, jobID uuid.UUID) (*models.AnalysisJob, error)
	Clone(ctx context.Context, userID, jobID uuid.UUID, mods orchestrator.CloneModifications) (*models.AnalysisJob, error)
	Delete(ctx context.Context, userID, jobID uuid.UUID) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error)
	ListJobs(ctx context.Context, projectID uuid.UUID, status string) ([]*models.AnalysisJob, error)
}

type submitJobRequest struct {
	ProjectID  string               `json:"project_id" validate:"required,uuid"`
	DatasetID  string               `json:"dataset_id" validate:"required,uuid"`
	PipelineID string               `json:"pipeline_id" validate:"required,uuid"`
	Parameters models.JobParameters `json:"parameters"`
	Priority   string               `json:"priority" validate:"omitempty,oneof=NORMAL HIGH URGENT"`
}

// NewSubmitJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewSubmitJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}

		var req submitJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if err := validate.Struct(req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		job, err := svc.Submit(r.Context(), userID, orchestrator.SubmitRequest{
			ProjectID:  uuid.MustParse(req.ProjectID),
			DatasetID:  uuid.MustParse(req.DatasetID),
			PipelineID: uuid.MustParse(req.PipelineID),
			Parameters: req.Parameters,
			Priority:   req.Priority,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Accepted(w, job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), jobID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/v1/jobs.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuid.Parse(r.URL.Query().Get("project_id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "project_id must be a valid UUID", nil)
			return
		}

		status := r.URL.Query().Get("status")
		jobs, err := svc.ListJobs(r.Context(), projectID, status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if jobs == nil {
			jobs = []*models.AnalysisJob{}
		}
		response.JSON(w, jobs)
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/cancel.
func NewCancelJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		job, err := svc.Cancel(r.Context(), userID, jobID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

type cloneJobRequest struct {
	DatasetID  *string               `json:"dataset_id" validate:"omitempty,uuid"`
	PipelineID *string               `json:"pipeline_id" validate:"omitempty,uuid"`
	Parameters *models.JobParameters `json:"parameters"`
	Priority   *string               `json:"priority" validate:"omitempty,oneof=NORMAL HIGH URGENT"`
}

// NewCloneJobHandler returns an http.HandlerFunc for POST /api/v1/jobs/{jobID}/clone.
func NewCloneJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		var req cloneJobRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
			if err := validate.Struct(req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return
			}
		}

		mods := orchestrator.CloneModifications{
			Parameters: req.Parameters,
			Priority:   req.Priority,
		}
		if req.DatasetID != nil {
			id := uuid.MustParse(*req.DatasetID)
			mods.DatasetID = &id
		}
		if req.PipelineID != nil {
			id := uuid.MustParse(*req.PipelineID)
			mods.PipelineID = &id
		}

		job, err := svc.Clone(r.Context(), userID, jobID, mods)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.Accepted(w, job)
	}
}

// NewDeleteJobHandler returns an http.HandlerFunc for DELETE /api/v1/jobs/{jobID}.
func NewDeleteJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := mw.GetUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing user", nil)
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
			return
		}

		if err := svc.Delete(r.Context(), userID, jobID); err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, map[string]bool{"deleted": true})
	}
}
