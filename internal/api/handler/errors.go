package handler

import (
	"errors"
	"net/http"

	"github.com/prairiebio/genomehub/internal/api/response"
	"github.com/prairiebio/genomehub/internal/catalog"
	"github.com/prairiebio/genomehub/internal/estimate"
	"github.com/prairiebio/genomehub/internal/orchestrator"
	"github.com/prairiebio/genomehub/internal/store"
)

// writeServiceError maps domain errors to the JSON error envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *catalog.ValidationError
	var incompatibleErr *estimate.IncompatibleDatasetError

	switch {
	case errors.As(err, &validationErr):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Reason, nil)
	case errors.As(err, &incompatibleErr):
		response.Error(w, http.StatusUnprocessableEntity, "INCOMPATIBLE_DATASET", incompatibleErr.Reason, nil)
	case errors.Is(err, orchestrator.ErrDatasetNotReady):
		response.Error(w, http.StatusUnprocessableEntity, "DATASET_NOT_READY", err.Error(), nil)
	case errors.Is(err, orchestrator.ErrPermission), errors.Is(err, catalog.ErrPermission):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, orchestrator.ErrInvalidState):
		response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, catalog.ErrAlreadyPublic):
		response.Error(w, http.StatusConflict, "ALREADY_PUBLIC", "Pipeline is already public", nil)
	case errors.Is(err, catalog.ErrImmutable):
		response.Error(w, http.StatusConflict, "IMMUTABLE", "System default pipelines cannot be modified", nil)
	case errors.Is(err, catalog.ErrInUse):
		response.Error(w, http.StatusConflict, "IN_USE", "Pipeline is referenced by existing jobs", nil)
	case errors.Is(err, orchestrator.ErrQueueFull):
		response.Error(w, http.StatusServiceUnavailable, "QUEUE_FULL", "Execution queue is full, retry later", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}
