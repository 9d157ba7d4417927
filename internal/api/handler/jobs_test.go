package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/prairiebio/genomehub/internal/api/middleware"
	"github.com/prairiebio/genomehub/internal/orchestrator"
	"github.com/prairiebio/genomehub/internal/store"
	"github.com/prairiebio/genomehub/pkg/models"
)

// --- mock job service ---

type mockJobService struct {
	submitFn func(ctx context.Context, userID uuid.UUID, req orchestrator.SubmitRequest) (*models.AnalysisJob, error)
	cancelFn func(ctx context.Context, userID, jobID uuid.UUID) (*models.AnalysisJob, error)
	cloneFn  func(ctx context.Context, userID, jobID uuid.UUID, mods orchestrator.CloneModifications) (*models.AnalysisJob, error)
	deleteFn func(ctx context.Context, userID, jobID uuid.UUID) error
	getFn    func(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error)
	listFn   func(ctx context.Context, projectID uuid.UUID, status string) ([]*models.AnalysisJob, error)
}

func (m *mockJobService) Submit(ctx context.Context, userID uuid.UUID, req orchestrator.SubmitRequest) (*models.AnalysisJob, error) {
	return m.submitFn(ctx, userID, req)
}

func (m *mockJobService) Cancel(ctx context.Context, userID, jobID uuid.UUID) (*models.AnalysisJob, error) {
	return m.cancelFn(ctx, userID, jobID)
}

func (m *mockJobService) Clone(ctx context.Context, userID, jobID uuid.UUID, mods orchestrator.CloneModifications) (*models.AnalysisJob, error) {
	return m.cloneFn(ctx, userID, jobID, mods)
}

func (m *mockJobService) Delete(ctx context.Context, userID, jobID uuid.UUID) error {
	return m.deleteFn(ctx, userID, jobID)
}

func (m *mockJobService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AnalysisJob, error) {
	return m.getFn(ctx, jobID)
}

func (m *mockJobService) ListJobs(ctx context.Context, projectID uuid.UUID, status string) ([]*models.AnalysisJob, error) {
	return m.listFn(ctx, projectID, status)
}

// --- helpers ---

func authedRequest(method, target string, body any, userID uuid.UUID) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.SetUserID(r.Context(), userID))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeErrCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error.Code
}

// --- tests ---

func TestSubmitJobHandler_Accepted(t *testing.T) {
	userID := uuid.New()
	var captured orchestrator.SubmitRequest

	svc := &mockJobService{
		submitFn: func(_ context.Context, uid uuid.UUID, req orchestrator.SubmitRequest) (*models.AnalysisJob, error) {
			if uid != userID {
				t.Errorf("expected user id %s, got %s", userID, uid)
			}
			captured = req
			return &models.AnalysisJob{ID: uuid.New(), Status: models.JobStatusQueued}, nil
		},
	}

	body := map[string]any{
		"project_id":  uuid.New().String(),
		"dataset_id":  uuid.New().String(),
		"pipeline_id": uuid.New().String(),
		"priority":    "HIGH",
	}

	rec := httptest.NewRecorder()
	NewSubmitJobHandler(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/jobs", body, userID))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Priority != models.PriorityHigh {
		t.Errorf("expected HIGH priority, got %q", captured.Priority)
	}
}

func TestSubmitJobHandler_InvalidBody(t *testing.T) {
	svc := &mockJobService{}
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing pipeline", map[string]any{"project_id": uuid.New().String(), "dataset_id": uuid.New().String()}},
		{"malformed uuid", map[string]any{"project_id": "nope", "dataset_id": uuid.New().String(), "pipeline_id": uuid.New().String()}},
		{"bad priority", map[string]any{"project_id": uuid.New().String(), "dataset_id": uuid.New().String(), "pipeline_id": uuid.New().String(), "priority": "EXTREME"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewSubmitJobHandler(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/jobs", tc.body, uuid.New()))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestSubmitJobHandler_Unauthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString("{}"))
	NewSubmitJobHandler(&mockJobService{}).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSubmitJobHandler_IncompatibleMapsTo422(t *testing.T) {
	svc := &mockJobService{
		submitFn: func(_ context.Context, _ uuid.UUID, _ orchestrator.SubmitRequest) (*models.AnalysisJob, error) {
			return nil, orchestrator.ErrDatasetNotReady
		},
	}

	body := map[string]any{
		"project_id":  uuid.New().String(),
		"dataset_id":  uuid.New().String(),
		"pipeline_id": uuid.New().String(),
	}

	rec := httptest.NewRecorder()
	NewSubmitJobHandler(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/jobs", body, uuid.New()))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if code := decodeErrCode(t, rec); code != "DATASET_NOT_READY" {
		t.Errorf("unexpected error code %q", code)
	}
}

func TestSubmitJobHandler_QueueFullMapsTo503(t *testing.T) {
	svc := &mockJobService{
		submitFn: func(_ context.Context, _ uuid.UUID, _ orchestrator.SubmitRequest) (*models.AnalysisJob, error) {
			return nil, orchestrator.ErrQueueFull
		},
	}

	body := map[string]any{
		"project_id":  uuid.New().String(),
		"dataset_id":  uuid.New().String(),
		"pipeline_id": uuid.New().String(),
	}

	rec := httptest.NewRecorder()
	NewSubmitJobHandler(svc).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/jobs", body, uuid.New()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := decodeErrCode(t, rec); code != "QUEUE_FULL" {
		t.Errorf("unexpected error code %q", code)
	}
}

func TestGetJobHandler_NotFound(t *testing.T) {
	svc := &mockJobService{
		getFn: func(_ context.Context, _ uuid.UUID) (*models.AnalysisJob, error) {
			return nil, store.ErrNotFound
		},
	}

	r := authedRequest(http.MethodGet, "/api/v1/jobs/x", nil, uuid.New())
	r = withURLParam(r, "jobID", uuid.New().String())

	rec := httptest.NewRecorder()
	NewGetJobHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetJobHandler_BadID(t *testing.T) {
	r := authedRequest(http.MethodGet, "/api/v1/jobs/x", nil, uuid.New())
	r = withURLParam(r, "jobID", "not-a-uuid")

	rec := httptest.NewRecorder()
	NewGetJobHandler(&mockJobService{}).ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListJobsHandler_RequiresProjectID(t *testing.T) {
	rec := httptest.NewRecorder()
	NewListJobsHandler(&mockJobService{}).ServeHTTP(rec,
		authedRequest(http.MethodGet, "/api/v1/jobs", nil, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListJobsHandler_EmptyListIsArray(t *testing.T) {
	svc := &mockJobService{
		listFn: func(_ context.Context, _ uuid.UUID, _ string) ([]*models.AnalysisJob, error) {
			return nil, nil
		},
	}

	rec := httptest.NewRecorder()
	target := "/api/v1/jobs?project_id=" + uuid.New().String()
	NewListJobsHandler(svc).ServeHTTP(rec, authedRequest(http.MethodGet, target, nil, uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env struct {
		Data []any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data == nil {
		t.Error("expected empty array, got null")
	}
}

func TestCancelJobHandler_InvalidStateMapsTo409(t *testing.T) {
	svc := &mockJobService{
		cancelFn: func(_ context.Context, _, _ uuid.UUID) (*models.AnalysisJob, error) {
			return nil, orchestrator.ErrInvalidState
		},
	}

	r := authedRequest(http.MethodPost, "/api/v1/jobs/x/cancel", nil, uuid.New())
	r = withURLParam(r, "jobID", uuid.New().String())

	rec := httptest.NewRecorder()
	NewCancelJobHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if code := decodeErrCode(t, rec); code != "INVALID_STATE" {
		t.Errorf("unexpected error code %q", code)
	}
}

func TestCloneJobHandler_EmptyBodyAllowed(t *testing.T) {
	called := false
	svc := &mockJobService{
		cloneFn: func(_ context.Context, _, _ uuid.UUID, mods orchestrator.CloneModifications) (*models.AnalysisJob, error) {
			called = true
			if mods.DatasetID != nil || mods.Parameters != nil || mods.Priority != nil {
				t.Error("expected empty modifications")
			}
			return &models.AnalysisJob{ID: uuid.New(), Status: models.JobStatusQueued}, nil
		},
	}

	r := authedRequest(http.MethodPost, "/api/v1/jobs/x/clone", nil, uuid.New())
	r = withURLParam(r, "jobID", uuid.New().String())

	rec := httptest.NewRecorder()
	NewCloneJobHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if !called {
		t.Error("clone service was not called")
	}
}

func TestCloneJobHandler_Overrides(t *testing.T) {
	newDataset := uuid.New()
	svc := &mockJobService{
		cloneFn: func(_ context.Context, _, _ uuid.UUID, mods orchestrator.CloneModifications) (*models.AnalysisJob, error) {
			if mods.DatasetID == nil || *mods.DatasetID != newDataset {
				t.Errorf("expected dataset override %s, got %v", newDataset, mods.DatasetID)
			}
			return &models.AnalysisJob{ID: uuid.New(), Status: models.JobStatusQueued}, nil
		},
	}

	body := map[string]any{"dataset_id": newDataset.String()}
	r := authedRequest(http.MethodPost, "/api/v1/jobs/x/clone", body, uuid.New())
	r = withURLParam(r, "jobID", uuid.New().String())

	rec := httptest.NewRecorder()
	NewCloneJobHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestDeleteJobHandler_Forbidden(t *testing.T) {
	svc := &mockJobService{
		deleteFn: func(_ context.Context, _, _ uuid.UUID) error {
			return orchestrator.ErrPermission
		},
	}

	r := authedRequest(http.MethodDelete, "/api/v1/jobs/x", nil, uuid.New())
	r = withURLParam(r, "jobID", uuid.New().String())

	rec := httptest.NewRecorder()
	NewDeleteJobHandler(svc).ServeHTTP(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
