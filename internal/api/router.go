package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/prairiebio/genomehub/internal/api/middleware"
	"github.com/prairiebio/genomehub/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	SubmitJob  http.HandlerFunc
	GetJob     http.HandlerFunc
	ListJobs   http.HandlerFunc
	CancelJob  http.HandlerFunc
	CloneJob   http.HandlerFunc
	DeleteJob  http.HandlerFunc
	JobEvents  http.HandlerFunc

	RegisterPipeline http.HandlerFunc
	GetPipeline      http.HandlerFunc
	ListPipelines    http.HandlerFunc
	UpdatePipeline   http.HandlerFunc
	PublishPipeline  http.HandlerFunc
	DeletePipeline   http.HandlerFunc

	Recommendations http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/jobs", orNotImplemented(deps.SubmitJob))
		r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelJob))
		r.Post("/api/v1/jobs/{jobID}/clone", orNotImplemented(deps.CloneJob))
		r.Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.DeleteJob))
		r.Get("/api/v1/jobs/{jobID}/events", orNotImplemented(deps.JobEvents))

		r.Post("/api/v1/pipelines", orNotImplemented(deps.RegisterPipeline))
		r.Get("/api/v1/pipelines", orNotImplemented(deps.ListPipelines))
		r.Get("/api/v1/pipelines/{pipelineID}", orNotImplemented(deps.GetPipeline))
		r.Patch("/api/v1/pipelines/{pipelineID}", orNotImplemented(deps.UpdatePipeline))
		r.Post("/api/v1/pipelines/{pipelineID}/publish", orNotImplemented(deps.PublishPipeline))
		r.Delete("/api/v1/pipelines/{pipelineID}", orNotImplemented(deps.DeletePipeline))

		r.Get("/api/v1/recommendations", orNotImplemented(deps.Recommendations))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
