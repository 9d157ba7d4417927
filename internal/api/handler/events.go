package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prairiebio/genomehub/internal/api/response"
	"github.com/prairiebio/genomehub/internal/events"
	"github.com/prairiebio/genomehub/pkg/models"
)

// JobSubscriber exposes the per-job event topics of the in-process bus.
type JobSubscriber interface {
	SubscribeJob(jobID uuid.UUID) (<-chan events.JobEvent, func())
}

// NewJobEventsHandler returns an SSE handler for GET /api/v1/jobs/{jobID}/events.
// It replays the job's current state as the first event, then streams bus
// events until the job's topic closes (terminal state) or the client leaves.
func NewJobEventsHandler(svc JobService, bus JobSubscriber) http.HandlerFunc {
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

		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Streaming unsupported", nil)
			return
		}

		// Subscribe before the snapshot so no event between the two is lost;
		// clients tolerate a duplicate of the snapshot state.
		ch, cancel := bus.SubscribeJob(jobID)
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		writeEvent(w, events.JobEvent{JobID: job.ID, Status: job.Status, Progress: job.Progress})
		flusher.Flush()

		if models.IsTerminalStatus(job.Status) {
			return
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-ch:
				if !open {
					return
				}
				writeEvent(w, ev)
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.JobEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal job event", "error", err, "job_id", ev.JobID)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
