package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gopi/adapters/plan"
	"gopi/app"
	"gopi/domain/core"
	"gopi/internal/errors"
	"gopi/internal/jobs"
)

const eventKeepAlive = 30 * time.Second

// WithJobs enables the /api/jobs routes backed by m
func (s *Server) WithJobs(m *jobs.Manager) *Server {
	s.jobs = m
	return s
}

func (s *Server) jobRoutes(r chi.Router) {
	r.Use(s.requireJobs)
	r.Post("/", s.handleSubmitJob)
	r.Get("/", s.handleListJobs)
	r.Post("/batch", s.handleSubmitBatchJob)
	r.Get("/{id}", s.handleGetJob)
	r.Delete("/{id}", s.handleCancelJob)
	r.Get("/{id}/events", s.handleJobEvents)
}

func (s *Server) requireJobs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.jobs == nil {
			s.writeError(w, r, errors.NotFound("job queue"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req app.ExperimentRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.jobs.SubmitExperiment(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleSubmitBatchJob(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	p, err := plan.Parse(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.jobs.SubmitBatch(p.SeedKey, p.Runs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// handleListJobs lists jobs, optionally filtered by ?state=
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	state := jobs.State(r.URL.Query().Get("state"))
	switch state {
	case "", jobs.StateQueued, jobs.StateRunning, jobs.StateCompleted, jobs.StateFailed, jobs.StateCancelled:
	default:
		s.writeError(w, r, errors.InvalidInput("unknown job state "+strconv.Quote(string(state))))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.jobs.List(state)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(core.ID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Cancel(core.ID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleJobEvents streams state changes of one job as server-sent events. The
// current state is sent first; the stream ends once the job is finished.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, errors.InternalError("streaming unsupported"))
		return
	}

	id := core.ID(chi.URLParam(r, "id"))
	// subscribe before reading the state so no transition is missed
	events, unsubscribe := s.jobs.Hub().Subscribe(id)
	defer unsubscribe()

	job, err := s.jobs.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	// the server write timeout would otherwise cut long streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	s.sendEvent(w, "state", jobs.Event{JobID: job.ID, State: job.State, Error: job.Error, Timestamp: time.Now()})
	flusher.Flush()
	if job.State.Finished() {
		return
	}

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			s.sendEvent(w, "state", event)
			flusher.Flush()
			if event.State.Finished() {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%q}\n\n", time.Now().Format(time.RFC3339))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) sendEvent(w io.Writer, name string, event jobs.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal job event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
