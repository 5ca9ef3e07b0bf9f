// Package api serves the experiment service over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gopi/adapters/critical"
	"gopi/app"
	"gopi/internal"
	"gopi/internal/errors"
	"gopi/internal/jobs"
	"gopi/ports"
)

// Server routes HTTP requests to the experiment service
type Server struct {
	router    *chi.Mux
	service   *app.ExperimentService
	reference *critical.Table
	writers   map[string]ports.ReportWriter
	jobs      *jobs.Manager
	logger    *internal.Logger
}

// NewServer creates the API server. Report writers are selected by their
// extension through the format query parameter of POST /api/experiments.
// The /api/jobs routes answer 404 until WithJobs attaches a job manager.
func NewServer(service *app.ExperimentService, logger *internal.Logger, writers ...ports.ReportWriter) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	s := &Server{
		router:    chi.NewRouter(),
		service:   service,
		reference: critical.ReferenceTable(),
		writers:   make(map[string]ports.ReportWriter, len(writers)),
		logger:    logger.WithComponent("api"),
	}
	for _, w := range writers {
		s.writers[w.Extension()] = w
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/estimate", s.handleEstimate)
		r.Post("/convergence", s.handleConvergence)
		r.Post("/experiments", s.handleExperiment)
		r.Post("/batches", s.handleBatch)
		r.Post("/intervals", s.handleInterval)
		r.Get("/critical-value", s.handleCriticalValue)
		r.Get("/critical-values", s.handleCriticalTable)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Route("/jobs", s.jobRoutes)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with {"code","error"} and the status mapped from the error code
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.logger.Debug("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{
		"code":  appErr.Code,
		"error": appErr.Error(),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "invalid request body"))
	}
	return nil
}
