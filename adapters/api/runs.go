package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gopi/domain/core"
	"gopi/internal/errors"
)

// handleListRuns lists archived runs: ?limit= (default 50), ?fingerprint= to
// find earlier runs of the same parameters
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := s.service.History(r.Context(), limit, core.Hash(q.Get("fingerprint")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleGetRun returns an archived report, rendered like POST /api/experiments
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	_, ok := s.writers[format]
	if format != "" && format != "json" && !ok {
		s.writeError(w, r, errors.InvalidInput("unknown report format "+strconv.Quote(format)))
		return
	}

	report, err := s.service.Lookup(r.Context(), core.RunID(chi.URLParam(r, "id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if !ok {
		writeJSON(w, http.StatusOK, report)
		return
	}
	s.writeReport(w, r, report, format)
}
