package api

import (
	"bytes"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"

	"gopi/adapters/plan"
	"gopi/app"
	"gopi/domain/montecarlo"
	"gopi/domain/run"
	"gopi/domain/stats"
	"gopi/internal/errors"
)

type estimateRequest struct {
	Points  int      `json:"points"`
	SeedKey []uint32 `json:"seed_key,omitempty"`
}

type estimateResponse struct {
	Points   int            `json:"points"`
	Estimate float64        `json:"estimate"`
	Accuracy stats.Accuracy `json:"accuracy"`
}

type convergenceRequest struct {
	Counts  []int    `json:"counts,omitempty"`
	Start   int      `json:"start,omitempty"`
	Stop    int      `json:"stop,omitempty"`
	Step    int      `json:"step,omitempty"`
	SeedKey []uint32 `json:"seed_key,omitempty"`
}

type intervalRequest struct {
	Values        []float64 `json:"values"`
	CriticalValue *float64  `json:"critical_value,omitempty"`
	Confidence    float64   `json:"confidence,omitempty"`
}

type intervalResponse struct {
	Interval       stats.ConfidenceInterval `json:"interval"`
	CriticalSource string                   `json:"critical_source"`
	CoversPi       bool                     `json:"covers_pi"`
}

type criticalValueResponse struct {
	Trials     int     `json:"trials"`
	Confidence float64 `json:"confidence,omitempty"` // omitted when the configured default applied
	Value      float64 `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEstimate runs a single trial
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	estimate, err := s.service.Estimate(r.Context(), req.Points, req.SeedKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, estimateResponse{
		Points:   req.Points,
		Estimate: float64(estimate),
		Accuracy: stats.AccuracyOf(float64(estimate)),
	})
}

// handleConvergence estimates π at explicit point counts or over a start/stop/step sweep
func (s *Server) handleConvergence(w http.ResponseWriter, r *http.Request) {
	var req convergenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	counts := req.Counts
	if len(counts) == 0 {
		if req.Step < 1 {
			s.writeError(w, r, errors.InvalidInput("either counts or a positive step is required"))
			return
		}
		steps, err := montecarlo.ConvergenceSteps(req.Start, req.Stop, req.Step)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		counts = steps
	}

	points, err := s.service.Convergence(r.Context(), counts, req.SeedKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"points": points})
}

// handleExperiment runs one experiment. The report is JSON unless the format
// query parameter names a registered report writer.
func (s *Server) handleExperiment(w http.ResponseWriter, r *http.Request) {
	var req app.ExperimentRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	_, ok := s.writers[format]
	if format != "" && format != "json" && !ok {
		s.writeError(w, r, errors.InvalidInput("unknown report format "+strconv.Quote(format)))
		return
	}

	report, err := s.service.Run(r.Context(), req)
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

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, report *run.Report, format string) {
	var buf bytes.Buffer
	if err := s.writers[format].WriteReport(&buf, report); err != nil {
		s.writeError(w, r, errors.Wrap(err, "failed to render report"))
		return
	}

	contentType := mime.TypeByExtension("." + format)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Manifest.RunID.String()+"."+format+`"`)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, &buf)
}

// handleBatch runs a batch plan on one continuing stream
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
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

	reports, err := s.service.Batch(r.Context(), p.SeedKey, p.Runs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// handleInterval computes an interval over caller-supplied estimates
func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	interval, source, err := s.service.Interval(r.Context(), req.Values, req.CriticalValue, req.Confidence)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intervalResponse{
		Interval:       interval,
		CriticalSource: source,
		CoversPi:       interval.Contains(math.Pi),
	})
}

// handleCriticalValue resolves ?trials=&confidence=
func (s *Server) handleCriticalValue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trials, err := strconv.Atoi(q.Get("trials"))
	if err != nil {
		s.writeError(w, r, errors.InvalidInput("trials must be an integer"))
		return
	}
	var confidence float64
	if raw := q.Get("confidence"); raw != "" {
		if confidence, err = strconv.ParseFloat(raw, 64); err != nil {
			s.writeError(w, r, errors.InvalidInput("confidence must be a number"))
			return
		}
	}

	value, err := s.service.CriticalValue(trials, confidence)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, criticalValueResponse{Trials: trials, Confidence: confidence, Value: value})
}

// handleCriticalTable lists the reference table
func (s *Server) handleCriticalTable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    s.reference.Name(),
		"entries": s.reference.Entries(),
	})
}
