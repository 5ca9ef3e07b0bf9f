package run

import (
	"math"
	"time"

	"gopi/domain/montecarlo"
	"gopi/domain/stats"
)

// Report is the full outcome of one experiment run
type Report struct {
	Manifest  *Manifest                   `json:"manifest"`
	Estimates montecarlo.ExperimentResult `json:"estimates"`
	Interval  stats.ConfidenceInterval    `json:"interval"`
	Accuracy  stats.Accuracy              `json:"accuracy"`
	Summary   stats.Summary               `json:"summary"`
	Shape     stats.Shape                 `json:"shape"`
	Elapsed   time.Duration               `json:"elapsed_ns"`
}

// CoversPi reports whether the interval contains π
func (r *Report) CoversPi() bool {
	return r.Interval.Contains(math.Pi)
}
