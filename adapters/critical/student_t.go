// Package critical supplies critical values for confidence intervals. The
// statistics engine never looks these up itself; callers pick a provider.
package critical

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gopi/domain/core"
)

// StudentT computes exact two-sided Student's t quantiles with K−1 degrees of freedom
type StudentT struct{}

// NewStudentT creates a Student's t provider
func NewStudentT() *StudentT {
	return &StudentT{}
}

// Name identifies the provider in logs and reports
func (st *StudentT) Name() string { return "student-t" }

// CriticalValue returns t such that P(|T| <= t) = confidence for T ~ t(trialCount−1)
func (st *StudentT) CriticalValue(trialCount int, confidence float64) (float64, error) {
	if err := validate(trialCount, confidence); err != nil {
		return 0, err
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(trialCount - 1)}
	alpha := 1 - confidence
	return tDist.Quantile(1 - alpha/2), nil
}

func validate(trialCount int, confidence float64) error {
	if trialCount < 2 {
		return core.NewArgumentError("trialCount", trialCount, ">= 2")
	}
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return core.NewArgumentError("confidence", confidence, "in (0, 1)")
	}
	return nil
}
