package montecarlo

// TrialEstimate is one π approximation from a single trial. It always lies in [0, 4].
type TrialEstimate float64

// ExperimentResult holds the trial estimates of one experiment, in call order.
type ExperimentResult []TrialEstimate

// Len returns the number of trials
func (r ExperimentResult) Len() int {
	return len(r)
}

// Values returns the estimates as plain floats for the statistics engine
func (r ExperimentResult) Values() []float64 {
	values := make([]float64, len(r))
	for i, e := range r {
		values[i] = float64(e)
	}
	return values
}

// ConvergencePoint is one step of a convergence sweep.
type ConvergencePoint struct {
	PointCount    int           `json:"point_count"`
	Estimate      TrialEstimate `json:"estimate"`
	AbsoluteError float64       `json:"absolute_error"`
}
