package stats

// ConfidenceInterval is derived from K trial estimates and a critical value t.
// LowerBound = Mean − HalfWidth, UpperBound = Mean + HalfWidth,
// HalfWidth = t·√(Variance/K).
type ConfidenceInterval struct {
	Mean          float64 `json:"mean"`
	Variance      float64 `json:"variance"`
	HalfWidth     float64 `json:"half_width"`
	LowerBound    float64 `json:"lower_bound"`
	UpperBound    float64 `json:"upper_bound"`
	Count         int     `json:"count"`
	CriticalValue float64 `json:"critical_value"`
}

// Contains reports whether v lies within the closed interval
func (ci ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.LowerBound && v <= ci.UpperBound
}

// Width returns UpperBound − LowerBound
func (ci ConfidenceInterval) Width() float64 {
	return ci.UpperBound - ci.LowerBound
}

// Accuracy compares an estimate against math.Pi.
type Accuracy struct {
	Estimate      float64 `json:"estimate"`
	AbsoluteError float64 `json:"absolute_error"`
	RelativeError float64 `json:"relative_error"`
	Ratio         float64 `json:"ratio"` // estimate / π
}

// Summary holds descriptive statistics of the trial estimates.
type Summary struct {
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"` // sample standard deviation, 0 for one value
	StdError float64 `json:"std_error"`
	P025     float64 `json:"p2_5"`
	P975     float64 `json:"p97_5"`
}
