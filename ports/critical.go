package ports

// CriticalValueProvider maps a trial count and confidence level to the
// critical value used to scale the standard error into a half-width.
// Confidence is two-sided, e.g. 0.95 for a 95% interval.
type CriticalValueProvider interface {
	CriticalValue(trialCount int, confidence float64) (float64, error)
	Name() string
}
