// Package stats reduces an experiment's trial estimates to a mean, a
// Bessel-corrected variance and a confidence interval. The critical value is
// always supplied by the caller; this package holds no distribution tables.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gopi/domain/core"
)

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, core.NewArgumentError("values", "[]", "non-empty")
	}
	// a constant sample must average to exactly its value, so that its
	// variance and interval collapse to zero width
	if allEqual(values) {
		return values[0], nil
	}
	return stat.Mean(values, nil), nil
}

// SampleVariance returns Σ(v−mean)²/(K−1) around the supplied mean.
func SampleVariance(values []float64, mean float64) (float64, error) {
	if len(values) < 2 {
		return 0, core.NewArgumentError("values", len(values), "at least 2 samples")
	}

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values)-1), nil
}

// ComputeConfidenceInterval returns mean ± criticalValue·√(variance/K).
func ComputeConfidenceInterval(values []float64, criticalValue float64) (ConfidenceInterval, error) {
	if math.IsNaN(criticalValue) || math.IsInf(criticalValue, 0) || criticalValue < 0 {
		return ConfidenceInterval{}, core.NewArgumentError("criticalValue", criticalValue, "finite and >= 0")
	}
	if len(values) < 2 {
		return ConfidenceInterval{}, core.NewArgumentError("values", len(values), "at least 2 samples")
	}

	mean, err := Mean(values)
	if err != nil {
		return ConfidenceInterval{}, err
	}
	variance, err := SampleVariance(values, mean)
	if err != nil {
		return ConfidenceInterval{}, err
	}

	k := float64(len(values))
	halfWidth := criticalValue * math.Sqrt(variance/k)

	return ConfidenceInterval{
		Mean:          mean,
		Variance:      variance,
		HalfWidth:     halfWidth,
		LowerBound:    mean - halfWidth,
		UpperBound:    mean + halfWidth,
		Count:         len(values),
		CriticalValue: criticalValue,
	}, nil
}

func allEqual(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
