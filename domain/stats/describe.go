package stats

import (
	"math"

	descstats "github.com/montanaflynn/stats"

	"gopi/domain/core"
)

// AccuracyOf measures how far an estimate is from π.
func AccuracyOf(estimate float64) Accuracy {
	absErr := math.Abs(math.Pi - estimate)
	return Accuracy{
		Estimate:      estimate,
		AbsoluteError: absErr,
		RelativeError: absErr / math.Pi,
		Ratio:         estimate / math.Pi,
	}
}

// Describe summarizes the spread of the trial estimates
func Describe(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, core.NewArgumentError("values", "[]", "non-empty")
	}

	data := descstats.Float64Data(values)
	summary := Summary{Count: len(values)}

	var err error
	if summary.Min, err = descstats.Min(data); err != nil {
		return Summary{}, err
	}
	if summary.Max, err = descstats.Max(data); err != nil {
		return Summary{}, err
	}
	if summary.Median, err = descstats.Median(data); err != nil {
		return Summary{}, err
	}
	if summary.P025, err = descstats.PercentileNearestRank(data, 2.5); err != nil {
		return Summary{}, err
	}
	if summary.P975, err = descstats.PercentileNearestRank(data, 97.5); err != nil {
		return Summary{}, err
	}

	if len(values) > 1 {
		if summary.StdDev, err = descstats.StandardDeviationSample(data); err != nil {
			return Summary{}, err
		}
		summary.StdError = summary.StdDev / math.Sqrt(float64(len(values)))
	}

	return summary, nil
}
