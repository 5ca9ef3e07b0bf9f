// Package montecarlo estimates π by rejection sampling against the quarter unit
// disk and aggregates repeated trials into an experiment.
package montecarlo

import (
	"math"

	"gopi/domain/core"
	"gopi/domain/random"
)

// MaxTrialCount bounds the size of a single ExperimentResult. Larger requests
// fail with core.ErrResourceExhausted instead of attempting the allocation.
const MaxTrialCount = 1 << 26

// MaxConvergenceSteps bounds the point-count ladder ConvergenceSteps builds.
const MaxConvergenceSteps = 1 << 16

// EstimatePi runs one trial of pointCount samples and returns 4 * inside/pointCount.
// A point is inside when x²+y² <= 1, so points on the arc count. Exactly
// 2*pointCount values are drawn from src, x before y.
func EstimatePi(pointCount int, src random.Source) (TrialEstimate, error) {
	if pointCount <= 0 {
		return 0, core.NewArgumentError("pointCount", pointCount, "> 0")
	}

	inside := 0
	for i := 0; i < pointCount; i++ {
		x := src.NextUniform()
		y := src.NextUniform()
		if x*x+y*y <= 1.0 {
			inside++
		}
	}
	return TrialEstimate(4 * (float64(inside) / float64(pointCount))), nil
}

// RunExperiments runs trialCount trials of pointsPerTrial points each on one
// continuing stream. Trials are not reseeded between calls.
func RunExperiments(trialCount, pointsPerTrial int, src random.Source) (ExperimentResult, error) {
	if trialCount < 1 {
		return nil, core.NewArgumentError("trialCount", trialCount, ">= 1")
	}
	if pointsPerTrial < 1 {
		return nil, core.NewArgumentError("pointsPerTrial", pointsPerTrial, ">= 1")
	}
	if trialCount > MaxTrialCount {
		return nil, core.NewResourceError("trialCount", trialCount, MaxTrialCount)
	}

	result := make(ExperimentResult, trialCount)
	for i := range result {
		estimate, err := EstimatePi(pointsPerTrial, src)
		if err != nil {
			return nil, err
		}
		result[i] = estimate
	}
	return result, nil
}

// Convergence estimates π once per entry of pointCounts, in order, on one stream.
// All counts are validated before the first draw.
func Convergence(pointCounts []int, src random.Source) ([]ConvergencePoint, error) {
	if len(pointCounts) == 0 {
		return nil, core.NewArgumentError("pointCounts", "[]", "non-empty")
	}
	for _, n := range pointCounts {
		if n <= 0 {
			return nil, core.NewArgumentError("pointCount", n, "> 0")
		}
	}

	points := make([]ConvergencePoint, 0, len(pointCounts))
	for _, n := range pointCounts {
		estimate, err := EstimatePi(n, src)
		if err != nil {
			return nil, err
		}
		points = append(points, ConvergencePoint{
			PointCount:    n,
			Estimate:      estimate,
			AbsoluteError: math.Abs(math.Pi - float64(estimate)),
		})
	}
	return points, nil
}

// ConvergenceSteps returns start, start+step, ... below stop, skipping values < 1.
// An empty or inverted range yields nil. Ladders longer than MaxConvergenceSteps
// fail with core.ErrResourceExhausted before anything is allocated.
func ConvergenceSteps(start, stop, step int) ([]int, error) {
	if step <= 0 || stop <= start {
		return nil, nil
	}

	// unsigned arithmetic: stop-start can exceed math.MaxInt
	span := uint64(stop) - uint64(start)
	ustep := uint64(step)
	first := start
	if start < 1 {
		skip := (uint64(1) - uint64(start) + ustep - 1) / ustep * ustep
		if skip >= span {
			return nil, nil
		}
		first = int(uint64(start) + skip)
		span -= skip
	}

	count := (span-1)/ustep + 1
	if count > MaxConvergenceSteps {
		requested := math.MaxInt
		if count < math.MaxInt {
			requested = int(count)
		}
		return nil, core.NewResourceError("convergenceSteps", requested, MaxConvergenceSteps)
	}

	steps := make([]int, count)
	for i := range steps {
		steps[i] = first + i*step
	}
	return steps, nil
}
