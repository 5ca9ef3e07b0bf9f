package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gopi/domain/core"
	"gopi/domain/montecarlo"
	"gopi/domain/random"
	"gopi/ports"
)

// trialRange is the contiguous block of trial indices one worker owns
type trialRange struct {
	start, end int
}

// partitionTrials splits trials into at most workers contiguous ranges; the first
// trials%workers ranges get one extra trial.
func partitionTrials(trials, workers int) []trialRange {
	if workers > trials {
		workers = trials
	}
	base, rem := trials/workers, trials%workers

	ranges := make([]trialRange, workers)
	start := 0
	for w := range ranges {
		size := base
		if w < rem {
			size++
		}
		ranges[w] = trialRange{start: start, end: start + size}
		start += size
	}
	return ranges
}

// RunParallel runs trials across workers. Worker w owns the stream derived from
// parent for index w and fills only its own trial range, so the result depends on
// (parent key, trials, workers) and not on scheduling. The parent stream is not advanced.
func RunParallel(ctx context.Context, rngPort ports.RNGPort, parent *random.RandomState, trials, pointsPerTrial, workers int) (montecarlo.ExperimentResult, error) {
	if trials < 1 {
		return nil, core.NewArgumentError("trialCount", trials, ">= 1")
	}
	if pointsPerTrial < 1 {
		return nil, core.NewArgumentError("pointsPerTrial", pointsPerTrial, ">= 1")
	}
	if workers < 1 {
		return nil, core.NewArgumentError("workers", workers, ">= 1")
	}
	if trials > montecarlo.MaxTrialCount {
		return nil, core.NewResourceError("trialCount", trials, montecarlo.MaxTrialCount)
	}

	ranges := partitionTrials(trials, workers)
	streams := make([]*random.RandomState, len(ranges))
	for w := range ranges {
		stream, err := rngPort.WorkerStream(parent, w)
		if err != nil {
			return nil, err
		}
		streams[w] = stream
	}

	result := make(montecarlo.ExperimentResult, trials)
	g, gctx := errgroup.WithContext(ctx)

	for w, r := range ranges {
		w, r := w, r
		g.Go(func() error {
			for i := r.start; i < r.end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				estimate, err := montecarlo.EstimatePi(pointsPerTrial, streams[w])
				if err != nil {
					return fmt.Errorf("worker %d trial %d: %w", w, i, err)
				}
				result[i] = estimate
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
