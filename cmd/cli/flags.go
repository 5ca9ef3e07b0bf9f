package main

import (
	"github.com/spf13/cobra"

	"gopi/app"
	"gopi/internal/config"
)

// experimentFlags are shared by the commands that run one experiment
type experimentFlags struct {
	trials        int
	points        int
	confidence    float64
	criticalValue float64
	seedKey       string
	workers       int
	offset        uint64
}

func (f *experimentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.trials, "trials", 0, "Number of independent trials (default PI_TRIALS)")
	cmd.Flags().IntVar(&f.points, "points", 0, "Points per trial (default PI_POINTS)")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "Two-sided confidence level, e.g. 0.95 (default PI_CONFIDENCE)")
	cmd.Flags().Float64Var(&f.criticalValue, "critical-value", 0, "Use this critical value instead of resolving one from --confidence")
	cmd.Flags().StringVar(&f.seedKey, "seed-key", "", "Comma-separated 32-bit key words, e.g. 0x123,0x234 (default PI_SEED_KEY)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Parallel workers; each owns a derived stream (default PI_WORKERS)")
	cmd.Flags().Uint64Var(&f.offset, "offset", 0, "Uniform draws to skip before the first trial; replays one run of a batch")
}

func (f *experimentFlags) request(cmd *cobra.Command) (app.ExperimentRequest, error) {
	req := app.ExperimentRequest{
		Trials:         f.trials,
		PointsPerTrial: f.points,
		Confidence:     f.confidence,
		Workers:        f.workers,
		StreamOffset:   f.offset,
	}
	if cmd.Flags().Changed("critical-value") {
		v := f.criticalValue
		req.CriticalValue = &v
	}

	key, err := parseKeyFlag(f.seedKey)
	if err != nil {
		return req, err
	}
	req.SeedKey = key
	return req, nil
}

// parseKeyFlag returns nil for an empty flag so the configured key applies
func parseKeyFlag(raw string) ([]uint32, error) {
	if raw == "" {
		return nil, nil
	}
	return config.ParseSeedKey(raw)
}
