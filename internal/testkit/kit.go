package testkit

import (
	"context"
	"io"
	"time"

	"gopi/adapters/critical"
	"gopi/adapters/rng"
	"gopi/app"
	"gopi/domain/core"
	"gopi/domain/montecarlo"
	"gopi/domain/run"
	"gopi/domain/stats"
	"gopi/internal"
	"gopi/internal/config"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	Defaults config.ExperimentConfig
	Logger   *internal.Logger
}

// NewTestKit creates a kit with small experiment defaults and a silent logger
func NewTestKit() *TestKit {
	defaults := config.Default().Experiment
	defaults.Trials = 10
	defaults.PointsPerTrial = 1000
	defaults.MaxTrials = 500
	defaults.MaxPointsPerTrial = 50000

	logger := internal.NewLogger(internal.LogLevelError)
	logger.SetOutput(io.Discard)

	return &TestKit{Defaults: defaults, Logger: logger}
}

// ExperimentService wires a service over the real stream factory and the
// critical values named by Defaults.CriticalValues
func (k *TestKit) ExperimentService() *app.ExperimentService {
	chain, err := critical.ForName(k.Defaults.CriticalValues)
	if err != nil {
		panic(err)
	}
	return app.NewExperimentService(rng.NewStreamFactory(), chain, k.Defaults, k.Logger)
}

// SampleReport runs a real 10 × 1000 experiment on the default key
func (k *TestKit) SampleReport() (*run.Report, error) {
	return k.ExperimentService().Run(context.Background(), app.ExperimentRequest{})
}

// FixedReport builds a report over the estimates {1, 2, 3} with t = 2, whose
// interval is known exactly: mean 2, variance 1, half-width 2/√3.
func FixedReport() *run.Report {
	estimates := montecarlo.ExperimentResult{1, 2, 3}
	interval, err := stats.ComputeConfidenceInterval(estimates.Values(), 2.0)
	if err != nil {
		panic(err)
	}
	summary, err := stats.Describe(estimates.Values())
	if err != nil {
		panic(err)
	}

	manifest := run.NewManifest(3, 100, 0, 2.0, []uint32{0x123, 0x234, 0x345, 0x456}, 1, 0)
	manifest.RunID = core.RunID("0190b8a2-6c3e-7000-8000-000000000001")
	manifest.CriticalSource = "explicit"

	return &run.Report{
		Manifest:  manifest,
		Estimates: estimates,
		Interval:  interval,
		Accuracy:  stats.AccuracyOf(interval.Mean),
		Summary:   summary,
		Shape:     stats.ShapeOf(estimates.Values()),
		Elapsed:   1500 * time.Microsecond,
	}
}
