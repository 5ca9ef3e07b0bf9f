package app

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/adapters/critical"
	"gopi/adapters/rng"
	"gopi/domain/core"
	"gopi/domain/montecarlo"
	"gopi/domain/random"
	"gopi/domain/stats"
	"gopi/internal"
	"gopi/internal/config"
)

func newTestService(t *testing.T) *ExperimentService {
	t.Helper()

	defaults := config.Default().Experiment
	defaults.Trials = 10
	defaults.PointsPerTrial = 2000
	defaults.MaxTrials = 1000
	defaults.MaxPointsPerTrial = 100000

	logger := internal.NewLogger(internal.LogLevelError)
	logger.SetOutput(io.Discard)

	return NewExperimentService(rng.NewStreamFactory(), critical.Default(), defaults, logger)
}

func floatPtr(v float64) *float64 { return &v }

func TestRun_MatchesCorePipeline(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.Run(context.Background(), ExperimentRequest{Trials: 10, PointsPerTrial: 2000})
	require.NoError(t, err)

	want, err := montecarlo.RunExperiments(10, 2000, random.MustNew(random.DefaultKey))
	require.NoError(t, err)
	assert.Equal(t, want, report.Estimates)

	tValue, err := critical.NewStudentT().CriticalValue(10, 0.95)
	require.NoError(t, err)
	interval, err := stats.ComputeConfidenceInterval(want.Values(), tValue)
	require.NoError(t, err)
	assert.Equal(t, interval, report.Interval)
	assert.Equal(t, stats.ShapeOf(want.Values()), report.Shape)

	m := report.Manifest
	assert.Equal(t, tValue, m.CriticalValue)
	assert.Equal(t, 0.95, m.Confidence)
	assert.Equal(t, "student-t", m.CriticalSource)
	assert.Equal(t, random.DefaultKey, m.SeedKey)
	assert.Equal(t, 1, m.Workers)
	assert.NoError(t, m.Validate())

	assert.Equal(t, interval.Mean, report.Accuracy.Estimate)
	assert.Equal(t, 10, report.Summary.Count)
}

func TestRun_Reproducible(t *testing.T) {
	svc := newTestService(t)
	req := ExperimentRequest{Trials: 5, PointsPerTrial: 1000, SeedKey: []uint32{1, 2, 3}}

	a, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Estimates, b.Estimates)
	assert.Equal(t, a.Manifest.Fingerprint.Hash, b.Manifest.Fingerprint.Hash)
	assert.NotEqual(t, a.Manifest.RunID, b.Manifest.RunID)
}

func TestRun_ExplicitCriticalValue(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.Run(context.Background(), ExperimentRequest{Trials: 4, PointsPerTrial: 500, CriticalValue: floatPtr(0), Confidence: 0.99})
	require.NoError(t, err)

	assert.Equal(t, "explicit", report.Manifest.CriticalSource)
	assert.Zero(t, report.Manifest.Confidence)
	assert.Zero(t, report.Interval.HalfWidth)
	assert.Equal(t, report.Interval.Mean, report.Interval.LowerBound)
}

func TestRun_StudentTFallback(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.Run(context.Background(), ExperimentRequest{Trials: 15, PointsPerTrial: 500})
	require.NoError(t, err)
	assert.InDelta(t, 2.145, report.Manifest.CriticalValue, 1e-3)
}

func TestRun_InvalidRequests(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		req      ExperimentRequest
		resource bool
	}{
		{"one trial", ExperimentRequest{Trials: 1}, false},
		{"negative points", ExperimentRequest{PointsPerTrial: -5}, false},
		{"negative workers", ExperimentRequest{Workers: -1}, false},
		{"negative critical value", ExperimentRequest{CriticalValue: floatPtr(-2)}, false},
		{"bad confidence", ExperimentRequest{Confidence: 1.5}, false},
		{"offset with workers", ExperimentRequest{Workers: 2, StreamOffset: 10}, false},
		{"too many trials", ExperimentRequest{Trials: 1001}, true},
		{"too many points", ExperimentRequest{PointsPerTrial: 100001}, true},
		{"offset past any batch", ExperimentRequest{StreamOffset: 1 << 62}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tt.req)
			require.Error(t, err)
			if tt.resource {
				assert.True(t, core.IsResourceExhausted(err), "got %v", err)
			} else {
				assert.True(t, core.IsInvalidArgument(err), "got %v", err)
			}
		})
	}
}

func TestRun_Parallel(t *testing.T) {
	svc := newTestService(t)
	req := ExperimentRequest{Trials: 11, PointsPerTrial: 1000, Workers: 3}

	a, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, 11, a.Estimates.Len())
	assert.Equal(t, a.Estimates, b.Estimates)
	assert.Equal(t, 3, a.Manifest.Workers)

	seq, err := svc.Run(context.Background(), ExperimentRequest{Trials: 11, PointsPerTrial: 1000, Workers: 1})
	require.NoError(t, err)
	assert.NotEqual(t, seq.Estimates, a.Estimates)
	assert.NotEqual(t, seq.Manifest.Fingerprint.Hash, a.Manifest.Fingerprint.Hash)

	for _, e := range a.Estimates {
		assert.GreaterOrEqual(t, float64(e), 0.0)
		assert.LessOrEqual(t, float64(e), 4.0)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, ExperimentRequest{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Run(ctx, ExperimentRequest{Workers: 4})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatch_SharesOneStream(t *testing.T) {
	svc := newTestService(t)
	reqs := []ExperimentRequest{
		{Trials: 10, PointsPerTrial: 1000, CriticalValue: floatPtr(2.228)},
		{Trials: 20, PointsPerTrial: 500, CriticalValue: floatPtr(2.086)},
	}

	reports, err := svc.Batch(context.Background(), nil, reqs)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Zero(t, reports[0].Manifest.Fingerprint.StreamOffset)
	assert.Equal(t, uint64(2*10*1000), reports[1].Manifest.Fingerprint.StreamOffset)

	// the second run continues the stream, so it differs from a fresh run...
	fresh, err := svc.Run(context.Background(), ExperimentRequest{Trials: 20, PointsPerTrial: 500, CriticalValue: floatPtr(2.086)})
	require.NoError(t, err)
	assert.NotEqual(t, fresh.Estimates, reports[1].Estimates)

	// ...and replays exactly from its recorded offset
	replay, err := svc.Run(context.Background(), ExperimentRequest{
		Trials: 20, PointsPerTrial: 500, CriticalValue: floatPtr(2.086),
		StreamOffset: reports[1].Manifest.Fingerprint.StreamOffset,
	})
	require.NoError(t, err)
	assert.Equal(t, reports[1].Estimates, replay.Estimates)
	assert.Equal(t, reports[1].Manifest.Fingerprint.Hash, replay.Manifest.Fingerprint.Hash)
}

func TestBatch_ValidatesEveryRunFirst(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Batch(context.Background(), nil, []ExperimentRequest{{Trials: 10}, {Trials: 1}})
	assert.True(t, core.IsInvalidArgument(err))

	_, err = svc.Batch(context.Background(), nil, nil)
	assert.True(t, core.IsInvalidArgument(err))
}

func TestBatch_RunLimit(t *testing.T) {
	svc := newTestService(t)
	svc.defaults.MaxBatchRuns = 2
	reqs := []ExperimentRequest{{Trials: 2, PointsPerTrial: 10}, {Trials: 2, PointsPerTrial: 10}, {Trials: 2, PointsPerTrial: 10}}

	_, err := svc.Batch(context.Background(), nil, reqs)
	assert.True(t, core.IsResourceExhausted(err))
	assert.True(t, core.IsResourceExhausted(svc.CheckBatch(nil, reqs)))

	require.NoError(t, svc.CheckBatch(nil, reqs[:2]))
	assert.True(t, core.IsInvalidArgument(svc.CheckBatch(nil, nil)))
	assert.True(t, core.IsInvalidArgument(svc.CheckBatch([]uint32{1}, []ExperimentRequest{{Trials: 1}})))
}

func TestRun_StreamOffsetLimit(t *testing.T) {
	svc := newTestService(t)
	limit := svc.defaults.MaxStreamOffset()
	require.Equal(t, uint64(2*1000*100000*1000), limit)

	assert.NoError(t, svc.Check(ExperimentRequest{StreamOffset: limit}))
	assert.True(t, core.IsResourceExhausted(svc.Check(ExperimentRequest{StreamOffset: limit + 1})))

	// skipping ahead stops at the first cancellation check
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, ExperimentRequest{StreamOffset: limit})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateAndConvergence(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	est, err := svc.Estimate(ctx, 1000, nil)
	require.NoError(t, err)
	want, err := montecarlo.EstimatePi(1000, random.MustNew(random.DefaultKey))
	require.NoError(t, err)
	assert.Equal(t, want, est)

	_, err = svc.Estimate(ctx, 0, nil)
	assert.True(t, core.IsInvalidArgument(err))
	_, err = svc.Estimate(ctx, 100001, nil)
	assert.True(t, core.IsResourceExhausted(err))

	points, err := svc.Convergence(ctx, []int{10, 100}, []uint32{5})
	require.NoError(t, err)
	assert.Len(t, points, 2)

	_, err = svc.Convergence(ctx, []int{10, 200000}, nil)
	assert.True(t, core.IsResourceExhausted(err))

	ones := make([]int, 1001)
	for i := range ones {
		ones[i] = 1
	}
	_, err = svc.Convergence(ctx, ones, nil)
	assert.True(t, core.IsResourceExhausted(err))

	points, err = svc.Convergence(ctx, ones[:1000], nil)
	require.NoError(t, err)
	assert.Len(t, points, 1000)
}

func TestCriticalValue(t *testing.T) {
	svc := newTestService(t)

	v, err := svc.CriticalValue(20, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.093, v, 1e-3)

	_, err = svc.CriticalValue(1, 0.95)
	assert.True(t, core.IsInvalidArgument(err))
}

func TestInterval(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	values := []float64{3.1, 3.2, 3.15, 3.12, 3.18, 3.14, 3.16, 3.13, 3.17, 3.11}

	interval, source, err := svc.Interval(ctx, values, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "student-t", source)
	assert.InDelta(t, 2.262, interval.CriticalValue, 1e-3)
	assert.InDelta(t, 3.146, interval.Mean, 1e-12)
	assert.True(t, interval.Contains(3.146))

	interval, source, err = svc.Interval(ctx, values, floatPtr(0), 0)
	require.NoError(t, err)
	assert.Equal(t, "explicit", source)
	assert.Zero(t, interval.HalfWidth)

	_, _, err = svc.Interval(ctx, []float64{3.1}, nil, 0)
	assert.True(t, core.IsInvalidArgument(err))

	_, _, err = svc.Interval(ctx, make([]float64, 1001), nil, 0)
	assert.True(t, core.IsResourceExhausted(err))
}

func TestCheck(t *testing.T) {
	svc := newTestService(t)

	assert.NoError(t, svc.Check(ExperimentRequest{}))
	assert.True(t, core.IsInvalidArgument(svc.Check(ExperimentRequest{Trials: 1})))
	assert.True(t, core.IsResourceExhausted(svc.Check(ExperimentRequest{PointsPerTrial: 100001})))
	assert.True(t, core.IsResourceExhausted(svc.Check(ExperimentRequest{StreamOffset: 1 << 62})))
}
