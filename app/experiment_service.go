package app

import (
	"context"
	"fmt"
	"time"

	"gopi/domain/core"
	"gopi/domain/montecarlo"
	"gopi/domain/random"
	"gopi/domain/run"
	"gopi/domain/stats"
	"gopi/internal"
	"gopi/internal/config"
	"gopi/internal/errors"
	"gopi/ports"
)

// ExperimentService runs Monte Carlo experiments and reduces them to a report
type ExperimentService struct {
	rngPort      ports.RNGPort
	criticalPort ports.CriticalValueProvider
	repository   ports.RunRepository
	defaults     config.ExperimentConfig
	logger       *internal.Logger
}

// ExperimentRequest defines one experiment. Zero fields take the configured defaults.
type ExperimentRequest struct {
	Trials         int      `json:"trials"`
	PointsPerTrial int      `json:"points"`
	Confidence     float64  `json:"confidence,omitempty"`
	CriticalValue  *float64 `json:"critical_value,omitempty"` // overrides Confidence when set
	SeedKey        []uint32 `json:"seed_key,omitempty"`
	Workers        int      `json:"workers,omitempty"`
	StreamOffset   uint64   `json:"stream_offset,omitempty"` // sequential runs only
}

// NewExperimentService creates an experiment service
func NewExperimentService(rngPort ports.RNGPort, criticalPort ports.CriticalValueProvider, defaults config.ExperimentConfig, logger *internal.Logger) *ExperimentService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ExperimentService{
		rngPort:      rngPort,
		criticalPort: criticalPort,
		defaults:     defaults,
		logger:       logger.WithComponent("experiment"),
	}
}

// WithRepository archives every finished report in repo
func (s *ExperimentService) WithRepository(repo ports.RunRepository) *ExperimentService {
	s.repository = repo
	return s
}

// Run executes one experiment on a fresh stream and returns its report
func (s *ExperimentService) Run(ctx context.Context, req ExperimentRequest) (*run.Report, error) {
	req = s.withDefaults(req)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	src, err := s.rngPort.Stream(req.SeedKey)
	if err != nil {
		return nil, err
	}
	if err := discard(ctx, src, req.StreamOffset); err != nil {
		return nil, err
	}

	report, err := s.runOn(ctx, req, src)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, report)
	return report, nil
}

// Check validates a request against the configured defaults and limits without running it
func (s *ExperimentService) Check(req ExperimentRequest) error {
	return s.validate(s.withDefaults(req))
}

// Batch runs the requests in order on one continuing stream seeded from key,
// the way a series of experiments shares a single generator. Each report's
// manifest records the stream offset it started at, so any run can be replayed
// alone with Run.
func (s *ExperimentService) Batch(ctx context.Context, key []uint32, reqs []ExperimentRequest) ([]*run.Report, error) {
	if len(key) == 0 {
		key = s.defaults.SeedKey
	}
	prepared, err := s.prepareBatch(key, reqs)
	if err != nil {
		return nil, err
	}

	src, err := s.rngPort.Stream(key)
	if err != nil {
		return nil, err
	}

	reports := make([]*run.Report, 0, len(prepared))
	for i, req := range prepared {
		req.StreamOffset = src.Draws()
		report, err := s.runOn(ctx, req, src)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("batch run %d/%d done at stream offset %d", i+1, len(prepared), src.Draws())
		reports = append(reports, report)
	}
	for _, report := range reports {
		s.archive(ctx, report)
	}
	return reports, nil
}

// CheckBatch validates a batch the way Batch does without running it
func (s *ExperimentService) CheckBatch(key []uint32, reqs []ExperimentRequest) error {
	if len(key) == 0 {
		key = s.defaults.SeedKey
	}
	_, err := s.prepareBatch(key, reqs)
	return err
}

func (s *ExperimentService) prepareBatch(key []uint32, reqs []ExperimentRequest) ([]ExperimentRequest, error) {
	if len(reqs) == 0 {
		return nil, core.NewArgumentError("runs", "[]", "non-empty")
	}
	if len(reqs) > s.defaults.MaxBatchRuns {
		return nil, core.NewResourceError("runs", len(reqs), s.defaults.MaxBatchRuns)
	}

	prepared := make([]ExperimentRequest, len(reqs))
	for i, req := range reqs {
		req.SeedKey = key
		req.Workers = 1
		req.StreamOffset = 0
		req = s.withDefaults(req)
		if err := s.validate(req); err != nil {
			return nil, err
		}
		prepared[i] = req
	}
	return prepared, nil
}

// History lists archived runs, newest first. A non-empty fingerprint restricts
// the list to runs that replay the same estimates.
func (s *ExperimentService) History(ctx context.Context, limit int, fingerprint core.Hash) ([]ports.RunSummary, error) {
	if s.repository == nil {
		return nil, errors.NotFound("run archive")
	}
	if !fingerprint.IsEmpty() {
		return s.repository.FindByFingerprint(ctx, fingerprint)
	}
	return s.repository.ListRuns(ctx, limit)
}

// Lookup loads an archived report
func (s *ExperimentService) Lookup(ctx context.Context, id core.RunID) (*run.Report, error) {
	if s.repository == nil {
		return nil, errors.NotFound("run archive")
	}
	return s.repository.GetReport(ctx, id)
}

// Estimate runs a single trial
func (s *ExperimentService) Estimate(ctx context.Context, points int, key []uint32) (montecarlo.TrialEstimate, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if points > s.defaults.MaxPointsPerTrial {
		return 0, core.NewResourceError("points", points, s.defaults.MaxPointsPerTrial)
	}
	if len(key) == 0 {
		key = s.defaults.SeedKey
	}

	src, err := s.rngPort.Stream(key)
	if err != nil {
		return 0, err
	}
	return montecarlo.EstimatePi(points, src)
}

// Convergence estimates π once per point count on one stream. At most
// MaxTrials counts are accepted, so a sweep costs no more than the largest run.
func (s *ExperimentService) Convergence(ctx context.Context, counts []int, key []uint32) ([]montecarlo.ConvergencePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(counts) > s.defaults.MaxTrials {
		return nil, core.NewResourceError("counts", len(counts), s.defaults.MaxTrials)
	}
	for _, n := range counts {
		if n > s.defaults.MaxPointsPerTrial {
			return nil, core.NewResourceError("points", n, s.defaults.MaxPointsPerTrial)
		}
	}
	if len(key) == 0 {
		key = s.defaults.SeedKey
	}

	src, err := s.rngPort.Stream(key)
	if err != nil {
		return nil, err
	}
	return montecarlo.Convergence(counts, src)
}

// CriticalValue resolves the critical value for a request without running it
func (s *ExperimentService) CriticalValue(trials int, confidence float64) (float64, error) {
	if confidence == 0 {
		confidence = s.defaults.Confidence
	}
	return s.criticalPort.CriticalValue(trials, confidence)
}

// Interval computes a confidence interval over caller-supplied trial estimates.
// The critical value is taken as given when set, otherwise resolved for
// len(values) trials at confidence. It returns the interval and the critical
// value's source.
func (s *ExperimentService) Interval(ctx context.Context, values []float64, criticalValue *float64, confidence float64) (stats.ConfidenceInterval, string, error) {
	if err := ctx.Err(); err != nil {
		return stats.ConfidenceInterval{}, "", err
	}
	if len(values) > s.defaults.MaxTrials {
		return stats.ConfidenceInterval{}, "", core.NewResourceError("values", len(values), s.defaults.MaxTrials)
	}
	if len(values) < 2 {
		return stats.ConfidenceInterval{}, "", core.NewArgumentError("values", len(values), ">= 2 values")
	}

	req := ExperimentRequest{Trials: len(values), Confidence: confidence, CriticalValue: criticalValue}
	if req.CriticalValue == nil && req.Confidence == 0 {
		req.Confidence = s.defaults.Confidence
	}

	t, source, err := s.resolveCritical(req)
	if err != nil {
		return stats.ConfidenceInterval{}, "", err
	}
	interval, err := stats.ComputeConfidenceInterval(values, t)
	if err != nil {
		return stats.ConfidenceInterval{}, "", err
	}
	return interval, source, nil
}

func (s *ExperimentService) runOn(ctx context.Context, req ExperimentRequest, src *random.RandomState) (*run.Report, error) {
	startTime := time.Now()

	criticalValue, source, err := s.resolveCritical(req)
	if err != nil {
		return nil, err
	}

	manifest := run.NewManifest(req.Trials, req.PointsPerTrial, req.Confidence, criticalValue, req.SeedKey, req.Workers, req.StreamOffset)
	manifest.CriticalSource = source
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("run %s: trials=%d points=%d workers=%d t=%.4f (%s) fingerprint=%s",
		manifest.RunID, req.Trials, req.PointsPerTrial, manifest.Workers, criticalValue, source, manifest.Fingerprint.Hash.Short())

	var estimates montecarlo.ExperimentResult
	if manifest.Workers > 1 {
		estimates, err = RunParallel(ctx, s.rngPort, src, req.Trials, req.PointsPerTrial, manifest.Workers)
	} else {
		if err = ctx.Err(); err == nil {
			estimates, err = montecarlo.RunExperiments(req.Trials, req.PointsPerTrial, src)
		}
	}
	if err != nil {
		s.logger.Error("run %s failed: %v", manifest.RunID, err)
		return nil, err
	}

	values := estimates.Values()
	interval, err := stats.ComputeConfidenceInterval(values, criticalValue)
	if err != nil {
		return nil, err
	}
	summary, err := stats.Describe(values)
	if err != nil {
		return nil, err
	}

	report := &run.Report{
		Manifest:  manifest,
		Estimates: estimates,
		Interval:  interval,
		Accuracy:  stats.AccuracyOf(interval.Mean),
		Summary:   summary,
		Shape:     stats.ShapeOf(values),
		Elapsed:   time.Since(startTime),
	}

	s.logger.Info("run %s: mean=%.6f variance=%.3g interval=[%.6f; %.6f] covers_pi=%t in %v",
		manifest.RunID, interval.Mean, interval.Variance, interval.LowerBound, interval.UpperBound, report.CoversPi(), report.Elapsed)
	if !report.Shape.LooksNormal {
		s.logger.Warn("run %s: estimates do not look normal (Jarque-Bera p=%.3g); the t-interval may be unreliable, raise points per trial",
			manifest.RunID, report.Shape.PValue)
	}

	return report, nil
}

// archive stores a finished report. A failed save is logged, not returned.
func (s *ExperimentService) archive(ctx context.Context, report *run.Report) {
	if s.repository == nil {
		return
	}
	if err := s.repository.SaveReport(ctx, report); err != nil {
		s.logger.Error("failed to archive run %s: %v", report.Manifest.RunID, err)
		return
	}
	s.logger.Debug("archived run %s", report.Manifest.RunID)
}

func (s *ExperimentService) resolveCritical(req ExperimentRequest) (float64, string, error) {
	if req.CriticalValue != nil {
		return *req.CriticalValue, "explicit", nil
	}
	v, err := s.criticalPort.CriticalValue(req.Trials, req.Confidence)
	if err != nil {
		return 0, "", err
	}
	return v, s.criticalPort.Name(), nil
}

func (s *ExperimentService) withDefaults(req ExperimentRequest) ExperimentRequest {
	if req.Trials == 0 {
		req.Trials = s.defaults.Trials
	}
	if req.PointsPerTrial == 0 {
		req.PointsPerTrial = s.defaults.PointsPerTrial
	}
	if req.CriticalValue == nil && req.Confidence == 0 {
		req.Confidence = s.defaults.Confidence
	}
	if req.CriticalValue != nil {
		req.Confidence = 0
	}
	if len(req.SeedKey) == 0 {
		req.SeedKey = s.defaults.SeedKey
	}
	if req.Workers == 0 {
		req.Workers = s.defaults.Workers
	}
	return req
}

func (s *ExperimentService) validate(req ExperimentRequest) error {
	if req.Trials < 2 {
		return core.NewArgumentError("trials", req.Trials, ">= 2")
	}
	if req.PointsPerTrial < 1 {
		return core.NewArgumentError("points", req.PointsPerTrial, ">= 1")
	}
	if req.Workers < 1 {
		return core.NewArgumentError("workers", req.Workers, ">= 1")
	}
	if req.Workers > 1 && req.StreamOffset != 0 {
		return core.NewArgumentError("stream_offset", req.StreamOffset, "0 when workers > 1")
	}
	if req.Trials > s.defaults.MaxTrials {
		return core.NewResourceError("trials", req.Trials, s.defaults.MaxTrials)
	}
	if req.PointsPerTrial > s.defaults.MaxPointsPerTrial {
		return core.NewResourceError("points", req.PointsPerTrial, s.defaults.MaxPointsPerTrial)
	}
	if limit := s.defaults.MaxStreamOffset(); req.StreamOffset > limit {
		return fmt.Errorf("%w: stream_offset %d exceeds limit %d", core.ErrResourceExhausted, req.StreamOffset, limit)
	}
	return nil
}

// discardChunk is how many draws are skipped between cancellation checks
const discardChunk = 1 << 20

// discard advances src by n draws, giving up when ctx is done
func discard(ctx context.Context, src *random.RandomState, n uint64) error {
	for n > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := min(n, uint64(discardChunk))
		src.Discard(step)
		n -= step
	}
	return nil
}
