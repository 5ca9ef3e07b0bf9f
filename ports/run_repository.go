package ports

import (
	"context"

	"gopi/domain/core"
	"gopi/domain/run"
)

// RunSummary is the listing view of an archived run
type RunSummary struct {
	RunID           core.RunID     `json:"run_id" db:"run_id"`
	Trials          int            `json:"trials" db:"trials"`
	PointsPerTrial  int            `json:"points_per_trial" db:"points_per_trial"`
	CriticalValue   float64        `json:"critical_value" db:"critical_value"`
	Mean            float64        `json:"mean" db:"mean"`
	LowerBound      float64        `json:"lower_bound" db:"lower_bound"`
	UpperBound      float64        `json:"upper_bound" db:"upper_bound"`
	CoversPi        bool           `json:"covers_pi" db:"covers_pi"`
	FingerprintHash core.Hash      `json:"fingerprint" db:"fingerprint"`
	CreatedAt       core.Timestamp `json:"created_at" db:"created_at"`
}

// SummaryOf builds the listing view of a report
func SummaryOf(report *run.Report) RunSummary {
	return RunSummary{
		RunID:           report.Manifest.RunID,
		Trials:          report.Manifest.Trials,
		PointsPerTrial:  report.Manifest.PointsPerTrial,
		CriticalValue:   report.Manifest.CriticalValue,
		Mean:            report.Interval.Mean,
		LowerBound:      report.Interval.LowerBound,
		UpperBound:      report.Interval.UpperBound,
		CoversPi:        report.CoversPi(),
		FingerprintHash: report.Manifest.Fingerprint.Hash,
		CreatedAt:       report.Manifest.CreatedAt,
	}
}

// RunRepository archives finished run reports
type RunRepository interface {
	SaveReport(ctx context.Context, report *run.Report) error
	// GetReport fails with a NOT_FOUND app error for unknown ids
	GetReport(ctx context.Context, id core.RunID) (*run.Report, error)
	// ListRuns returns the newest runs first; limit <= 0 means no limit
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	// FindByFingerprint returns runs that share a fingerprint, newest first
	FindByFingerprint(ctx context.Context, hash core.Hash) ([]RunSummary, error)
}
