package run

import (
	"math"

	"gopi/domain/core"
)

// Manifest records the parameters of one experiment run
type Manifest struct {
	RunID          core.RunID     `json:"run_id"`
	Trials         int            `json:"trials"`
	PointsPerTrial int            `json:"points_per_trial"`
	Confidence     float64        `json:"confidence,omitempty"` // 0 when the critical value was given directly
	CriticalValue  float64        `json:"critical_value"`
	CriticalSource string         `json:"critical_source"` // "explicit" or the provider name
	SeedKey        []uint32       `json:"seed_key"`
	Workers        int            `json:"workers"`
	Fingerprint    Fingerprint    `json:"fingerprint"`
	CreatedAt      core.Timestamp `json:"created_at"`
}

// NewManifest creates a manifest with a fresh run ID
func NewManifest(trials, pointsPerTrial int, confidence, criticalValue float64, seedKey []uint32, workers int, offset uint64) *Manifest {
	fp := NewFingerprint(trials, pointsPerTrial, seedKey, workers, offset)

	return &Manifest{
		RunID:          core.NewRunID(),
		Trials:         trials,
		PointsPerTrial: pointsPerTrial,
		Confidence:     confidence,
		CriticalValue:  criticalValue,
		SeedKey:        fp.SeedKey,
		Workers:        fp.Workers,
		Fingerprint:    fp,
		CreatedAt:      core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewArgumentError("run_id", "", "non-empty")
	}
	if m.Trials < 2 {
		return core.NewArgumentError("trials", m.Trials, ">= 2")
	}
	if m.PointsPerTrial < 1 {
		return core.NewArgumentError("points_per_trial", m.PointsPerTrial, ">= 1")
	}
	if len(m.SeedKey) == 0 {
		return core.NewArgumentError("seed_key", "[]", "non-empty")
	}
	if m.CriticalValue < 0 || math.IsNaN(m.CriticalValue) || math.IsInf(m.CriticalValue, 0) {
		return core.NewArgumentError("critical_value", m.CriticalValue, "finite and >= 0")
	}
	if m.Confidence != 0 && (m.Confidence <= 0 || m.Confidence >= 1) {
		return core.NewArgumentError("confidence", m.Confidence, "in (0, 1)")
	}
	if m.Fingerprint.Hash.IsEmpty() {
		return core.NewArgumentError("fingerprint", "", "non-empty")
	}
	return nil
}
