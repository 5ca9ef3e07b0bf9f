package run

import (
	"fmt"
	"strings"

	"gopi/domain/core"
)

// Fingerprint pins down everything that determines a run's estimates.
// Two runs with equal fingerprints produce identical trial estimates.
type Fingerprint struct {
	Trials         int       `json:"trials"`
	PointsPerTrial int       `json:"points_per_trial"`
	SeedKey        []uint32  `json:"seed_key"`
	Workers        int       `json:"workers"`
	StreamOffset   uint64    `json:"stream_offset"` // draws consumed before the first trial
	Hash           core.Hash `json:"hash"`
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(trials, pointsPerTrial int, seedKey []uint32, workers int, offset uint64) Fingerprint {
	if workers < 1 {
		workers = 1
	}
	key := append([]uint32(nil), seedKey...)

	return Fingerprint{
		Trials:         trials,
		PointsPerTrial: pointsPerTrial,
		SeedKey:        key,
		Workers:        workers,
		StreamOffset:   offset,
		Hash:           computeFingerprint(trials, pointsPerTrial, key, workers, offset),
	}
}

func computeFingerprint(trials, pointsPerTrial int, seedKey []uint32, workers int, offset uint64) core.Hash {
	return core.HashFields(
		core.Field{Key: "trials", Value: trials},
		core.Field{Key: "points", Value: pointsPerTrial},
		core.Field{Key: "key", Value: FormatKey(seedKey)},
		core.Field{Key: "workers", Value: workers},
		core.Field{Key: "offset", Value: offset},
	)
}

// FormatKey renders key material as comma-separated hex, the form PI_SEED_KEY accepts.
func FormatKey(key []uint32) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = fmt.Sprintf("0x%x", k)
	}
	return strings.Join(parts, ",")
}
