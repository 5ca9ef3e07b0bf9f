package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/internal/errors"
)

func TestParse(t *testing.T) {
	p, err := Parse([]byte(`{
		"seed_key": ["0x123", 564, "0x345", 1110],
		"confidence": 0.99,
		"runs": [
			{"trials": 10, "points": 1000000, "critical_value": 2.228},
			{"trials": 20, "points": 5000},
			{"trials": 30, "points": 5000, "confidence": 0.95}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, []uint32{0x123, 0x234, 0x345, 0x456}, p.SeedKey)
	assert.Equal(t, 0.99, p.Confidence)
	require.Len(t, p.Runs, 3)

	assert.Equal(t, 10, p.Runs[0].Trials)
	assert.Equal(t, 1000000, p.Runs[0].PointsPerTrial)
	require.NotNil(t, p.Runs[0].CriticalValue)
	assert.Equal(t, 2.228, *p.Runs[0].CriticalValue)
	assert.Zero(t, p.Runs[0].Confidence)

	assert.Nil(t, p.Runs[1].CriticalValue)
	assert.Equal(t, 0.99, p.Runs[1].Confidence)
	assert.Equal(t, 0.95, p.Runs[2].Confidence)
}

func TestParse_StringKeyAndDefaults(t *testing.T) {
	p, err := Parse([]byte(`{"seed_key": "0x1, 0x2", "runs": [{}]}`))
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 2}, p.SeedKey)
	require.Len(t, p.Runs, 1)
	assert.Zero(t, p.Runs[0].Trials)
	assert.Zero(t, p.Runs[0].PointsPerTrial)
}

func TestParse_NoKey(t *testing.T) {
	p, err := Parse([]byte(`{"runs": [{"trials": 10}]}`))
	require.NoError(t, err)
	assert.Nil(t, p.SeedKey)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"runs": [`,
		"no runs":        `{"seed_key": [1]}`,
		"empty runs":     `{"runs": []}`,
		"run not object": `{"runs": [5]}`,
		"fractional":     `{"runs": [{"trials": 2.5}]}`,
		"string trials":  `{"runs": [{"trials": "10"}]}`,
		"key overflow":   `{"seed_key": [4294967296], "runs": [{}]}`,
		"key negative":   `{"seed_key": [-1], "runs": [{}]}`,
		"key bool":       `{"seed_key": [true], "runs": [{}]}`,
		"empty key":      `{"seed_key": [], "runs": [{}]}`,
		"bad critical":   `{"runs": [{"critical_value": "t"}]}`,
		"bad confidence": `{"confidence": "high", "runs": [{}]}`,
		"key not a list": `{"seed_key": {"a": 1}, "runs": [{}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.IsAppError(err))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"runs":[{"trials":10,"points":100}]}`), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Runs[0].PointsPerTrial)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
