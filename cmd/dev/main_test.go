package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/internal/testkit"
)

func TestSmoke(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"smoke"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Smoke tests: 5/5 passed")
}

func TestDeterminism(t *testing.T) {
	for _, workers := range []string{"1", "3"} {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"determinism", "--trials", "6", "--points", "500", "--workers", workers})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "Determinism test passed")
	}
}

func TestCompareRuns(t *testing.T) {
	a := testkit.FixedReport()
	b := testkit.FixedReport()
	assert.NoError(t, compareRuns(a, b))

	b.Estimates[2] = 4
	assert.ErrorContains(t, compareRuns(a, b), "trial 2 differs")

	c := testkit.FixedReport()
	c.Manifest.Fingerprint.Hash = "other"
	assert.ErrorContains(t, compareRuns(a, c), "fingerprints differ")
}
