package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/domain/core"
)

func TestAccuracyOf(t *testing.T) {
	acc := AccuracyOf(3.2)
	assert.InDelta(t, 3.2-math.Pi, acc.AbsoluteError, 1e-15)
	assert.InDelta(t, (3.2-math.Pi)/math.Pi, acc.RelativeError, 1e-15)
	assert.InDelta(t, 3.2/math.Pi, acc.Ratio, 1e-15)

	exact := AccuracyOf(math.Pi)
	assert.Zero(t, exact.AbsoluteError)
	assert.Equal(t, 1.0, exact.Ratio)
}

func TestDescribe(t *testing.T) {
	values := []float64{3.0, 3.1, 3.2, 3.3, 3.4}

	s, err := Describe(values)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 3.0, s.Min)
	assert.Equal(t, 3.4, s.Max)
	assert.Equal(t, 3.2, s.Median)
	assert.Equal(t, 3.0, s.P025)
	assert.Equal(t, 3.4, s.P975)
	assert.InDelta(t, math.Sqrt(0.025), s.StdDev, 1e-12)
	assert.InDelta(t, s.StdDev/math.Sqrt(5), s.StdError, 1e-12)
}

func TestDescribe_SingleValue(t *testing.T) {
	s, err := Describe([]float64{3.14})
	require.NoError(t, err)
	assert.Equal(t, 3.14, s.Median)
	assert.Zero(t, s.StdDev)
	assert.Zero(t, s.StdError)
}

func TestDescribe_Empty(t *testing.T) {
	_, err := Describe(nil)
	assert.True(t, core.IsInvalidArgument(err))
}
