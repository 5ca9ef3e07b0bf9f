package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/domain/core"
	"gopi/domain/random"
	"gopi/ports"
)

var _ ports.RNGPort = (*StreamFactory)(nil)

func TestStreamFactory_Stream(t *testing.T) {
	f := NewStreamFactory()

	a, err := f.Stream(random.DefaultKey)
	require.NoError(t, err)
	b := random.MustNew(random.DefaultKey)
	assert.Equal(t, b.Uint32(), a.Uint32())

	_, err = f.Stream(nil)
	assert.True(t, core.IsInvalidArgument(err))
}

func TestStreamFactory_WorkerStream(t *testing.T) {
	f := NewStreamFactory()
	parent := random.MustNew(random.DefaultKey)

	w0, err := f.WorkerStream(parent, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x123, 0x234, 0x345, 0x456, 1}, w0.Key())

	w1, err := f.WorkerStream(parent, 1)
	require.NoError(t, err)
	assert.NotEqual(t, w0.Uint32(), w1.Uint32())

	_, err = f.WorkerStream(parent, -1)
	assert.True(t, core.IsInvalidArgument(err))
	assert.Zero(t, parent.Draws())
}
