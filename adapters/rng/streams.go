// Package rng implements ports.RNGPort on top of the MT19937 random state.
package rng

import (
	"gopi/domain/core"
	"gopi/domain/random"
)

// StreamFactory seeds MT19937 streams from key material
type StreamFactory struct{}

// NewStreamFactory creates a stream factory
func NewStreamFactory() *StreamFactory {
	return &StreamFactory{}
}

// Stream creates a stream seeded from key material
func (f *StreamFactory) Stream(key []uint32) (*random.RandomState, error) {
	return random.New(key)
}

// WorkerStream derives worker w's stream by appending w+1 to the parent key.
// Stream number 0 is never used so that no worker stream can equal the key
// a caller might pass with a trailing zero.
func (f *StreamFactory) WorkerStream(parent *random.RandomState, worker int) (*random.RandomState, error) {
	if worker < 0 {
		return nil, core.NewArgumentError("worker", worker, ">= 0")
	}
	return parent.Derive(uint32(worker) + 1)
}
