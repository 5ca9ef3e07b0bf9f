package ports

import (
	"gopi/domain/random"
)

// RNGPort hands out deterministic uniform streams for experiment runs
type RNGPort interface {
	// Stream creates a stream seeded from key material
	Stream(key []uint32) (*random.RandomState, error)

	// WorkerStream creates the independent stream owned by one parallel worker.
	// The same parent key and worker index always yield the same stream.
	WorkerStream(parent *random.RandomState, worker int) (*random.RandomState, error)
}
