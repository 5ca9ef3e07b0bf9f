// Package random provides the deterministic uniform source consumed by the
// Monte Carlo estimator. It wraps the reference MT19937 generator and seeds it
// with init-by-array key material, so a given key always reproduces the same
// stream as the C reference implementation.
package random

import (
	"gonum.org/v1/gonum/mathext/prng"

	"gopi/domain/core"
)

// Source is anything that yields uniform values in [0, 1).
type Source interface {
	NextUniform() float64
}

// DefaultKey is the key material used by the reference program.
var DefaultKey = []uint32{0x123, 0x234, 0x345, 0x456}

// 2^-32: maps a 32-bit draw onto [0, 1).
const uint32Scale = 1.0 / 4294967296.0

// RandomState is a single sequential stream. It is not safe for concurrent use;
// give each goroutine its own state (see Derive). Copy it with Clone only: a
// plain struct copy would share the generator.
type RandomState struct {
	mt    *prng.MT19937
	key   []uint32
	draws uint64
}

// New returns a state seeded from key.
func New(key []uint32) (*RandomState, error) {
	rs := &RandomState{mt: prng.NewMT19937()}
	if err := rs.Seed(key); err != nil {
		return nil, err
	}
	return rs, nil
}

// MustNew is New for static keys known to be valid.
func MustNew(key []uint32) *RandomState {
	rs, err := New(key)
	if err != nil {
		panic(err)
	}
	return rs
}

// Seed resets the stream from key material and zeroes the draw counter.
func (rs *RandomState) Seed(key []uint32) error {
	if len(key) == 0 {
		return core.NewArgumentError("keyMaterial", "[]", "non-empty")
	}
	rs.key = append(rs.key[:0], key...)
	rs.mt.SeedFromKeys(rs.key)
	rs.draws = 0
	return nil
}

// Uint32 returns the next raw 32-bit value.
func (rs *RandomState) Uint32() uint32 {
	rs.draws++
	return rs.mt.Uint32()
}

// NextUniform returns the next value in [0, 1) at 32-bit resolution.
func (rs *RandomState) NextUniform() float64 {
	return float64(rs.Uint32()) * uint32Scale
}

// Discard advances the stream by n draws without returning them.
func (rs *RandomState) Discard(n uint64) {
	for i := uint64(0); i < n; i++ {
		rs.Uint32()
	}
}

// Draws reports how many values have been drawn since the last Seed.
func (rs *RandomState) Draws() uint64 {
	return rs.draws
}

// Key returns a copy of the key material the state was seeded with.
func (rs *RandomState) Key() []uint32 {
	return append([]uint32(nil), rs.key...)
}

// Clone returns an independent copy positioned at the same point in the stream.
func (rs *RandomState) Clone() *RandomState {
	buf, err := rs.mt.MarshalBinary()
	if err != nil {
		panic("random: marshal generator state: " + err.Error())
	}
	mt := prng.NewMT19937()
	if err := mt.UnmarshalBinary(buf); err != nil {
		panic("random: unmarshal generator state: " + err.Error())
	}
	return &RandomState{mt: mt, key: rs.Key(), draws: rs.draws}
}

// Derive returns a fresh state seeded from this state's key with stream appended.
// Distinct stream numbers give distinct, uncorrelated seedings; the parent is untouched.
func (rs *RandomState) Derive(stream uint32) (*RandomState, error) {
	key := make([]uint32, 0, len(rs.key)+1)
	key = append(key, rs.key...)
	key = append(key, stream)
	return New(key)
}
