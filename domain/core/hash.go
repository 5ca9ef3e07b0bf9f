package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, for display.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// HashFields hashes key=value pairs in the given order. Callers fix the order;
// the same fields always produce the same hash.
func HashFields(fields ...Field) Hash {
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s=%v;", f.Key, f.Value)
	}
	return NewHash([]byte(b.String()))
}

// Field is one key=value input to HashFields.
type Field struct {
	Key   string
	Value interface{}
}
