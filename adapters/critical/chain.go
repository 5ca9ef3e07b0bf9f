package critical

import (
	"fmt"
	"strings"

	"gopi/domain/core"
	"gopi/ports"
)

// Provider names accepted by ForName
const (
	SourceExact     = "exact"
	SourceReference = "reference"
)

// Chain asks each provider in turn and returns the first answer.
// Only core.ErrUnknownSignificance falls through; argument errors stop the chain.
type Chain struct {
	providers []ports.CriticalValueProvider
}

// NewChain creates a chain over providers, tried in order
func NewChain(providers ...ports.CriticalValueProvider) *Chain {
	return &Chain{providers: providers}
}

// Default resolves exact two-sided Student's t quantiles
func Default() *Chain {
	return NewChain(NewStudentT())
}

// Reference consults the reference table first and falls back to exact
// quantiles. Only runs that must reproduce the reference program's series
// should use it: see ReferenceTable for how its labels differ.
func Reference() *Chain {
	return NewChain(ReferenceTable(), NewStudentT())
}

// ForName returns the chain configured by name: "exact" (or empty) or "reference"
func ForName(name string) (*Chain, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SourceExact:
		return Default(), nil
	case SourceReference:
		return Reference(), nil
	default:
		return nil, core.NewArgumentError("critical_values", name, fmt.Sprintf("%q or %q", SourceExact, SourceReference))
	}
}

// Name lists the chained providers; a chain of one takes its provider's name
func (c *Chain) Name() string {
	if len(c.providers) == 1 {
		return c.providers[0].Name()
	}
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// CriticalValue returns the first provider's answer
func (c *Chain) CriticalValue(trialCount int, confidence float64) (float64, error) {
	v, _, err := c.Resolve(trialCount, confidence)
	return v, err
}

// Resolve is like CriticalValue but also reports which provider answered
func (c *Chain) Resolve(trialCount int, confidence float64) (float64, string, error) {
	for _, p := range c.providers {
		v, err := p.CriticalValue(trialCount, confidence)
		if err == nil {
			return v, p.Name(), nil
		}
		if !core.IsUnknownSignificance(err) {
			return 0, "", err
		}
	}
	return 0, "", core.NewUnknownSignificanceError(trialCount, confidence)
}
