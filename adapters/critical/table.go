package critical

import (
	"math"
	"sort"

	"gopi/domain/core"
)

// Entry is one row of a critical-value table
type Entry struct {
	Trials     int     `json:"trials"`
	Confidence float64 `json:"confidence"`
	Value      float64 `json:"value"`
}

type tableKey struct {
	trials     int
	confidence int64 // confidence in millionths
}

func keyFor(trials int, confidence float64) tableKey {
	return tableKey{trials: trials, confidence: int64(math.Round(confidence * 1e6))}
}

// Table is a fixed lookup of critical values. Missing entries fail with
// core.ErrUnknownSignificance rather than being interpolated.
type Table struct {
	name    string
	entries map[tableKey]float64
}

// NewTable builds a table from entries; later entries override earlier ones
func NewTable(name string, entries []Entry) *Table {
	t := &Table{name: name, entries: make(map[tableKey]float64, len(entries))}
	for _, e := range entries {
		t.entries[keyFor(e.Trials, e.Confidence)] = e.Value
	}
	return t
}

// ReferenceTable holds the critical values used by the reference program's
// interval series (10, 20, 30 and 40 trials at α = 0.05, 0.01 and 0.0005),
// keyed the way that program labelled them. They are not two-sided quantiles
// for K−1 degrees of freedom: the values use K degrees of freedom, the 0.99 and
// 0.9995 rows are one-sided, and 3.373 matches no df near 40. Intervals built
// from them are narrower than their label. Default never consults this table.
func ReferenceTable() *Table {
	return NewTable("reference", []Entry{
		{10, 0.95, 2.228}, {20, 0.95, 2.086}, {30, 0.95, 2.042}, {40, 0.95, 2.021},
		{10, 0.99, 2.764}, {20, 0.99, 2.528}, {30, 0.99, 2.457}, {40, 0.99, 2.423},
		{10, 0.9995, 4.587}, {20, 0.9995, 3.850}, {30, 0.9995, 3.646}, {40, 0.9995, 3.373},
	})
}

// Name identifies the provider in logs and reports
func (t *Table) Name() string { return "table:" + t.name }

// CriticalValue looks up the exact (trialCount, confidence) pair
func (t *Table) CriticalValue(trialCount int, confidence float64) (float64, error) {
	if err := validate(trialCount, confidence); err != nil {
		return 0, err
	}
	v, ok := t.entries[keyFor(trialCount, confidence)]
	if !ok {
		return 0, core.NewUnknownSignificanceError(trialCount, confidence)
	}
	return v, nil
}

// Entries lists the table sorted by confidence, then trials
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for k, v := range t.entries {
		out = append(out, Entry{Trials: k.trials, Confidence: float64(k.confidence) / 1e6, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence < out[j].Confidence
		}
		return out[i].Trials < out[j].Trials
	})
	return out
}
