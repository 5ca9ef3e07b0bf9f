package testkit

import (
	"context"
	"sync"

	"gopi/domain/core"
	"gopi/domain/run"
	"gopi/internal/errors"
	"gopi/ports"
)

// MemoryRunRepository is an in-process ports.RunRepository for tests
type MemoryRunRepository struct {
	mu      sync.RWMutex
	reports map[core.RunID]*run.Report
	order   []core.RunID

	// SaveErr, when set, is returned by every SaveReport call
	SaveErr error
}

// NewMemoryRunRepository creates an empty repository
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{reports: make(map[core.RunID]*run.Report)}
}

func (r *MemoryRunRepository) SaveReport(ctx context.Context, report *run.Report) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := report.Manifest.RunID
	if _, ok := r.reports[id]; ok {
		return nil
	}
	r.reports[id] = report
	r.order = append(r.order, id)
	return nil
}

func (r *MemoryRunRepository) GetReport(ctx context.Context, id core.RunID) (*run.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, errors.NotFound("run " + id.String())
	}
	return report, nil
}

// ListRuns returns runs newest first, by save order
func (r *MemoryRunRepository) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ports.RunSummary, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, ports.SummaryOf(r.reports[r.order[i]]))
	}
	return out, nil
}

func (r *MemoryRunRepository) FindByFingerprint(ctx context.Context, hash core.Hash) ([]ports.RunSummary, error) {
	runs, _ := r.ListRuns(ctx, 0)
	out := runs[:0]
	for _, s := range runs {
		if s.FingerprintHash == hash {
			out = append(out, s)
		}
	}
	return out, nil
}

// Len returns the number of stored runs
func (r *MemoryRunRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}
