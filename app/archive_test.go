package app

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/domain/core"
	"gopi/domain/run"
	"gopi/internal/errors"
	"gopi/ports"
)

// recordingRepository keeps saved reports in call order
type recordingRepository struct {
	saved   []*run.Report
	saveErr error
}

func (r *recordingRepository) SaveReport(ctx context.Context, report *run.Report) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, report)
	return nil
}

func (r *recordingRepository) GetReport(ctx context.Context, id core.RunID) (*run.Report, error) {
	for _, report := range r.saved {
		if report.Manifest.RunID == id {
			return report, nil
		}
	}
	return nil, errors.NotFound("run " + id.String())
}

func (r *recordingRepository) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	var out []ports.RunSummary
	for i := len(r.saved) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, ports.SummaryOf(r.saved[i]))
	}
	return out, nil
}

func (r *recordingRepository) FindByFingerprint(ctx context.Context, hash core.Hash) ([]ports.RunSummary, error) {
	var out []ports.RunSummary
	for _, report := range r.saved {
		if report.Manifest.Fingerprint.Hash == hash {
			out = append(out, ports.SummaryOf(report))
		}
	}
	return out, nil
}

func TestArchive_RunAndBatchAreSaved(t *testing.T) {
	repo := &recordingRepository{}
	svc := newTestService(t).WithRepository(repo)
	ctx := context.Background()

	report, err := svc.Run(ctx, ExperimentRequest{})
	require.NoError(t, err)

	_, err = svc.Batch(ctx, nil, []ExperimentRequest{{Trials: 5}, {Trials: 6}})
	require.NoError(t, err)
	require.Len(t, repo.saved, 3)

	loaded, err := svc.Lookup(ctx, report.Manifest.RunID)
	require.NoError(t, err)
	assert.Same(t, report, loaded)

	history, err := svc.History(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 6, history[0].Trials)

	again, err := svc.Run(ctx, ExperimentRequest{})
	require.NoError(t, err)
	matches, err := svc.History(ctx, 0, report.Manifest.Fingerprint.Hash)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, again.Manifest.RunID, matches[1].RunID)
}

func TestArchive_FailedSaveKeepsReport(t *testing.T) {
	repo := &recordingRepository{saveErr: stderrors.New("connection refused")}
	svc := newTestService(t).WithRepository(repo)

	report, err := svc.Run(context.Background(), ExperimentRequest{})
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Empty(t, repo.saved)
}

func TestArchive_Disabled(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.History(context.Background(), 10, "")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	_, err = svc.Lookup(context.Background(), core.NewRunID())
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}
