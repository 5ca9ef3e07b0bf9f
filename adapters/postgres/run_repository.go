package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gopi/domain/core"
	"gopi/domain/run"
	"gopi/internal/errors"
	"gopi/ports"
)

// RunRepositoryImpl implements ports.RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

const summaryColumns = `run_id, trials, points_per_trial, critical_value, mean, lower_bound, upper_bound, covers_pi, fingerprint, created_at`

// SaveReport stores a report; saving the same run twice keeps the first copy
func (r *RunRepositoryImpl) SaveReport(ctx context.Context, report *run.Report) error {
	m := report.Manifest
	if m == nil {
		return core.NewArgumentError("manifest", nil, "non-nil")
	}

	// reportDocument implements driver.Valuer, so it is stored as JSONB directly
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, trials, points_per_trial, confidence, critical_value, critical_source,
			seed_key, workers, stream_offset, fingerprint, mean, variance, lower_bound, upper_bound,
			covers_pi, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (run_id) DO NOTHING
	`, m.RunID.String(), m.Trials, m.PointsPerTrial, m.Confidence, m.CriticalValue, m.CriticalSource,
		pq.Array(keyColumn(m.SeedKey)), m.Workers, int64(m.Fingerprint.StreamOffset), m.Fingerprint.Hash.String(),
		report.Interval.Mean, report.Interval.Variance, report.Interval.LowerBound, report.Interval.UpperBound,
		report.CoversPi(), reportDocument{report}, m.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to save run %s", m.RunID)
	}
	return nil
}

// GetReport loads the full report of one run
func (r *RunRepositoryImpl) GetReport(ctx context.Context, id core.RunID) (*run.Report, error) {
	if _, err := core.ParseRunID(id.String()); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	var doc reportDocument
	err := r.db.GetContext(ctx, &doc, `SELECT report FROM runs WHERE run_id = $1`, id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("run " + id.String())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", id)
	}
	return doc.Report, nil
}

// ListRuns returns the newest runs first
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]ports.RunSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM runs ORDER BY created_at DESC, run_id DESC`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	runs := []ports.RunSummary{}
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// FindByFingerprint returns every archived run with the given fingerprint
func (r *RunRepositoryImpl) FindByFingerprint(ctx context.Context, hash core.Hash) ([]ports.RunSummary, error) {
	runs := []ports.RunSummary{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT `+summaryColumns+`
		FROM runs
		WHERE fingerprint = $1
		ORDER BY created_at DESC
	`, hash.String())
	if err != nil {
		return nil, errors.Wrap(err, "failed to find runs by fingerprint")
	}
	return runs, nil
}

// keyColumn widens key words for a BIGINT[] column
func keyColumn(key []uint32) []int64 {
	out := make([]int64, len(key))
	for i, k := range key {
		out[i] = int64(k)
	}
	return out
}

// reportDocument maps a report to and from a JSONB column
type reportDocument struct {
	*run.Report
}

// Value implements driver.Valuer
func (d reportDocument) Value() (driver.Value, error) {
	if d.Report == nil {
		return nil, nil
	}
	return json.Marshal(d.Report)
}

// Scan implements sql.Scanner
func (d *reportDocument) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		d.Report = nil
		return nil
	default:
		return errors.InternalError("unexpected report column type")
	}

	var report run.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return errors.Wrap(err, "failed to decode stored report")
	}
	d.Report = &report
	return nil
}
