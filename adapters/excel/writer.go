package excel

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"gopi/domain/run"
)

const (
	trialsSheet  = "Trials"
	summarySheet = "Summary"
)

// ReportWriter renders a run report as an xlsx workbook with a "Trials" sheet
// (one row per trial estimate) and a "Summary" sheet (parameters and interval)
type ReportWriter struct{}

// NewReportWriter creates an xlsx report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Extension is the file extension of the rendered format
func (w *ReportWriter) Extension() string { return "xlsx" }

// WriteReport writes the workbook to out
func (w *ReportWriter) WriteReport(out io.Writer, report *run.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", trialsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeTrials(f, report); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSummary(f, report); err != nil {
		return err
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeTrials(f *excelize.File, report *run.Report) error {
	if err := f.SetSheetRow(trialsSheet, "A1", &[]interface{}{"trial", "estimate"}); err != nil {
		return fmt.Errorf("failed to write trials header: %w", err)
	}
	for i, e := range report.Estimates {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(trialsSheet, cell, &[]interface{}{i + 1, float64(e)}); err != nil {
			return fmt.Errorf("failed to write trial %d: %w", i+1, err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, report *run.Report) error {
	m := report.Manifest
	ci := report.Interval

	rows := [][]interface{}{
		{"run_id", m.RunID.String()},
		{"fingerprint", m.Fingerprint.Hash.String()},
		{"trials", m.Trials},
		{"points_per_trial", m.PointsPerTrial},
		{"seed_key", run.FormatKey(m.SeedKey)},
		{"workers", m.Workers},
		{"stream_offset", m.Fingerprint.StreamOffset},
		{"confidence", m.Confidence},
		{"critical_value", m.CriticalValue},
		{"critical_source", m.CriticalSource},
		{"mean", ci.Mean},
		{"variance", ci.Variance},
		{"half_width", ci.HalfWidth},
		{"lower_bound", ci.LowerBound},
		{"upper_bound", ci.UpperBound},
		{"absolute_error", report.Accuracy.AbsoluteError},
		{"relative_error", report.Accuracy.RelativeError},
		{"median", report.Summary.Median},
		{"std_dev", report.Summary.StdDev},
		{"skewness", report.Shape.Skewness},
		{"excess_kurtosis", report.Shape.ExcessKurtosis},
		{"normality_p", report.Shape.PValue},
		{"covers_pi", strconv.FormatBool(report.CoversPi())},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write summary row %q: %w", row[0], err)
		}
	}
	return nil
}
