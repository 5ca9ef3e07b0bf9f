// Package report renders run reports as Markdown, and as HTML through gomarkdown.
package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gopi/domain/run"
)

// MarkdownWriter renders a report as a Markdown document
type MarkdownWriter struct{}

// NewMarkdownWriter creates a Markdown report writer
func NewMarkdownWriter() *MarkdownWriter {
	return &MarkdownWriter{}
}

// Extension is the file extension of the rendered format
func (w *MarkdownWriter) Extension() string { return "md" }

// WriteReport writes the Markdown document to out
func (w *MarkdownWriter) WriteReport(out io.Writer, report *run.Report) error {
	_, err := out.Write(Markdown(report))
	return err
}

// HTMLWriter renders a report as a standalone HTML page
type HTMLWriter struct{}

// NewHTMLWriter creates an HTML report writer
func NewHTMLWriter() *HTMLWriter {
	return &HTMLWriter{}
}

// Extension is the file extension of the rendered format
func (w *HTMLWriter) Extension() string { return "html" }

// WriteReport converts the Markdown document to a complete HTML page
func (w *HTMLWriter) WriteReport(out io.Writer, report *run.Report) error {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Monte Carlo π run " + report.Manifest.RunID.String(),
	})
	_, err := out.Write(markdown.ToHTML(Markdown(report), p, renderer))
	return err
}

// Markdown renders the report body: parameters, interval, accuracy and the trial table
func Markdown(report *run.Report) []byte {
	m := report.Manifest
	ci := report.Interval
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Monte Carlo π run %s\n\n", m.RunID)
	fmt.Fprintf(&b, "Confidence interval from %d independent trials of %d points each.\n\n", m.Trials, m.PointsPerTrial)

	b.WriteString("## Parameters\n\n| parameter | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| trials | %d |\n", m.Trials)
	fmt.Fprintf(&b, "| points per trial | %d |\n", m.PointsPerTrial)
	fmt.Fprintf(&b, "| seed key | `%s` |\n", run.FormatKey(m.SeedKey))
	fmt.Fprintf(&b, "| workers | %d |\n", m.Workers)
	fmt.Fprintf(&b, "| stream offset | %d |\n", m.Fingerprint.StreamOffset)
	if m.Confidence > 0 {
		fmt.Fprintf(&b, "| confidence | %g |\n", m.Confidence)
	}
	fmt.Fprintf(&b, "| critical value | %g (%s) |\n", m.CriticalValue, m.CriticalSource)
	fmt.Fprintf(&b, "| fingerprint | `%s` |\n\n", m.Fingerprint.Hash.Short())

	b.WriteString("## Interval\n\n| statistic | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| mean | %.6f |\n", ci.Mean)
	fmt.Fprintf(&b, "| variance | %.6g |\n", ci.Variance)
	fmt.Fprintf(&b, "| half-width | %.6f |\n", ci.HalfWidth)
	fmt.Fprintf(&b, "| interval | [%.6f; %.6f] |\n", ci.LowerBound, ci.UpperBound)
	fmt.Fprintf(&b, "| absolute error | %.6g |\n", report.Accuracy.AbsoluteError)
	fmt.Fprintf(&b, "| relative error | %.6g |\n", report.Accuracy.RelativeError)
	fmt.Fprintf(&b, "| covers π | %t |\n\n", report.CoversPi())

	s := report.Summary
	b.WriteString("## Spread\n\n| statistic | value |\n|---|---|\n")
	fmt.Fprintf(&b, "| min | %.6f |\n| median | %.6f |\n| max | %.6f |\n", s.Min, s.Median, s.Max)
	fmt.Fprintf(&b, "| std dev | %.6g |\n| std error | %.6g |\n", s.StdDev, s.StdError)
	fmt.Fprintf(&b, "| skewness | %.4g |\n| excess kurtosis | %.4g |\n", report.Shape.Skewness, report.Shape.ExcessKurtosis)
	fmt.Fprintf(&b, "| normality p (Jarque-Bera) | %.4g |\n\n", report.Shape.PValue)

	b.WriteString("## Trials\n\n| trial | estimate |\n|---|---|\n")
	for i, e := range report.Estimates {
		fmt.Fprintf(&b, "| %d | %.6f |\n", i+1, float64(e))
	}

	fmt.Fprintf(&b, "\nElapsed: %s\n", report.Elapsed.Round(time.Microsecond))
	return b.Bytes()
}
