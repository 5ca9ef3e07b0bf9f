package ports

import (
	"io"

	"gopi/domain/run"
)

// ReportWriter renders a run report to an output stream
type ReportWriter interface {
	WriteReport(w io.Writer, report *run.Report) error
	// Extension is the file extension of the rendered format, without the dot
	Extension() string
}
