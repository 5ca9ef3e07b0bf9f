package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopi/internal/testkit"
	"gopi/ports"
)

var (
	_ ports.ReportWriter = (*MarkdownWriter)(nil)
	_ ports.ReportWriter = (*HTMLWriter)(nil)
)

func TestMarkdown(t *testing.T) {
	md := string(Markdown(testkit.FixedReport()))

	assert.True(t, strings.HasPrefix(md, "# Monte Carlo π run 0190b8a2-6c3e-7000-8000-000000000001\n"))
	assert.Contains(t, md, "| seed key | `0x123,0x234,0x345,0x456` |")
	assert.Contains(t, md, "| critical value | 2 (explicit) |")
	assert.Contains(t, md, "| mean | 2.000000 |")
	assert.Contains(t, md, "| half-width | 1.154701 |")
	assert.Contains(t, md, "| interval | [0.845299; 3.154701] |")
	assert.Contains(t, md, "| covers π | true |")
	assert.Contains(t, md, "| normality p (Jarque-Bera) | 1 |")
	assert.Contains(t, md, "| 3 | 3.000000 |")
	assert.Contains(t, md, "Elapsed: 1.5ms")
	assert.NotContains(t, md, "| confidence |")
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewMarkdownWriter()
	require.NoError(t, w.WriteReport(&buf, testkit.FixedReport()))
	assert.Equal(t, Markdown(testkit.FixedReport()), buf.Bytes())
	assert.Equal(t, "md", w.Extension())
}

func TestHTMLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewHTMLWriter()
	require.NoError(t, w.WriteReport(&buf, testkit.FixedReport()))

	page := buf.String()
	assert.Contains(t, page, "<title>Monte Carlo π run 0190b8a2-6c3e-7000-8000-000000000001</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>2.000000</td>")
	assert.Equal(t, "html", w.Extension())
}
