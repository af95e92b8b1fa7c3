package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

// MarkdownWriter outputs the history as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *model.HistoryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("CuackProxy Connect History")
	md.PlainText("")
	md.PlainTextf("Generated %s", report.GeneratedAt.Format(timeLayout))
	md.PlainText("")

	if report.IsEmpty() {
		md.Note("No connect attempts recorded.")
		return len(md.String()), md.Build()
	}

	w.writeSummary(md, report)
	w.writeCountries(md, report)
	w.writeAttempts(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.HistoryReport) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"✅ Succeeded", strconv.Itoa(report.Succeeded)},
			{"❌ Failed", strconv.Itoa(report.Failed)},
			{"⏹️ Cancelled", strconv.Itoa(report.Cancelled)},
			{"♻️ Tor reused", strconv.Itoa(report.Reused)},
			{"**Total**", "**" + strconv.Itoa(report.Total) + "**"},
		},
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Attempt Outcomes"),
		piechart.WithShowData(true),
	)
	if report.Succeeded > 0 {
		chart.LabelAndIntValue("Succeeded", uint64(report.Succeeded))
	}
	if report.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(report.Failed))
	}
	if report.Cancelled > 0 {
		chart.LabelAndIntValue("Cancelled", uint64(report.Cancelled))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	if report.Failed > 0 {
		md.Warningf("%d of %d attempt(s) failed. Run `cuackproxy logs` for details.", report.Failed, report.Total)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeCountries(md *markdown.Markdown, report *model.HistoryReport) {
	countries := make([]string, 0, len(report.Countries))
	for c := range report.Countries {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	rows := make([][]string, len(countries))
	for i, c := range countries {
		rows[i] = []string{c, strconv.Itoa(report.Countries[c])}
	}

	md.H2("Exit Selections")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Country", "Attempts"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAttempts(md *markdown.Markdown, report *model.HistoryReport) {
	rows := make([][]string, len(report.Attempts))
	for i, a := range report.Attempts {
		rows[i] = []string{
			strconv.FormatInt(a.ID, 10),
			a.StartedAt.Format(timeLayout),
			a.Outcome(),
			a.Country,
			"`" + orDash(a.Interface) + "`",
			orDash(a.ExitIP),
			orDash(a.Location),
			orDash(a.FailedStep()),
		}
	}

	md.H2("Attempts")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Outcome", "Exit", "Interface", "IP", "Location", "Failed Step"},
		Rows:   rows,
	})
	md.PlainText("")
}
