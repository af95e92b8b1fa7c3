package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

// SimpleWriter outputs the history as plain text.
type SimpleWriter struct {
	baseWriter

	// verbose adds the MAC address and error text of each attempt.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *model.HistoryReport) (int, error) {
	var sb strings.Builder

	if report.IsEmpty() {
		sb.WriteString("No connect attempts recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	w.writeSummary(&sb, report)
	w.writeAttempts(&sb, report)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.HistoryReport) {
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("CONNECT HISTORY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "  Attempts:   %d\n", report.Total)
	fmt.Fprintf(sb, "  Succeeded:  %d\n", report.Succeeded)
	fmt.Fprintf(sb, "  Failed:     %d\n", report.Failed)
	fmt.Fprintf(sb, "  Cancelled:  %d\n", report.Cancelled)
	fmt.Fprintf(sb, "  Tor reused: %d\n", report.Reused)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeAttempts(sb *strings.Builder, report *model.HistoryReport) {
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")

	for _, a := range report.Attempts {
		fmt.Fprintf(sb, "#%d  %s  %-9s  %s via %s\n",
			a.ID, a.StartedAt.Format(timeLayout), a.Outcome(), a.Country, orDash(a.Interface))

		switch a.Outcome() {
		case model.OutcomeSucceeded:
			fmt.Fprintf(sb, "    IP: %s, Location: %s\n", a.ExitIP, a.Location)
		case model.OutcomeFailed:
			fmt.Fprintf(sb, "    Failed at: %s\n", orDash(a.FailedStep()))
		}

		if w.verbose {
			fmt.Fprintf(sb, "    MAC: %s\n", orDash(a.MAC))
			if a.TorPID != 0 {
				fmt.Fprintf(sb, "    Tor pid: %d\n", a.TorPID)
			}
			if a.ErrorMessage != "" {
				fmt.Fprintf(sb, "    Error: %s\n", a.ErrorMessage)
			}
		}
	}
}
