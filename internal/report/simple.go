package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-page section in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with the per-page breakdown.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeFindings(&sb, report)
	if w.verbose {
		w.writePages(&sb, report)
	}

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the crawl header section.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	fmt.Fprintf(sb, "Site Audit Report\n")
	fmt.Fprintf(sb, "=================\n\n")
	fmt.Fprintf(sb, "Seed URL:   %s\n", report.SeedURL)
	fmt.Fprintf(sb, "Crawl Date: %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Max Depth:  %d\n", report.MaxDepth)
	fmt.Fprintf(sb, "Duration:   %s\n", report.FinishedAt.Sub(report.StartedAt).Round(10*time.Millisecond))
	if report.Cancelled {
		fmt.Fprintf(sb, "Status:     cancelled (partial results)\n")
	}
	fmt.Fprintln(sb)
}

// writeSummary writes the page and severity counts.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	summary := report.Summary
	fmt.Fprintf(sb, "Pages:    %d total", summary.TotalPages)
	if failed := summary.PagesByStatus[model.FetchStatusFailed]; failed > 0 {
		fmt.Fprintf(sb, ", %d failed", failed)
	}
	if degraded := summary.PagesByStatus[model.FetchStatusRenderDegraded]; degraded > 0 {
		fmt.Fprintf(sb, ", %d render-degraded", degraded)
	}
	fmt.Fprintln(sb)

	fmt.Fprintf(sb, "Findings: %d total (%d error, %d warning, %d info)\n\n",
		summary.TotalFindings,
		summary.FindingsBySeverity[model.SeverityError.String()],
		summary.FindingsBySeverity[model.SeverityWarning.String()],
		summary.FindingsBySeverity[model.SeverityInfo.String()],
	)
}

// writeFindings writes every finding grouped by severity, in visit order
// within each group.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.Report) {
	if !report.HasFindings() {
		fmt.Fprintf(sb, "No findings.\n")
		return
	}

	for _, severity := range []model.Severity{model.SeverityError, model.SeverityWarning, model.SeverityInfo} {
		var lines []string
		for _, page := range report.Pages {
			for _, f := range page.Findings {
				if f.Severity == severity {
					lines = append(lines, fmt.Sprintf("  [%s] %s\n      %s", f.Rule, page.URL, f.Message))
				}
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(sb, "%s (%d)\n", strings.ToUpper(severity.String()), len(lines))
		for _, line := range lines {
			fmt.Fprintln(sb, line)
		}
		fmt.Fprintln(sb)
	}
}

// writePages writes the per-page breakdown.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.Report) {
	fmt.Fprintf(sb, "Pages\n-----\n")
	for _, page := range report.Pages {
		fmt.Fprintf(sb, "  depth=%d status=%-14s findings=%-3d %s\n",
			page.Depth, page.FetchStatus, len(page.Findings), page.URL)
	}
}
