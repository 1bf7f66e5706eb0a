package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/siteaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeFindings(md, report)
	w.writePages(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Site Audit Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + report.SeedURL + "`"},
			{"Crawl Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Max Depth", strconv.Itoa(report.MaxDepth)},
			{"Pages Audited", strconv.Itoa(report.Summary.TotalPages)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell based on report state.
func statusText(report *model.Report) string {
	if report.Cancelled {
		return "⚠️ Cancelled (partial results)"
	}
	return "✅ Complete"
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Severity Summary")
	md.PlainText("")

	bySeverity := report.Summary.FindingsBySeverity
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Error", strconv.Itoa(bySeverity[model.SeverityError.String()])},
			{"🟡 Warning", strconv.Itoa(bySeverity[model.SeverityWarning.String()])},
			{"⚪ Info", strconv.Itoa(bySeverity[model.SeverityInfo.String()])},
			{"**Total**", "**" + strconv.Itoa(report.Summary.TotalFindings) + "**"},
		},
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	bySeverity := report.Summary.FindingsBySeverity
	for _, severity := range []model.Severity{model.SeverityError, model.SeverityWarning, model.SeverityInfo} {
		if count := bySeverity[severity.String()]; count > 0 {
			chart.LabelAndIntValue(severity.String(), uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	bySeverity := report.Summary.FindingsBySeverity
	failed := report.Summary.PagesByStatus[model.FetchStatusFailed]

	switch {
	case bySeverity[model.SeverityError.String()] > 0:
		md.Cautionf(
			"Audit errors occurred. %d error finding(s) mean some rules could not run.",
			bySeverity[model.SeverityError.String()],
		)
	case bySeverity[model.SeverityWarning.String()] > 0:
		md.Warningf(
			"Content issues detected. %d warning(s) should be reviewed.",
			bySeverity[model.SeverityWarning.String()],
		)
	case report.HasFindings():
		md.Note("Only informational findings detected.")
	default:
		md.Tip("No content issues detected.")
	}
	if failed > 0 {
		md.Importantf("%d page(s) could not be fetched and carry no content.", failed)
	}
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.Report) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityError, "### 🔴 Error"},
		{model.SeverityWarning, "### 🟡 Warning"},
		{model.SeverityInfo, "### ⚪ Info"},
	}

	for _, sev := range severities {
		rows := findingRows(report, sev.level)
		if len(rows) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Rule", "Page", "Message"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// findingRows collects table rows for one severity across all pages, in
// visit order.
func findingRows(report *model.Report, severity model.Severity) [][]string {
	var rows [][]string
	for _, page := range report.Pages {
		for _, f := range page.Findings {
			if f.Severity != severity {
				continue
			}
			rows = append(rows, []string{
				f.Rule,
				truncateString(page.URL, 60),
				truncateString(f.Message, 80),
			})
		}
	}
	return rows
}

// writePages writes the per-page crawl table.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.Report) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, page := range report.Pages {
		title := "-"
		if page.Content != nil && page.Content.Title != "" {
			title = truncateString(page.Content.Title, 40)
		}
		rows[i] = []string{
			truncateString(page.URL, 60),
			strconv.Itoa(page.Depth),
			string(page.FetchStatus),
			title,
			strconv.Itoa(len(page.Findings)),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Status", "Title", "Findings"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainText(fmt.Sprintf("_Generated by siteaudit on %s_", report.FinishedAt.Format("2006-01-02")))
}

// truncateString shortens s to max runes with an ellipsis.
func truncateString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
