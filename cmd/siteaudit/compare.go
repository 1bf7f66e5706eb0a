package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/database"
	"github.com/nao1215/siteaudit/internal/model"
)

// Constants for quality direction and summary messages.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noFindingsMessage  = "No findings"
)

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [host]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the current and previous audit results.

This command retrieves historical audit data from the database and shows:
- New findings that appeared since the last audit
- Resolved findings that are no longer present
- Changes in finding counts per severity

The comparison requires at least two audits in the database for the specified
host. Use 'siteaudit run' to perform audits and save results.

Examples:
  # Compare latest two audits for a site
  siteaudit compare www.example.com

  # List all audit history for a site
  siteaudit compare --list www.example.com

  # Compare with a specific historical audit by ID
  siteaudit compare --with-run-id 5 www.example.com

  # Output comparison in JSON format
  siteaudit compare --json www.example.com

  # List all audited hosts in the database
  siteaudit compare --list-hosts`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the specified host")
	cmd.Flags().BoolP("list-hosts", "L", false,
		"List all audited hosts in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-run-id", "i", 0,
		"Compare with a specific run by ID (use --list to see available IDs)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	// Database location
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listHosts, err := cmd.Flags().GetBool("list-hosts")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database (unless --list-hosts)
	var host string
	if !listHosts {
		if len(args) == 0 {
			return errors.New("host is required (use --list-hosts to see audited hosts)")
		}
		host, err = normalizeHost(args[0])
		if err != nil {
			return fmt.Errorf("invalid host: %w", err)
		}
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	// The database must already exist; compare never creates one.
	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database (run 'siteaudit run' first): %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if listHosts {
		return listAuditedHosts(ctx, db)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listRunHistory(ctx, db, host)
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetInt64("with-run-id")
	if err != nil {
		return err
	}

	return runComparison(ctx, db, host, withRunID, jsonOutput)
}

// normalizeHost accepts either a bare host or a full URL and returns the
// canonical lowercase host.
func normalizeHost(arg string) (string, error) {
	if strings.Contains(arg, "://") {
		canonical, err := model.Canonicalize(arg)
		if err != nil {
			return "", err
		}
		return model.CanonicalHost(canonical), nil
	}

	host := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(arg), "/"))
	if host == "" {
		return "", errors.New("empty host")
	}
	return host, nil
}

// listAuditedHosts lists all hosts that have audit records in the database.
func listAuditedHosts(ctx context.Context, db *database.AuditDB) error {
	hosts, err := db.ListAuditedHosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if len(hosts) == 0 {
		fmt.Println("No audited hosts found in the database.")
		fmt.Println("\nUse 'siteaudit run <url>' to audit a website.")
		return nil
	}

	fmt.Printf("Audited hosts (%d):\n\n", len(hosts))
	for _, host := range hosts {
		fmt.Printf("  • %s\n", host)
	}
	fmt.Println("\nUse 'siteaudit compare --list <host>' to see audit history for a host.")

	return nil
}

// listRunHistory lists all audit records for a specific host.
func listRunHistory(ctx context.Context, db *database.AuditDB, host string) error {
	history, err := db.GetRunHistory(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if len(history) == 0 {
		fmt.Printf("No audit history found for %s\n", host)
		fmt.Println("\nUse 'siteaudit run' to audit this site.")
		return nil
	}

	fmt.Printf("Audit history for %s (%d runs):\n\n", host, len(history))
	fmt.Printf("  %-6s  %-20s  %-7s  %s\n", "ID", "Date", "Pages", "Findings")
	fmt.Println("  " + strings.Repeat("-", 60))

	for _, meta := range history {
		fmt.Printf("  %-6d  %-20s  %-7d  %s\n",
			meta.ID,
			meta.StartedAt.Local().Format("2006-01-02 15:04:05"),
			meta.TotalPages,
			formatFindingSummary(meta),
		)
	}

	fmt.Println("\nUse 'siteaudit compare <host>' to compare the latest two runs.")
	fmt.Println("Use 'siteaudit compare --with-run-id <id> <host>' to compare with a specific run.")

	return nil
}

// formatFindingSummary formats per-severity counts into a short string.
func formatFindingSummary(meta database.RunMetadata) string {
	var parts []string
	if meta.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("E:%d", meta.ErrorCount))
	}
	if meta.WarningCount > 0 {
		parts = append(parts, fmt.Sprintf("W:%d", meta.WarningCount))
	}
	if meta.InfoCount > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", meta.InfoCount))
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between audit reports.
func runComparison(ctx context.Context, db *database.AuditDB, host string, withRunID int64, jsonOutput bool) error {
	runs, err := db.GetLatestRuns(ctx, host, 2)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(runs) == 0 {
		return fmt.Errorf("no audit history found for %s", host)
	}
	if len(runs) < 2 && withRunID == 0 {
		return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	// Latest run is always the current one
	current := runs[0]

	var previous *model.Report
	if withRunID > 0 {
		previous, err = db.GetRunByID(ctx, withRunID)
		if err != nil {
			return fmt.Errorf("failed to get run with ID %d: %w", withRunID, err)
		}
		if previous == nil {
			return fmt.Errorf("run with ID %d not found", withRunID)
		}
		// Validate that the run belongs to the same host
		if got := model.CanonicalHost(previous.SeedURL); got != host {
			return fmt.Errorf("run ID %d belongs to %s, not %s", withRunID, got, host)
		}
	} else {
		previous = runs[1]
	}

	comparison := compareRuns(host, previous, current)

	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two audit reports.
type ComparisonResult struct {
	// Host is the audited website host.
	Host string `json:"host"`

	// PreviousRun contains metadata about the previous run.
	PreviousRun RunSummary `json:"previousRun"`

	// CurrentRun contains metadata about the current run.
	CurrentRun RunSummary `json:"currentRun"`

	// NewFindings contains findings that are new in the current run.
	NewFindings []PageFinding `json:"newFindings,omitempty"`

	// ResolvedFindings contains findings that were in the previous run
	// but not in the current one.
	ResolvedFindings []PageFinding `json:"resolvedFindings,omitempty"`

	// NewPages are page URLs audited in the current run only.
	NewPages []string `json:"newPages,omitempty"`

	// RemovedPages are page URLs audited in the previous run only.
	RemovedPages []string `json:"removedPages,omitempty"`

	// UnchangedCount is the number of findings present in both runs.
	UnchangedCount int `json:"unchangedCount"`

	// Change describes the overall movement of audit quality.
	Change QualityChange `json:"change"`
}

// RunSummary contains metadata about one run for comparison display.
type RunSummary struct {
	// StartedAt is when the run started.
	StartedAt time.Time `json:"startedAt"`

	// TotalPages is the number of pages recorded by this run.
	TotalPages int `json:"totalPages"`

	// TotalFindings is the total number of findings in this run.
	TotalFindings int `json:"totalFindings"`

	// ErrorCount is the number of error-severity findings.
	ErrorCount int `json:"errorCount"`

	// WarningCount is the number of warning-severity findings.
	WarningCount int `json:"warningCount"`

	// InfoCount is the number of informational findings.
	InfoCount int `json:"infoCount"`
}

// QualityChange describes the change in findings between runs.
type QualityChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// ErrorDelta is the change in error finding count.
	ErrorDelta int `json:"errorDelta"`

	// WarningDelta is the change in warning finding count.
	WarningDelta int `json:"warningDelta"`

	// InfoDelta is the change in informational finding count.
	InfoDelta int `json:"infoDelta"`
}

// PageFinding pairs a finding with the page it was found on.
type PageFinding struct {
	// PageURL is the canonical URL of the page.
	PageURL string `json:"pageUrl"`

	// Finding is the rule result.
	Finding model.Finding `json:"finding"`
}

// compareRuns compares two audit reports and generates a comparison result.
func compareRuns(host string, previous, current *model.Report) *ComparisonResult {
	result := &ComparisonResult{
		Host:        host,
		PreviousRun: summarizeRun(previous),
		CurrentRun:  summarizeRun(current),
	}

	previousFindings := flattenFindings(previous)
	currentFindings := flattenFindings(current)

	previousKeys := make(map[string]bool, len(previousFindings))
	for _, pf := range previousFindings {
		previousKeys[findingKey(pf)] = true
	}
	currentKeys := make(map[string]bool, len(currentFindings))
	for _, pf := range currentFindings {
		currentKeys[findingKey(pf)] = true
	}

	// Iterate the flattened slices rather than the key maps so the
	// output order follows the report's page order.
	for _, pf := range currentFindings {
		if !previousKeys[findingKey(pf)] {
			result.NewFindings = append(result.NewFindings, pf)
		}
	}
	for _, pf := range previousFindings {
		if !currentKeys[findingKey(pf)] {
			result.ResolvedFindings = append(result.ResolvedFindings, pf)
		} else {
			result.UnchangedCount++
		}
	}

	result.NewPages, result.RemovedPages = diffPages(previous, current)
	result.Change = calculateChange(result.PreviousRun, result.CurrentRun)

	return result
}

// diffPages lists page URLs present in only one of the two runs.
func diffPages(previous, current *model.Report) (added, removed []string) {
	previousPages := make(map[string]bool, len(previous.Pages))
	for _, page := range previous.Pages {
		previousPages[page.URL] = true
	}
	currentPages := make(map[string]bool, len(current.Pages))
	for _, page := range current.Pages {
		currentPages[page.URL] = true
	}

	for _, page := range current.Pages {
		if !previousPages[page.URL] {
			added = append(added, page.URL)
		}
	}
	for _, page := range previous.Pages {
		if !currentPages[page.URL] {
			removed = append(removed, page.URL)
		}
	}
	return added, removed
}

// summarizeRun extracts comparison metadata from a report.
func summarizeRun(report *model.Report) RunSummary {
	bySeverity := report.Summary.FindingsBySeverity
	return RunSummary{
		StartedAt:     report.StartedAt,
		TotalPages:    report.Summary.TotalPages,
		TotalFindings: report.Summary.TotalFindings,
		ErrorCount:    bySeverity[model.SeverityError.String()],
		WarningCount:  bySeverity[model.SeverityWarning.String()],
		InfoCount:     bySeverity[model.SeverityInfo.String()],
	}
}

// flattenFindings lists every finding with its page URL in report order.
func flattenFindings(report *model.Report) []PageFinding {
	var flat []PageFinding
	for _, page := range report.Pages {
		for _, finding := range page.Findings {
			flat = append(flat, PageFinding{PageURL: page.URL, Finding: finding})
		}
	}
	return flat
}

// findingKey generates a unique key for a finding for comparison purposes.
func findingKey(pf PageFinding) string {
	return pf.Finding.Rule + "|" + pf.PageURL + "|" + pf.Finding.Message
}

// calculateChange calculates the change in audit quality between two runs.
func calculateChange(previous, current RunSummary) QualityChange {
	change := QualityChange{
		ErrorDelta:   current.ErrorCount - previous.ErrorCount,
		WarningDelta: current.WarningCount - previous.WarningCount,
		InfoDelta:    current.InfoCount - previous.InfoCount,
	}

	// Determine overall direction based on weighted score.
	// Errors weigh more than warnings; informational findings such as
	// CMS detection barely move the needle.
	previousScore := previous.ErrorCount*100 + previous.WarningCount*10 + previous.InfoCount
	currentScore := current.ErrorCount*100 + current.WarningCount*10 + current.InfoCount

	switch {
	case currentScore < previousScore:
		change.Direction = directionImproved
	case currentScore > previousScore:
		change.Direction = directionWorsened
	default:
		change.Direction = directionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Audit Comparison: %s\n", result.Host)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nStatus: %s\n", formatDirection(result.Change.Direction))

	fmt.Printf("\nPrevious run: %s (%d pages)\n",
		result.PreviousRun.StartedAt.Local().Format("2006-01-02 15:04:05"),
		result.PreviousRun.TotalPages)
	fmt.Printf("Current run:  %s (%d pages)\n",
		result.CurrentRun.StartedAt.Local().Format("2006-01-02 15:04:05"),
		result.CurrentRun.TotalPages)

	fmt.Println("\nFindings Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Error",
		result.PreviousRun.ErrorCount, result.CurrentRun.ErrorCount,
		formatDelta(result.Change.ErrorDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Warning",
		result.PreviousRun.WarningCount, result.CurrentRun.WarningCount,
		formatDelta(result.Change.WarningDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Info",
		result.PreviousRun.InfoCount, result.CurrentRun.InfoCount,
		formatDelta(result.Change.InfoDelta))
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousRun.TotalFindings, result.CurrentRun.TotalFindings,
		formatDelta(result.CurrentRun.TotalFindings-result.PreviousRun.TotalFindings))

	if len(result.NewFindings) > 0 {
		fmt.Printf("\nNew Findings (%d):\n", len(result.NewFindings))
		for _, pf := range result.NewFindings {
			fmt.Printf("  [+] [%s] %s: %s\n", pf.Finding.Severity, pf.Finding.Rule, pf.Finding.Message)
			fmt.Printf("      Page: %s\n", pf.PageURL)
		}
	}

	if len(result.ResolvedFindings) > 0 {
		fmt.Printf("\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, pf := range result.ResolvedFindings {
			fmt.Printf("  [-] [%s] %s: %s\n", pf.Finding.Severity, pf.Finding.Rule, pf.Finding.Message)
		}
	}

	if len(result.NewPages) > 0 {
		fmt.Printf("\nNew Pages (%d):\n", len(result.NewPages))
		for _, url := range result.NewPages {
			fmt.Printf("  [+] %s\n", url)
		}
	}

	if len(result.RemovedPages) > 0 {
		fmt.Printf("\nRemoved Pages (%d):\n", len(result.RemovedPages))
		for _, url := range result.RemovedPages {
			fmt.Printf("  [-] %s\n", url)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatDirection formats the change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (fewer or less severe findings)"
	case directionWorsened:
		return "WORSENED (more or more severe findings)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
