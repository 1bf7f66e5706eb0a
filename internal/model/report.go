package model

import "time"

// Report is the final artifact of one crawl run: every visited page in
// visit order plus aggregate counts. It is built once by the aggregator
// at crawl completion and is the only value that outlives the run.
type Report struct {
	// SeedURL is the canonical form of the URL the crawl started from.
	SeedURL string `json:"seedUrl"`

	// MaxDepth is the configured depth ceiling for this run.
	MaxDepth int `json:"maxDepth"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the report was finalized.
	FinishedAt time.Time `json:"finishedAt"`

	// Cancelled is true if the run was cut short by cancellation, a
	// timeout budget, or the max-pages ceiling. Records produced before
	// cancellation are still present and valid.
	Cancelled bool `json:"cancelled,omitempty"`

	// Pages contains one record per visited canonical URL, in visit
	// order.
	Pages []PageRecord `json:"pages"`

	// Summary contains aggregate counts over Pages.
	Summary Summary `json:"summary"`
}

// Summary aggregates counts over a report's pages and findings.
type Summary struct {
	// TotalPages is the number of page records in the report.
	TotalPages int `json:"totalPages"`

	// PagesByStatus counts pages per fetch status.
	PagesByStatus map[FetchStatus]int `json:"pagesByStatus"`

	// FindingsBySeverity counts findings per severity name.
	FindingsBySeverity map[string]int `json:"findingsBySeverity"`

	// FindingsByRule counts findings per rule name.
	FindingsByRule map[string]int `json:"findingsByRule"`

	// TotalFindings is the number of findings across all pages.
	TotalFindings int `json:"totalFindings"`
}

// TotalFindings returns the number of findings across all pages.
func (r *Report) TotalFindings() int {
	return r.Summary.TotalFindings
}

// HasFindings returns true if any page produced at least one finding.
func (r *Report) HasFindings() bool {
	return r.Summary.TotalFindings > 0
}

// FindingsBySeverity returns all findings of the given severity across
// pages, in visit order.
func (r *Report) FindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, p := range r.Pages {
		for _, f := range p.Findings {
			if f.Severity == severity {
				result = append(result, f)
			}
		}
	}
	return result
}

// PageURLs returns the canonical URL of every page in visit order.
func (r *Report) PageURLs() []string {
	urls := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		urls[i] = p.URL
	}
	return urls
}
