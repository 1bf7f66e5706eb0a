package report

import (
	"sync"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// Aggregator collects page records from concurrent crawl workers and
// produces the final report. Records keep arrival order; the summary is
// computed once at finalization.
//
// Design decision: We compute the summary in Finalize rather than
// incrementally on every Record because:
//  1. Record stays a cheap append under the lock
//  2. The summary is only read after the crawl ends
//  3. A single pass over the finished slice cannot drift out of sync
type Aggregator struct {
	mu        sync.Mutex
	pages     []model.PageRecord
	startedAt time.Time
	seedURL   string
	maxDepth  int
	finalized bool
}

// NewAggregator creates an Aggregator for one crawl run and stamps the
// run's start time.
func NewAggregator(seedURL string, maxDepth int) *Aggregator {
	return &Aggregator{
		seedURL:   seedURL,
		maxDepth:  maxDepth,
		startedAt: time.Now(),
		pages:     make([]model.PageRecord, 0),
	}
}

// Record appends one page record and returns the running record count.
// Safe for concurrent use. Records arriving after Finalize are dropped.
func (a *Aggregator) Record(rec model.PageRecord) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finalized {
		return len(a.pages)
	}
	a.pages = append(a.pages, rec)
	return len(a.pages)
}

// Count returns the number of records collected so far.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages)
}

// Finalize freezes the aggregator and returns the finished report with
// its summary counts. Calling Finalize more than once returns a report
// over the same frozen records.
func (a *Aggregator) Finalize(cancelled bool) *model.Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.finalized = true

	rep := &model.Report{
		SeedURL:    a.seedURL,
		MaxDepth:   a.maxDepth,
		StartedAt:  a.startedAt,
		FinishedAt: time.Now(),
		Cancelled:  cancelled,
		Pages:      a.pages,
		Summary:    summarize(a.pages),
	}
	return rep
}

// summarize computes aggregate counts over the finished records.
func summarize(pages []model.PageRecord) model.Summary {
	summary := model.Summary{
		TotalPages:         len(pages),
		PagesByStatus:      make(map[model.FetchStatus]int),
		FindingsBySeverity: make(map[string]int),
		FindingsByRule:     make(map[string]int),
	}
	for _, page := range pages {
		summary.PagesByStatus[page.FetchStatus]++
		for _, f := range page.Findings {
			summary.FindingsBySeverity[f.Severity.String()]++
			summary.FindingsByRule[f.Rule]++
			summary.TotalFindings++
		}
	}
	return summary
}
