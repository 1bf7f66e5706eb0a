package model

// FetchStatus describes the final fetch outcome for one page.
//
// The string values appear verbatim in persisted reports.
type FetchStatus string

const (
	// FetchStatusOK means the page was fetched (and rendered, when
	// rendering is enabled) successfully.
	FetchStatusOK FetchStatus = "ok"

	// FetchStatusFailed means the fetch failed after bounded retries.
	// The record carries no content and no children were enqueued.
	FetchStatusFailed FetchStatus = "fetchFailed"

	// FetchStatusRenderDegraded means JavaScript rendering failed and
	// the page was analyzed from the raw markup instead.
	FetchStatusRenderDegraded FetchStatus = "renderDegraded"
)

// IsValid returns true if this is a known fetch status.
func (s FetchStatus) IsValid() bool {
	switch s {
	case FetchStatusOK, FetchStatusFailed, FetchStatusRenderDegraded:
		return true
	default:
		return false
	}
}

// PageRecord is the per-page unit of the final report: one visited
// canonical URL with its fetch outcome, extracted content, and findings.
// A record is created once per visited URL and never mutated after
// analysis completes; the aggregator owns it exclusively once emitted.
type PageRecord struct {
	// URL is the canonical URL of the visited page. For redirected
	// fetches this is the canonical form of the final URL.
	URL string `json:"url"`

	// Depth is the BFS depth at which the page was visited; the seed
	// is depth 0. Never exceeds the configured maximum depth.
	Depth int `json:"depth"`

	// FetchStatus is the final fetch outcome.
	FetchStatus FetchStatus `json:"fetchStatus"`

	// Content is the extracted page content. Nil when the fetch failed.
	Content *PageContent `json:"content,omitempty"`

	// Findings contains the analysis findings in deterministic rule
	// order. Nil when the fetch failed.
	Findings []Finding `json:"findings,omitempty"`
}
