package crawler

import "context"

// FetchResult is the outcome of retrieving one page.
type FetchResult struct {
	// HTML is the page markup as served (or as rendered, when a
	// JavaScript renderer is in use).
	HTML string

	// FinalURL is the URL that actually produced the body, after any
	// redirects. It may differ from the requested URL.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Degraded is true when a requested render step failed and HTML
	// holds the raw, unrendered body instead.
	Degraded bool
}

// Fetcher retrieves page markup for the crawl engine.
//
// Design decision: We define the interface on the consumer side rather
// than in the fetcher package because:
//  1. The engine only needs this one method
//  2. Tests can drive the engine with an in-memory site map
//  3. The HTTP and rendering clients stay swappable
type Fetcher interface {
	// Fetch retrieves the page at url. A non-nil error means no usable
	// body was obtained; the engine records the page as failed.
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}
