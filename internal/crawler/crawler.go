package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/siteaudit/internal/extractor"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/report"
	"github.com/nao1215/siteaudit/internal/rules"
)

// Default engine settings.
const (
	// DefaultMaxDepth is the default crawl depth: the seed page plus
	// the pages it links to.
	DefaultMaxDepth = 1

	// DefaultMaxPages caps the total fetches of one audit run.
	DefaultMaxPages = 200

	// DefaultWorkers is the default number of concurrent fetch workers.
	DefaultWorkers = 4
)

// ProgressFunc is called after each page record with the recorded URL,
// its depth, and the running record count. Calls may come from any
// worker goroutine.
type ProgressFunc func(url string, depth, completed int)

// Engine drives a bounded breadth-first audit crawl. Each dequeued URL
// is fetched, extracted, and evaluated against the rule battery; the
// result is exactly one page record per claimed URL.
type Engine struct {
	// fetcher retrieves page markup.
	fetcher Fetcher

	// extractor turns markup into structured page content.
	extractor *extractor.Extractor

	// rules is the audit rule battery run on every extracted page.
	rules *rules.Engine

	// limiter applies per-host politeness. Nil disables limiting.
	limiter *HostLimiter

	// logger receives per-page progress and degradation events.
	logger *slog.Logger

	// maxDepth limits how deep to crawl from the seed URL.
	// 0 means only the seed page, 1 adds one level of links, etc.
	maxDepth int

	// maxPages limits the total number of pages fetched.
	maxPages int

	// workers is the number of concurrent fetch workers.
	workers int

	// progress, when set, is notified after every page record.
	progress ProgressFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus linked pages, etc.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) EngineOption {
	return func(e *Engine) {
		if maxPages > 0 {
			e.maxPages = maxPages
		}
	}
}

// WithWorkers sets the number of concurrent fetch workers.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLimiter sets the per-host politeness limiter.
func WithLimiter(limiter *HostLimiter) EngineOption {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExtractor replaces the default content extractor.
func WithExtractor(ex *extractor.Extractor) EngineOption {
	return func(e *Engine) {
		if ex != nil {
			e.extractor = ex
		}
	}
}

// WithRuleEngine replaces the default rule battery.
func WithRuleEngine(re *rules.Engine) EngineOption {
	return func(e *Engine) {
		if re != nil {
			e.rules = re
		}
	}
}

// WithProgress sets the per-page progress callback.
func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine creates an Engine with default depth, page, and worker
// limits.
func NewEngine(fetcher Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		extractor: extractor.New(),
		rules:     rules.NewEngine(),
		maxDepth:  DefaultMaxDepth,
		maxPages:  DefaultMaxPages,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Run crawls breadth-first from seedURL and returns the finished audit
// report. Only pages on the seed's host are followed. The crawl ends
// when the frontier drains, the page limit is hit, or ctx is cancelled;
// cancellation keeps the records completed so far and marks the report
// cancelled. An error is returned only when the seed URL itself is
// unusable.
func (e *Engine) Run(ctx context.Context, seedURL string) (*model.Report, error) {
	seed, err := model.Canonicalize(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL %q: %w", seedURL, err)
	}

	agg := report.NewAggregator(seed, e.maxDepth)
	fr := newFrontier(e.maxPages)
	fr.enqueue(seed, 0)

	var cancelled atomic.Bool
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			cancelled.Store(true)
			fr.close()
		case <-watchDone:
		}
	}()

	e.logger.Info("starting crawl",
		"seed", seed,
		"max_depth", e.maxDepth,
		"max_pages", e.maxPages,
		"workers", e.workers,
	)

	var g errgroup.Group
	for range e.workers {
		g.Go(func() error {
			for {
				item, ok := fr.next()
				if !ok {
					return nil
				}
				e.process(ctx, fr, agg, seed, item)
				fr.done()
			}
		})
	}
	// Workers only return nil; the group is used for its WaitGroup
	// semantics and panic propagation.
	_ = g.Wait()

	rep := agg.Finalize(cancelled.Load())
	e.logger.Info("crawl finished",
		"pages", rep.Summary.TotalPages,
		"findings", rep.Summary.TotalFindings,
		"cancelled", rep.Cancelled,
	)
	return rep, nil
}

// process handles one dequeued URL: claim, fetch, extract, evaluate,
// record, and schedule its links.
func (e *Engine) process(ctx context.Context, fr *frontier, agg *report.Aggregator, seed string, item frontierItem) {
	if !fr.markVisited(item.url) {
		// A redirect already landed on this URL and recorded it.
		return
	}

	if err := e.limiter.Wait(ctx, model.CanonicalHost(item.url)); err != nil {
		// Cancellation while queued for politeness: no fetch happened,
		// so no record is owed.
		return
	}

	res, err := e.fetcher.Fetch(ctx, item.url)
	if err != nil {
		e.logger.Warn("fetch failed", "url", item.url, "depth", item.depth, "error", err)
		e.record(agg, model.PageRecord{
			URL:         item.url,
			Depth:       item.depth,
			FetchStatus: model.FetchStatusFailed,
		})
		return
	}

	recordURL := item.url
	if final, cerr := model.Canonicalize(res.FinalURL); cerr == nil && final != "" && final != item.url {
		if !fr.markVisited(final) {
			e.logger.Debug("redirect target already recorded", "url", item.url, "final", final)
			return
		}
		recordURL = final
	}

	status := model.FetchStatusOK
	if res.Degraded {
		status = model.FetchStatusRenderDegraded
		e.logger.Warn("render degraded, using raw body", "url", recordURL)
	}

	content := e.extractor.Extract(res.HTML, recordURL)
	findings := e.rules.Evaluate(content)

	e.record(agg, model.PageRecord{
		URL:         recordURL,
		Depth:       item.depth,
		FetchStatus: status,
		Content:     content,
		Findings:    findings,
	})

	if item.depth >= e.maxDepth {
		return
	}
	for _, link := range content.Links {
		if !model.SameHost(link, seed) {
			continue
		}
		fr.enqueue(link, item.depth+1)
	}
}

// record appends one page record and fires the progress callback.
func (e *Engine) record(agg *report.Aggregator, rec model.PageRecord) {
	count := agg.Record(rec)
	e.logger.Debug("page recorded",
		"url", rec.URL,
		"depth", rec.Depth,
		"status", rec.FetchStatus,
		"findings", len(rec.Findings),
	)
	if e.progress != nil {
		e.progress(rec.URL, rec.Depth, count)
	}
}
