package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// fakePage is one entry in the in-memory site served by fakeFetcher.
type fakePage struct {
	html     string
	finalURL string
	degraded bool
	err      error
}

// fakeFetcher serves pages from a map keyed by canonical URL.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]fakePage
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("no route to host")
	}
	if page.err != nil {
		return nil, page.err
	}
	final := page.finalURL
	if final == "" {
		final = url
	}
	return &FetchResult{
		HTML:       page.html,
		FinalURL:   final,
		StatusCode: 200,
		Degraded:   page.degraded,
	}, nil
}

// htmlWithLinks builds a minimal page linking to the given URLs.
func htmlWithLinks(links ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>t</title></head><body><h1>h</h1>")
	for _, link := range links {
		fmt.Fprintf(&sb, `<a href=%q>link</a>`, link)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// sortedURLs returns the record URLs of a report, sorted.
func sortedURLs(rep *model.Report) []string {
	urls := rep.PageURLs()
	sort.Strings(urls)
	return urls
}

// TestEngineBreadthFirst tests depth-bounded traversal with a cycle.
func TestEngineBreadthFirst(t *testing.T) {
	t.Parallel()

	const (
		a = "https://site.example"
		b = "https://site.example/b"
		c = "https://site.example/c"
		d = "https://site.example/d"
	)
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		a: {html: htmlWithLinks("/b", "/c")},
		b: {html: htmlWithLinks("/d")},
		c: {html: htmlWithLinks("/")}, // cycle back to the seed
		d: {html: htmlWithLinks()},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(1), WithWorkers(3)).Run(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{a, b, c}
	if got := sortedURLs(rep); len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("visited %v, want %v", got, want)
	}
	for _, page := range rep.Pages {
		if page.Depth > 1 {
			t.Errorf("page %s at depth %d exceeds the limit", page.URL, page.Depth)
		}
	}
	if rep.Pages[0].URL != a || rep.Pages[0].Depth != 0 {
		t.Errorf("seed should be the first record, got %+v", rep.Pages[0])
	}
	if rep.Summary.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", rep.Summary.TotalPages)
	}
}

// TestEngineNoDuplicateVisits tests that a URL linked from many pages is
// fetched once.
func TestEngineNoDuplicateVisits(t *testing.T) {
	t.Parallel()

	const (
		seed   = "https://site.example"
		shared = "https://site.example/shared"
	)
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed:                     {html: htmlWithLinks("/a", "/b")},
		"https://site.example/a": {html: htmlWithLinks("/shared")},
		"https://site.example/b": {html: htmlWithLinks("/shared", "/shared#frag")},
		shared:                   {html: htmlWithLinks()},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(3), WithWorkers(2)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	for _, page := range rep.Pages {
		seen[page.URL]++
	}
	for url, count := range seen {
		if count > 1 {
			t.Errorf("url %s recorded %d times", url, count)
		}
	}
	if seen[shared] != 1 {
		t.Errorf("shared page recorded %d times, want 1", seen[shared])
	}
}

// TestEngineFetchFailure tests that failing pages degrade to records.
func TestEngineFetchFailure(t *testing.T) {
	t.Parallel()

	const seed = "https://site.example"
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed:                      {html: htmlWithLinks("/gone", "/ok")},
		"https://site.example/ok": {html: htmlWithLinks()},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(1)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}

	var failed *model.PageRecord
	for i := range rep.Pages {
		if rep.Pages[i].URL == "https://site.example/gone" {
			failed = &rep.Pages[i]
		}
	}
	if failed == nil {
		t.Fatal("expected a record for the unreachable page")
	}
	if failed.FetchStatus != model.FetchStatusFailed {
		t.Errorf("status = %s, want fetchFailed", failed.FetchStatus)
	}
	if failed.Content != nil || failed.Findings != nil {
		t.Errorf("failed record should carry no content or findings: %+v", failed)
	}
	if rep.Summary.TotalPages != 3 {
		t.Errorf("crawl should continue past failures, got %d pages", rep.Summary.TotalPages)
	}
	if rep.Cancelled {
		t.Error("per-page failures must not mark the run cancelled")
	}
}

// TestEngineRedirectDedup tests that a redirect landing on an already
// recorded page produces no duplicate record.
func TestEngineRedirectDedup(t *testing.T) {
	t.Parallel()

	const (
		seed   = "https://site.example"
		alias  = "https://site.example/alias"
		target = "https://site.example/target"
	)
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed:   {html: htmlWithLinks("/target", "/alias")},
		target: {html: htmlWithLinks()},
		alias:  {html: htmlWithLinks(), finalURL: target + "/"},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(1), WithWorkers(1)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, page := range rep.Pages {
		if page.URL == target {
			count++
		}
		if page.URL == alias {
			t.Errorf("alias URL should not be recorded; redirect target is canonical")
		}
	}
	if count != 1 {
		t.Errorf("target recorded %d times, want 1", count)
	}
}

// TestEngineMaxDepthZero tests that depth 0 fetches only the seed.
func TestEngineMaxDepthZero(t *testing.T) {
	t.Parallel()

	const seed = "https://site.example"
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed: {html: htmlWithLinks("/a", "/b")},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(0)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Pages) != 1 || rep.Pages[0].URL != seed {
		t.Errorf("expected only the seed record, got %v", rep.PageURLs())
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("expected 1 fetch, got %v", fetcher.calls)
	}
}

// TestEngineMaxPages tests the total fetch ceiling.
func TestEngineMaxPages(t *testing.T) {
	t.Parallel()

	const seed = "https://site.example"
	pages := map[string]fakePage{
		seed: {html: htmlWithLinks("/p1", "/p2", "/p3", "/p4", "/p5")},
	}
	for i := 1; i <= 5; i++ {
		pages[fmt.Sprintf("https://site.example/p%d", i)] = fakePage{html: htmlWithLinks()}
	}
	fetcher := &fakeFetcher{pages: pages}

	rep, err := NewEngine(fetcher, WithMaxDepth(2), WithMaxPages(3)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Pages) > 3 {
		t.Errorf("recorded %d pages, limit is 3", len(rep.Pages))
	}
}

// TestEngineSameHostOnly tests that off-host links are not followed.
func TestEngineSameHostOnly(t *testing.T) {
	t.Parallel()

	const seed = "https://site.example"
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed:                         {html: htmlWithLinks("https://elsewhere.example/p", "/local")},
		"https://site.example/local": {html: htmlWithLinks()},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(2)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	for _, page := range rep.Pages {
		if strings.Contains(page.URL, "elsewhere") {
			t.Errorf("followed off-host link %s", page.URL)
		}
	}
	if len(rep.Pages) != 2 {
		t.Errorf("expected 2 pages, got %v", rep.PageURLs())
	}
}

// TestEngineRenderDegraded tests degraded fetches keep their content.
func TestEngineRenderDegraded(t *testing.T) {
	t.Parallel()

	const seed = "https://site.example"
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed: {html: htmlWithLinks(), degraded: true},
	}}

	rep, err := NewEngine(fetcher, WithMaxDepth(0)).Run(context.Background(), seed)
	if err != nil {
		t.Fatal(err)
	}
	page := rep.Pages[0]
	if page.FetchStatus != model.FetchStatusRenderDegraded {
		t.Errorf("status = %s, want renderDegraded", page.FetchStatus)
	}
	if page.Content == nil || page.Content.Title != "t" {
		t.Errorf("degraded page should still be analyzed, got %+v", page.Content)
	}
}

// TestEngineInvalidSeed tests that an unusable seed fails fast.
func TestEngineInvalidSeed(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]fakePage{}}
	for _, seed := range []string{"", "ftp://site.example", "not a url", "/relative"} {
		if _, err := NewEngine(fetcher).Run(context.Background(), seed); err == nil {
			t.Errorf("expected error for seed %q", seed)
		}
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("no fetch should happen for invalid seeds, got %v", fetcher.calls)
	}
}

// TestEngineCancellation tests that cancelling keeps completed records.
func TestEngineCancellation(t *testing.T) {
	t.Parallel()

	const seed = "https://site.example"
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel once the seed has been fetched; the children then never run.
	fetcher := &fakeFetcher{pages: map[string]fakePage{
		seed: {html: htmlWithLinks("/a", "/b", "/c")},
	}}
	engine := NewEngine(fetcher,
		WithMaxDepth(2),
		WithWorkers(1),
		WithLimiter(NewHostLimiter(time.Hour, 0, 0)),
		WithProgress(func(_ string, _, _ int) { cancel() }),
	)

	rep, err := engine.Run(ctx, seed)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Cancelled {
		t.Error("expected the report to be marked cancelled")
	}
	if len(rep.Pages) != 1 {
		t.Errorf("expected only the seed record, got %v", rep.PageURLs())
	}
}

// TestHostLimiterDelay tests the per-host minimum delay.
func TestHostLimiterDelay(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(50*time.Millisecond, 0, 0)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx, "site.example"); err != nil {
		t.Fatal(err)
	}
	if err := limiter.Wait(ctx, "site.example"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second request after %s, want at least the 50ms delay", elapsed)
	}

	// A different host is not delayed by the first one.
	start = time.Now()
	if err := limiter.Wait(ctx, "other.example"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("unrelated host waited %s", elapsed)
	}
}

// TestHostLimiterCancellation tests that a blocked wait honors context
// cancellation.
func TestHostLimiterCancellation(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(time.Hour, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "site.example"); err != nil {
		t.Fatal(err)
	}
	if err := limiter.Wait(ctx, "site.example"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

// TestFrontier tests queue ordering and claim semantics.
func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("fifo order", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier(0)
		fr.enqueue("a", 0)
		fr.enqueue("b", 1)

		first, ok := fr.next()
		if !ok || first.url != "a" {
			t.Errorf("first = %+v", first)
		}
		second, ok := fr.next()
		if !ok || second.url != "b" || second.depth != 1 {
			t.Errorf("second = %+v", second)
		}
	})

	t.Run("duplicate enqueue rejected", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier(0)
		if !fr.enqueue("a", 0) {
			t.Error("first enqueue should succeed")
		}
		if fr.enqueue("a", 1) {
			t.Error("duplicate enqueue should be rejected")
		}
	})

	t.Run("limit caps scheduling", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier(2)
		if !fr.enqueue("a", 0) || !fr.enqueue("b", 0) {
			t.Fatal("first two enqueues should succeed")
		}
		if fr.enqueue("c", 0) {
			t.Error("enqueue past the limit should be rejected")
		}
	})

	t.Run("markVisited claims once", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier(0)
		if !fr.markVisited("a") {
			t.Error("first claim should succeed")
		}
		if fr.markVisited("a") {
			t.Error("second claim should fail")
		}
	})

	t.Run("next returns false when drained", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier(0)
		fr.enqueue("a", 0)
		if _, ok := fr.next(); !ok {
			t.Fatal("expected the queued item")
		}
		done := make(chan bool)
		go func() {
			_, ok := fr.next()
			done <- ok
		}()
		fr.done()
		if ok := <-done; ok {
			t.Error("next should report completion after the last item finishes")
		}
	})

	t.Run("close wakes blocked workers", func(t *testing.T) {
		t.Parallel()

		fr := newFrontier(0)
		fr.enqueue("a", 0)
		if _, ok := fr.next(); !ok {
			t.Fatal("expected the queued item")
		}
		done := make(chan bool)
		go func() {
			_, ok := fr.next()
			done <- ok
		}()
		fr.close()
		if ok := <-done; ok {
			t.Error("next should return false after close")
		}
		fr.done()
	})
}
