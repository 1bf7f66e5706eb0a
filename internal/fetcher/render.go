package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// Default renderer settings.
const (
	// DefaultRenderTimeout bounds one headless-Chrome session.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultRenderWait is how long to let scripts settle after load.
	DefaultRenderWait = 2 * time.Second

	// DefaultSessions is the number of concurrent Chrome sessions.
	DefaultSessions = 1
)

// RenderOptions configures the JavaScript rendering pipeline.
type RenderOptions struct {
	// Timeout bounds a whole render session including navigation.
	Timeout time.Duration

	// Wait is the settle time after the document reports ready.
	Wait time.Duration

	// Scrolldown scrolls to the bottom of the page this many times,
	// waiting Wait between scrolls, to trigger lazy-loaded content.
	Scrolldown int

	// UserAgent overrides the browser's User-Agent when non-empty.
	UserAgent string

	// Sessions is the maximum number of concurrent Chrome sessions.
	Sessions int
}

// ChromeRenderer renders pages in headless Chrome using chromedp.
// Concurrency is bounded by a session semaphore because each session
// spawns a browser process.
type ChromeRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewChromeRenderer constructs a renderer with bounded concurrency.
func NewChromeRenderer(opts RenderOptions, logger *slog.Logger) *ChromeRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRenderTimeout
	}
	if opts.Wait <= 0 {
		opts.Wait = DefaultRenderWait
	}
	if opts.Sessions <= 0 {
		opts.Sessions = DefaultSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.Sessions),
		logger:    logger,
	}
}

// Render navigates to url, waits for scripts to settle, optionally
// scrolls to trigger lazy loading, and returns the final DOM markup and
// location.
func (r *ChromeRenderer) Render(parentCtx context.Context, url string) (string, string, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-parentCtx.Done():
		return "", "", parentCtx.Err()
	}

	ctx, cancel := context.WithTimeout(parentCtx, r.opts.Timeout)
	defer cancel()

	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if r.opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(r.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	start := time.Now()
	var html, finalURL string

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		waitForDocumentReady(),
		chromedp.Sleep(r.opts.Wait),
	}
	for range r.opts.Scrolldown {
		actions = append(actions,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(r.opts.Wait),
		)
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(chromeCtx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}

	r.logger.Debug("render complete",
		"url", url,
		"final_url", finalURL,
		"latency_ms", time.Since(start).Milliseconds(),
		"html_bytes", len(html),
	)
	return html, finalURL, nil
}

// waitForDocumentReady polls document.readyState until the page load
// finished or the context expires.
func waitForDocumentReady() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
