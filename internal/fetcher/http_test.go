package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestClientFetch tests plain HTTP fetching.
func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body, final URL, and status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "siteaudit/") {
				t.Errorf("User-Agent = %q", got)
			}
			w.Write([]byte("<html><title>ok</title></html>"))
		}))
		defer srv.Close()

		res, err := NewClient().Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(res.HTML, "ok") {
			t.Errorf("HTML = %q", res.HTML)
		}
		if res.FinalURL != srv.URL {
			t.Errorf("FinalURL = %q, want %q", res.FinalURL, srv.URL)
		}
		if res.StatusCode != http.StatusOK || res.Degraded {
			t.Errorf("status = %d degraded = %v", res.StatusCode, res.Degraded)
		}
	})

	t.Run("sends configured cookie and extra headers", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Cookie"); got != "session=abc123" {
				t.Errorf("Cookie = %q", got)
			}
			if got := r.Header.Get("X-Audit-Token"); got != "staging" {
				t.Errorf("X-Audit-Token = %q", got)
			}
			w.Write([]byte("<html>authed</html>"))
		}))
		defer srv.Close()

		client := NewClient(
			WithCookie("session=abc123"),
			WithExtraHeaders(map[string]string{"X-Audit-Token": "staging"}),
		)
		if _, err := client.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("follows redirects and reports the final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/final", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("<html>landed</html>"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		res, err := NewClient().Fetch(context.Background(), srv.URL+"/start")
		if err != nil {
			t.Fatal(err)
		}
		if res.FinalURL != srv.URL+"/final" {
			t.Errorf("FinalURL = %q, want %q", res.FinalURL, srv.URL+"/final")
		}
	})

	t.Run("client errors fail without retry", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer srv.Close()

		if _, err := NewClient().Fetch(context.Background(), srv.URL); err == nil {
			t.Fatal("expected error for 404")
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("4xx was attempted %d times, want 1", got)
		}
	})

	t.Run("server errors retry and then succeed", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "flaky", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("<html>recovered</html>"))
		}))
		defer srv.Close()

		client := NewClient(WithRetries(2, time.Millisecond))
		res, err := client.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(res.HTML, "recovered") {
			t.Errorf("HTML = %q", res.HTML)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(WithRetries(1, time.Millisecond))
		if _, err := client.Fetch(context.Background(), srv.URL); err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if got := calls.Load(); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})

	t.Run("body size is limited", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(strings.Repeat("x", 4096)))
		}))
		defer srv.Close()

		client := NewClient(WithMaxBodySize(100))
		res, err := client.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.HTML) != 100 {
			t.Errorf("body length = %d, want 100", len(res.HTML))
		}
	})

	t.Run("cancellation aborts the retry wait", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		client := NewClient(WithRetries(5, time.Hour))
		if _, err := client.Fetch(ctx, srv.URL); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
	})
}

// stubRenderer is a controllable Renderer for degradation tests.
type stubRenderer struct {
	html     string
	finalURL string
	err      error
}

func (s *stubRenderer) Render(_ context.Context, _ string) (string, string, error) {
	return s.html, s.finalURL, s.err
}

// TestClientRender tests the rendering path and its degradation.
func TestClientRender(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>raw</html>"))
	}))
	t.Cleanup(srv.Close)

	t.Run("rendered markup replaces the raw body", func(t *testing.T) {
		t.Parallel()

		client := NewClient(WithRenderer(&stubRenderer{html: "<html>rendered</html>"}))
		res, err := client.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if res.HTML != "<html>rendered</html>" || res.Degraded {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("render failure degrades to the raw body", func(t *testing.T) {
		t.Parallel()

		client := NewClient(WithRenderer(&stubRenderer{err: errors.New("no chrome")}))
		res, err := client.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Degraded {
			t.Error("expected degraded result")
		}
		if res.HTML != "<html>raw</html>" {
			t.Errorf("HTML = %q, want the raw body", res.HTML)
		}
	})
}
