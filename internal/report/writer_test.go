package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/siteaudit/internal/model"
)

// sampleReport builds a small finished report for writer tests.
func sampleReport() *model.Report {
	agg := NewAggregator("https://acme.example", 1)
	agg.Record(model.PageRecord{
		URL:         "https://acme.example",
		Depth:       0,
		FetchStatus: model.FetchStatusOK,
		Content:     &model.PageContent{Title: "Acme"},
		Findings: []model.Finding{
			{
				Rule:     model.RuleH1Check,
				Severity: model.SeverityWarning,
				Message:  "page has no h1 element",
				Evidence: map[string]any{"count": 0},
			},
			{
				Rule:     model.RuleCMSDetection,
				Severity: model.SeverityInfo,
				Message:  "page appears to be built with WordPress (high confidence)",
			},
		},
	})
	agg.Record(model.PageRecord{
		URL:         "https://acme.example/broken",
		Depth:       1,
		FetchStatus: model.FetchStatusFailed,
	})
	return agg.Finalize(false)
}

// TestJSONWriter tests the JSON output format.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("output is valid JSON with the expected field names", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(sampleReport())
		if err != nil {
			t.Fatal(err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		for _, key := range []string{"seedUrl", "maxDepth", "pages", "summary"} {
			if _, ok := decoded[key]; !ok {
				t.Errorf("output missing key %q", key)
			}
		}

		out := buf.String()
		for _, fragment := range []string{
			`"fetchStatus":"ok"`,
			`"fetchStatus":"fetchFailed"`,
			`"severity":"warning"`,
		} {
			if !strings.Contains(out, fragment) {
				t.Errorf("output does not contain %s", fragment)
			}
		}
	})

	t.Run("failed pages omit content and findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatal(err)
		}

		var decoded struct {
			Pages []map[string]any `json:"pages"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatal(err)
		}
		if len(decoded.Pages) != 2 {
			t.Fatalf("expected 2 pages, got %d", len(decoded.Pages))
		}
		failed := decoded.Pages[1]
		if _, ok := failed["content"]; ok {
			t.Error("failed page should omit content")
		}
		if _, ok := failed["findings"]; ok {
			t.Error("failed page should omit findings")
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown output format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, fragment := range []string{
		"# Site Audit Report",
		"## Severity Summary",
		"## Findings",
		"## Pages",
		"`https://acme.example`",
		model.RuleH1Check,
		"mermaid",
	} {
		if !strings.Contains(out, fragment) {
			t.Errorf("markdown output does not contain %q", fragment)
		}
	}
}

// TestSimpleWriter tests the plain-text output format.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("default output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		out := buf.String()

		for _, fragment := range []string{
			"Site Audit Report",
			"Seed URL:   https://acme.example",
			"1 failed",
			"WARNING (1)",
			"INFO (1)",
			"page has no h1 element",
		} {
			if !strings.Contains(out, fragment) {
				t.Errorf("simple output does not contain %q", fragment)
			}
		}
		if strings.Contains(out, "depth=") {
			t.Error("per-page breakdown should need verbose mode")
		}
	})

	t.Run("verbose adds per-page breakdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "depth=1 status=fetchFailed") {
			t.Errorf("verbose output missing page line: %s", buf.String())
		}
	})

	t.Run("clean report", func(t *testing.T) {
		t.Parallel()

		agg := NewAggregator("https://acme.example", 0)
		agg.Record(model.PageRecord{URL: "https://acme.example", FetchStatus: model.FetchStatusOK})
		rep := agg.Finalize(false)
		rep.StartedAt = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
		rep.FinishedAt = rep.StartedAt.Add(time.Second)

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(rep); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No findings.") {
			t.Errorf("expected clean-report message, got %s", buf.String())
		}
	})
}

// failingWriter always fails, for MultiWriter error propagation tests.
type failingWriter struct{}

func (failingWriter) Write(_ *model.Report) (int, error) {
	return 0, errors.New("sink unavailable")
}

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to every sink", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))
		if _, err := mw.Write(sampleReport()); err != nil {
			t.Fatal(err)
		}
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected output in every sink")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		mw := NewMultiWriter(failingWriter{}, NewSimpleWriter(&buf))
		if _, err := mw.Write(sampleReport()); err == nil {
			t.Fatal("expected error from failing sink")
		}
		if buf.Len() != 0 {
			t.Error("later writer should not run after an error")
		}
	})
}
