package rules

import (
	"testing"

	"github.com/nao1215/siteaudit/internal/model"
)

// TestRepeatedIDRule tests duplicate element id detection.
func TestRepeatedIDRule(t *testing.T) {
	t.Parallel()

	rule := NewRepeatedIDRule()

	t.Run("one finding per duplicated id", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			ElementIDs: []string{"nav", "main", "nav"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 1 {
			t.Fatalf("expected 1 finding, got %+v", findings)
		}
		f := findings[0]
		if f.Severity != model.SeverityWarning {
			t.Errorf("severity = %v, want warning", f.Severity)
		}
		if f.Evidence["id"] != "nav" || f.Evidence["count"] != 2 {
			t.Errorf("evidence = %v, want id nav count 2", f.Evidence)
		}
	})

	t.Run("unique ids pass", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			ElementIDs: []string{"nav", "main", "footer"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %+v", findings)
		}
	})

	t.Run("findings follow first-seen order", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			ElementIDs: []string{"b", "a", "b", "a", "a"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 2 {
			t.Fatalf("expected 2 findings, got %+v", findings)
		}
		if findings[0].Evidence["id"] != "b" || findings[1].Evidence["id"] != "a" {
			t.Errorf("findings out of first-seen order: %+v", findings)
		}
		if findings[1].Evidence["count"] != 3 {
			t.Errorf("count for a = %v, want 3", findings[1].Evidence["count"])
		}
	})
}

// TestH1Rule tests h1 count checks.
func TestH1Rule(t *testing.T) {
	t.Parallel()

	rule := NewH1Rule()

	tests := []struct {
		name         string
		headings     []model.Heading
		wantFindings int
		wantCount    int
	}{
		{
			name:         "exactly one h1 passes",
			headings:     []model.Heading{{Level: 1, Text: "Title"}, {Level: 2, Text: "Sub"}},
			wantFindings: 0,
		},
		{
			name:         "no h1 warns",
			headings:     []model.Heading{{Level: 2, Text: "Sub"}},
			wantFindings: 1,
			wantCount:    0,
		},
		{
			name: "multiple h1 warns",
			headings: []model.Heading{
				{Level: 1, Text: "First"},
				{Level: 1, Text: "Second"},
				{Level: 1, Text: "Third"},
			},
			wantFindings: 1,
			wantCount:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings, err := rule.Evaluate(&model.PageContent{Headings: tt.headings})
			if err != nil {
				t.Fatal(err)
			}
			if len(findings) != tt.wantFindings {
				t.Fatalf("expected %d findings, got %+v", tt.wantFindings, findings)
			}
			if tt.wantFindings == 1 {
				if findings[0].Severity != model.SeverityWarning {
					t.Errorf("severity = %v, want warning", findings[0].Severity)
				}
				if findings[0].Evidence["count"] != tt.wantCount {
					t.Errorf("evidence count = %v, want %d", findings[0].Evidence["count"], tt.wantCount)
				}
			}
		})
	}
}

// TestMetaDescriptionRule tests meta description checks.
func TestMetaDescriptionRule(t *testing.T) {
	t.Parallel()

	rule := NewMetaDescriptionRule()

	tests := []struct {
		name         string
		meta         map[string]string
		wantFindings int
	}{
		{name: "present and non-empty passes", meta: map[string]string{"description": "A fine page"}, wantFindings: 0},
		{name: "missing warns", meta: map[string]string{}, wantFindings: 1},
		{name: "whitespace-only warns", meta: map[string]string{"description": "   "}, wantFindings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			findings, err := rule.Evaluate(&model.PageContent{MetaTags: tt.meta})
			if err != nil {
				t.Fatal(err)
			}
			if len(findings) != tt.wantFindings {
				t.Errorf("expected %d findings, got %+v", tt.wantFindings, findings)
			}
		})
	}
}

// TestSocialLinkRule tests mismatched social link detection.
func TestSocialLinkRule(t *testing.T) {
	t.Parallel()

	rule := NewSocialLinkRule()

	t.Run("icon class promising one platform flags another", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			Anchors: []model.Anchor{{
				Href:        "https://www.facebook.com/theme-vendor",
				URL:         "https://www.facebook.com/theme-vendor",
				IconClasses: []string{"fa", "fa-instagram"},
			}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 1 {
			t.Fatalf("expected 1 finding, got %+v", findings)
		}
		f := findings[0]
		if f.Severity != model.SeverityWarning {
			t.Errorf("severity = %v, want warning", f.Severity)
		}
		if f.Evidence["expectedPlatform"] != "instagram" {
			t.Errorf("expectedPlatform = %v, want instagram", f.Evidence["expectedPlatform"])
		}
		if f.Evidence["url"] != "https://www.facebook.com/theme-vendor" {
			t.Errorf("url evidence = %v", f.Evidence["url"])
		}
	})

	t.Run("matching platform passes including subdomains", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			Anchors: []model.Anchor{
				{
					URL:  "https://www.instagram.com/acme",
					Text: "Follow us on Instagram",
				},
				{
					URL:       "https://m.facebook.com/acme",
					AriaLabel: "Facebook page",
				},
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %+v", findings)
		}
	})

	t.Run("label pointing at own site warns", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			Anchors: []model.Anchor{{
				URL:       "https://acme.example/contact",
				AriaLabel: "Twitter",
			}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 1 {
			t.Errorf("expected 1 finding, got %+v", findings)
		}
	})

	t.Run("anchors without a resolved URL are skipped", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			Anchors: []model.Anchor{{
				Href:        "#",
				IconClasses: []string{"fa-instagram"},
			}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings for unresolved anchors, got %+v", findings)
		}
	})
}

// TestCMSRule tests platform detection signatures.
func TestCMSRule(t *testing.T) {
	t.Parallel()

	rule := NewCMSRule()

	t.Run("generator tag is a high-confidence match", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			MetaTags: map[string]string{"generator": "WordPress 6.2"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 1 {
			t.Fatalf("expected 1 finding, got %+v", findings)
		}
		f := findings[0]
		if f.Severity != model.SeverityInfo {
			t.Errorf("severity = %v, want info", f.Severity)
		}
		if f.Evidence["platform"] != "WordPress" || f.Evidence["confidence"] != ConfidenceHigh {
			t.Errorf("evidence = %v", f.Evidence)
		}
	})

	t.Run("asset paths are a medium-confidence match", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			content  *model.PageContent
			platform string
		}{
			{
				name: "wp-content theme asset",
				content: &model.PageContent{
					Stylesheets: []string{"https://acme.example/wp-content/themes/acme/style.css"},
				},
				platform: "WordPress",
			},
			{
				name: "shopify cdn script",
				content: &model.PageContent{
					Scripts: []string{"https://cdn.shopify.com/s/files/1/0001/assets/theme.js"},
				},
				platform: "Shopify",
			},
			{
				name: "webflow asset host",
				content: &model.PageContent{
					Images: []model.Image{{Src: "https://assets.website-files.com/5f3/hero.png"}},
				},
				platform: "Webflow",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				findings, err := rule.Evaluate(tt.content)
				if err != nil {
					t.Fatal(err)
				}
				if len(findings) != 1 {
					t.Fatalf("expected 1 finding, got %+v", findings)
				}
				if findings[0].Evidence["platform"] != tt.platform {
					t.Errorf("platform = %v, want %s", findings[0].Evidence["platform"], tt.platform)
				}
				if findings[0].Evidence["confidence"] != ConfidenceMedium {
					t.Errorf("confidence = %v, want medium", findings[0].Evidence["confidence"])
				}
			})
		}
	})

	t.Run("first matching signature wins", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			MetaTags: map[string]string{"generator": "WordPress 6.2"},
			Scripts:  []string{"https://cdn.shopify.com/s/files/theme.js"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 1 || findings[0].Evidence["platform"] != "WordPress" {
			t.Errorf("expected a single WordPress finding, got %+v", findings)
		}
	})

	t.Run("no signature yields no finding", func(t *testing.T) {
		t.Parallel()

		findings, err := rule.Evaluate(&model.PageContent{
			Scripts: []string{"https://acme.example/js/app.js"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %+v", findings)
		}
	})
}
