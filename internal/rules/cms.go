package rules

import (
	"fmt"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
)

// CMS detection confidence levels.
const (
	// ConfidenceHigh means the platform announced itself (generator tag).
	ConfidenceHigh = "high"
	// ConfidenceMedium means platform-specific asset paths were found.
	ConfidenceMedium = "medium"
)

// CMSRule identifies the content management system or site builder that
// produced a page. The platform is informational on its own, but it
// tells the report reader which admin surface the other findings map to.
type CMSRule struct {
	// signatures are checked in order; the first match wins so a page
	// never reports two platforms.
	signatures []cmsSignature
}

// cmsSignature describes how one platform shows up in page content.
type cmsSignature struct {
	// platform is the display name reported in the finding.
	platform string

	// generator is the lower-cased substring matched against the
	// generator meta tag. Empty when the platform sets no generator.
	generator string

	// assets are lower-cased substrings matched against script,
	// stylesheet, image, and link URLs.
	assets []string
}

// NewCMSRule creates a new CMSRule with the built-in signature table.
func NewCMSRule() *CMSRule {
	return &CMSRule{
		signatures: []cmsSignature{
			{
				platform:  "WordPress",
				generator: "wordpress",
				assets:    []string{"/wp-content/", "/wp-includes/"},
			},
			{
				platform: "Shopify",
				assets:   []string{"cdn.shopify.com", "/cdn/shop/"},
			},
			{
				platform:  "Joomla",
				generator: "joomla",
				assets:    []string{"/media/jui/"},
			},
			{
				platform:  "Drupal",
				generator: "drupal",
				assets:    []string{"/sites/default/files/"},
			},
			{
				platform:  "PrestaShop",
				generator: "prestashop",
				assets:    []string{"/modules/ps_"},
			},
			{
				platform:  "Squarespace",
				generator: "squarespace",
				assets:    []string{"squarespace.com", "squarespace-cdn.com"},
			},
			{
				platform:  "Wix",
				generator: "wix.com",
				assets:    []string{"wixstatic.com", "parastorage.com"},
			},
			{
				platform:  "Weebly",
				generator: "weebly",
				assets:    []string{"weebly.com/uploads", "editmysite.com"},
			},
			{
				platform:  "Webflow",
				generator: "webflow",
				assets:    []string{"assets.website-files.com", "webflow.com"},
			},
		},
	}
}

// Name returns the rule name.
func (r *CMSRule) Name() string {
	return model.RuleCMSDetection
}

// Evaluate reports at most one informational finding naming the first
// platform whose signature matches. The generator meta tag counts as a
// high-confidence match, asset paths as medium.
func (r *CMSRule) Evaluate(content *model.PageContent) ([]model.Finding, error) {
	generator := strings.ToLower(content.MetaTag("generator"))
	haystack := assetHaystack(content)

	for _, sig := range r.signatures {
		confidence := sig.match(generator, haystack)
		if confidence == "" {
			continue
		}
		return []model.Finding{{
			Rule:     r.Name(),
			Severity: model.SeverityInfo,
			Message:  fmt.Sprintf("page appears to be built with %s (%s confidence)", sig.platform, confidence),
			Evidence: map[string]any{
				"platform":   sig.platform,
				"confidence": confidence,
			},
		}}, nil
	}
	return nil, nil
}

// match returns the confidence of a signature match, or an empty string
// when the signature does not match.
func (sig cmsSignature) match(generator, haystack string) string {
	if sig.generator != "" && generator != "" && strings.Contains(generator, sig.generator) {
		return ConfidenceHigh
	}
	for _, asset := range sig.assets {
		if strings.Contains(haystack, asset) {
			return ConfidenceMedium
		}
	}
	return ""
}

// assetHaystack joins every URL the page references into one
// lower-cased string for substring scanning.
func assetHaystack(content *model.PageContent) string {
	var sb strings.Builder
	for _, s := range content.Scripts {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	for _, s := range content.Stylesheets {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	for _, img := range content.Images {
		sb.WriteString(img.Src)
		sb.WriteString("\n")
	}
	for _, link := range content.Links {
		sb.WriteString(link)
		sb.WriteString("\n")
	}
	return strings.ToLower(sb.String())
}
