package rules

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/siteaudit/internal/model"
)

// SocialLinkRule detects social media links whose label promises one
// platform but whose target points somewhere else. Template-built sites
// frequently ship icon rows where only some hrefs were updated, leaving
// an Instagram icon that still opens the theme vendor's Facebook page.
type SocialLinkRule struct {
	// platforms maps platform keys to their detection profile.
	platforms map[string]*socialPlatform

	// order fixes the platform check order so findings are deterministic
	// when an anchor label hints at more than one platform.
	order []string

	// titleCaser renders platform keys as display names in messages.
	titleCaser cases.Caser
}

// socialPlatform holds the label keywords and target hosts for one
// social platform.
type socialPlatform struct {
	// keywords are lower-cased substrings matched against anchor text,
	// aria-label, and icon class tokens (fa-instagram style).
	keywords []string

	// hosts are the registrable hosts the platform serves profiles on.
	// A target host matches when it equals an entry or is a subdomain
	// of one.
	hosts []string
}

// NewSocialLinkRule creates a new SocialLinkRule with the built-in
// platform table.
func NewSocialLinkRule() *SocialLinkRule {
	return &SocialLinkRule{
		order: []string{"facebook", "instagram", "twitter", "linkedin", "youtube", "tiktok", "pinterest"},
		platforms: map[string]*socialPlatform{
			"facebook": {
				keywords: []string{"facebook", "fa-facebook"},
				hosts:    []string{"facebook.com", "fb.com", "fb.me"},
			},
			"instagram": {
				keywords: []string{"instagram", "fa-instagram"},
				hosts:    []string{"instagram.com", "instagr.am"},
			},
			"twitter": {
				keywords: []string{"twitter", "fa-twitter", "fa-x-twitter"},
				hosts:    []string{"twitter.com", "x.com", "t.co"},
			},
			"linkedin": {
				keywords: []string{"linkedin", "fa-linkedin"},
				hosts:    []string{"linkedin.com", "lnkd.in"},
			},
			"youtube": {
				keywords: []string{"youtube", "fa-youtube"},
				hosts:    []string{"youtube.com", "youtu.be"},
			},
			"tiktok": {
				keywords: []string{"tiktok", "fa-tiktok"},
				hosts:    []string{"tiktok.com"},
			},
			"pinterest": {
				keywords: []string{"pinterest", "fa-pinterest"},
				hosts:    []string{"pinterest.com", "pin.it"},
			},
		},
		titleCaser: cases.Title(language.English),
	}
}

// Name returns the rule name.
func (r *SocialLinkRule) Name() string {
	return model.RuleMismatchedSocialLinks
}

// Evaluate warns once per anchor whose label names a platform the
// target host does not belong to.
func (r *SocialLinkRule) Evaluate(content *model.PageContent) ([]model.Finding, error) {
	var findings []model.Finding
	for _, anchor := range content.Anchors {
		if anchor.URL == "" {
			// Unresolvable or non-http targets carry no host to check.
			continue
		}

		expected := r.expectedPlatform(anchor)
		if expected == "" {
			continue
		}
		host, err := hostOf(anchor.URL)
		if err != nil || host == "" {
			continue
		}
		if r.hostMatches(expected, host) {
			continue
		}

		findings = append(findings, model.Finding{
			Rule:     r.Name(),
			Severity: model.SeverityWarning,
			Message: fmt.Sprintf("link labeled %s points to %s instead of a %s URL",
				r.titleCaser.String(expected), host, r.titleCaser.String(expected)),
			Evidence: map[string]any{
				"url":              anchor.URL,
				"expectedPlatform": expected,
			},
		})
	}
	return findings, nil
}

// expectedPlatform returns the first platform whose keywords appear in
// the anchor's visible text, aria-label, or icon class tokens.
func (r *SocialLinkRule) expectedPlatform(anchor model.Anchor) string {
	label := strings.ToLower(anchor.Text + " " + anchor.AriaLabel)
	icons := strings.ToLower(strings.Join(anchor.IconClasses, " "))

	for _, key := range r.order {
		for _, keyword := range r.platforms[key].keywords {
			if strings.Contains(label, keyword) || strings.Contains(icons, keyword) {
				return key
			}
		}
	}
	return ""
}

// hostMatches reports whether host belongs to the platform, either
// exactly or as a subdomain of one of its registered hosts.
func (r *SocialLinkRule) hostMatches(platform, host string) bool {
	for _, h := range r.platforms[platform].hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// hostOf extracts the lower-cased host of a URL without its port.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Hostname()), nil
}
