package rules

import (
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
)

// MetaDescriptionRule checks for a usable meta description. Search
// result snippets fall back to arbitrary page text when the description
// is missing or blank.
type MetaDescriptionRule struct{}

// NewMetaDescriptionRule creates a new MetaDescriptionRule.
func NewMetaDescriptionRule() *MetaDescriptionRule {
	return &MetaDescriptionRule{}
}

// Name returns the rule name.
func (r *MetaDescriptionRule) Name() string {
	return model.RuleMetaDescriptionCheck
}

// Evaluate warns when the description meta tag is absent or contains
// only whitespace.
func (r *MetaDescriptionRule) Evaluate(content *model.PageContent) ([]model.Finding, error) {
	description, present := content.MetaTags["description"]
	if present && strings.TrimSpace(description) != "" {
		return nil, nil
	}

	message := "page has no meta description"
	if present {
		message = "page has an empty meta description"
	}
	return []model.Finding{{
		Rule:     r.Name(),
		Severity: model.SeverityWarning,
		Message:  message,
		Evidence: map[string]any{"present": present},
	}}, nil
}
