package rules

import (
	"fmt"

	"github.com/nao1215/siteaudit/internal/model"
)

// H1Rule checks that a page carries exactly one h1 element. Search
// engines and screen readers treat the h1 as the page's topic, so both
// a missing h1 and competing h1s weaken the page.
type H1Rule struct{}

// NewH1Rule creates a new H1Rule.
func NewH1Rule() *H1Rule {
	return &H1Rule{}
}

// Name returns the rule name.
func (r *H1Rule) Name() string {
	return model.RuleH1Check
}

// Evaluate warns when the page has zero h1 elements or more than one.
func (r *H1Rule) Evaluate(content *model.PageContent) ([]model.Finding, error) {
	count := content.HeadingCount(1)
	if count == 1 {
		return nil, nil
	}

	message := "page has no h1 element"
	if count > 1 {
		message = fmt.Sprintf("page has %d h1 elements; expected exactly one", count)
	}
	return []model.Finding{{
		Rule:     r.Name(),
		Severity: model.SeverityWarning,
		Message:  message,
		Evidence: map[string]any{"count": count},
	}}, nil
}
