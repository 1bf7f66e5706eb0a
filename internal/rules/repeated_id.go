package rules

import (
	"fmt"

	"github.com/nao1215/siteaudit/internal/model"
)

// RepeatedIDRule flags element id values that appear more than once on
// a page. Duplicate ids break in-page anchors, label associations, and
// assistive technology, and usually indicate copy-pasted template
// fragments.
type RepeatedIDRule struct{}

// NewRepeatedIDRule creates a new RepeatedIDRule.
func NewRepeatedIDRule() *RepeatedIDRule {
	return &RepeatedIDRule{}
}

// Name returns the rule name.
func (r *RepeatedIDRule) Name() string {
	return model.RuleRepeatedID
}

// Evaluate emits one warning per id value that occurs more than once,
// in the order each duplicated id was first seen in the document.
func (r *RepeatedIDRule) Evaluate(content *model.PageContent) ([]model.Finding, error) {
	counts := make(map[string]int, len(content.ElementIDs))
	var order []string
	for _, id := range content.ElementIDs {
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	var findings []model.Finding
	for _, id := range order {
		count := counts[id]
		if count < 2 {
			continue
		}
		findings = append(findings, model.Finding{
			Rule:     r.Name(),
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("element id %q is used %d times; ids must be unique within a page", id, count),
			Evidence: map[string]any{"id": id, "count": count},
		})
	}
	return findings, nil
}
