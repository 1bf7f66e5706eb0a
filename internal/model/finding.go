package model

import (
	"encoding/json"
	"fmt"
)

// Severity grades an analysis finding.
//
// Design decision: We use iota-based constants for cheap comparisons and
// sorting, and marshal to the lower-case names because the severity
// strings in the persisted report are a compatibility surface.
type Severity int

const (
	// SeverityInfo marks advisory findings such as CMS detection.
	SeverityInfo Severity = iota

	// SeverityWarning marks quality problems worth fixing: missing
	// meta description, duplicate ids, wrong h1 count.
	SeverityWarning

	// SeverityError marks failures, currently only rule-evaluation
	// failures isolated into a finding.
	SeverityError
)

// String returns the serialized severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as its string name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a severity from its string name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Rule name constants for the built-in rules. Findings reference rules by
// these names, and they appear verbatim in persisted reports.
const (
	RuleRepeatedID            = "RepeatedID"
	RuleH1Check               = "H1Check"
	RuleMetaDescriptionCheck  = "MetaDescriptionCheck"
	RuleMismatchedSocialLinks = "MismatchedSocialLinks"
	RuleCMSDetection          = "CMSDetection"

	// RuleError is the pseudo rule name used when a rule's evaluation
	// itself fails and is isolated into a single finding.
	RuleError = "RuleError"
)

// Finding is one output of a single analysis rule against one page.
// Findings are immutable once produced.
type Finding struct {
	// Rule is the name of the rule that produced this finding.
	Rule string `json:"rule"`

	// Severity grades the finding.
	Severity Severity `json:"severity"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Evidence carries structured detail specific to the rule, such as
	// {"id": "nav", "count": 2} for RepeatedID. Optional.
	Evidence map[string]any `json:"evidence,omitempty"`
}
