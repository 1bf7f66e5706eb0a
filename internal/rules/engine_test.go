package rules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nao1215/siteaudit/internal/model"
)

// stubRule is a controllable rule for engine tests.
type stubRule struct {
	name     string
	findings []model.Finding
	err      error
	panics   bool
}

func (s *stubRule) Name() string { return s.name }

func (s *stubRule) Evaluate(_ *model.PageContent) ([]model.Finding, error) {
	if s.panics {
		panic("stub exploded")
	}
	return s.findings, s.err
}

// TestEngineOrder tests that findings follow rule registration order.
func TestEngineOrder(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	e.Register(&stubRule{name: "first", findings: []model.Finding{{Rule: "first", Severity: model.SeverityInfo}}})
	e.Register(&stubRule{name: "second", findings: []model.Finding{{Rule: "second", Severity: model.SeverityInfo}}})

	findings := e.Evaluate(&model.PageContent{})
	if len(findings) != 2 || findings[0].Rule != "first" || findings[1].Rule != "second" {
		t.Errorf("findings out of registration order: %+v", findings)
	}
}

// TestEngineIsolation tests that a failing rule does not stop the battery.
func TestEngineIsolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		broken *stubRule
	}{
		{name: "rule returns error", broken: &stubRule{name: "broken", err: errors.New("boom")}},
		{name: "rule panics", broken: &stubRule{name: "broken", panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := &Engine{}
			e.Register(tt.broken)
			e.Register(&stubRule{name: "after", findings: []model.Finding{{Rule: "after", Severity: model.SeverityInfo}}})

			findings := e.Evaluate(&model.PageContent{})
			if len(findings) != 2 {
				t.Fatalf("expected 2 findings, got %+v", findings)
			}
			if findings[0].Rule != model.RuleError || findings[0].Severity != model.SeverityError {
				t.Errorf("expected a RuleError finding first, got %+v", findings[0])
			}
			if got := findings[0].Evidence["rule"]; got != "broken" {
				t.Errorf("evidence rule = %v, want broken", got)
			}
			if findings[1].Rule != "after" {
				t.Errorf("expected the later rule to still run, got %+v", findings[1])
			}
		})
	}
}

// TestEngineNilContent tests that a page without content yields no findings.
func TestEngineNilContent(t *testing.T) {
	t.Parallel()

	if findings := NewEngine().Evaluate(nil); findings != nil {
		t.Errorf("expected no findings for nil content, got %+v", findings)
	}
}

// TestNewEngineBattery tests the built-in rule registration order.
func TestNewEngineBattery(t *testing.T) {
	t.Parallel()

	want := []string{
		model.RuleRepeatedID,
		model.RuleH1Check,
		model.RuleMetaDescriptionCheck,
		model.RuleMismatchedSocialLinks,
		model.RuleCMSDetection,
	}
	if got := NewEngine().Rules(); !reflect.DeepEqual(got, want) {
		t.Errorf("rule order = %v, want %v", got, want)
	}
}
