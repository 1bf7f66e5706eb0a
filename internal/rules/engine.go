package rules

import (
	"fmt"

	"github.com/nao1215/siteaudit/internal/model"
)

// Rule defines the interface for individual audit rules.
// Each rule focuses on a single content-quality check.
//
// Design decision: We use an interface rather than concrete types because:
//  1. Allows for easy extension with new rules
//  2. Enables testing the engine with mock rules
//  3. Keeps per-rule state (compiled patterns, signal tables) private
type Rule interface {
	// Name returns the rule's stable name used in findings and reports.
	Name() string

	// Evaluate inspects a single page's content and returns zero or more
	// findings. Evaluate must not mutate the content.
	Evaluate(content *model.PageContent) ([]model.Finding, error)
}

// Engine runs a fixed-order battery of rules against page content.
type Engine struct {
	// rules is the list of registered rules, evaluated in order.
	rules []Rule
}

// NewEngine creates an Engine with all built-in rules registered.
// Registration order is the order findings appear in per-page output,
// so it is fixed here rather than left to callers.
func NewEngine() *Engine {
	e := &Engine{rules: make([]Rule, 0)}

	// Structural markup rules
	e.Register(NewRepeatedIDRule())
	e.Register(NewH1Rule())

	// Metadata rules
	e.Register(NewMetaDescriptionRule())

	// Link integrity rules
	e.Register(NewSocialLinkRule())

	// Platform detection rules
	e.Register(NewCMSRule())

	return e
}

// Register appends a rule to the battery.
func (e *Engine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, rule := range e.rules {
		names = append(names, rule.Name())
	}
	return names
}

// Evaluate runs every registered rule against the content and returns
// the concatenated findings in registration order. A nil content yields
// no findings. A rule that returns an error or panics contributes a
// single error-severity RuleError finding instead of its results; the
// remaining rules still run.
func (e *Engine) Evaluate(content *model.PageContent) []model.Finding {
	if content == nil {
		return nil
	}

	var findings []model.Finding
	for _, rule := range e.rules {
		results, err := evaluateOne(rule, content)
		if err != nil {
			findings = append(findings, model.Finding{
				Rule:     model.RuleError,
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("rule %s failed: %v", rule.Name(), err),
				Evidence: map[string]any{"rule": rule.Name()},
			})
			continue
		}
		findings = append(findings, results...)
	}
	return findings
}

// evaluateOne runs a single rule, converting a panic into an error so
// the engine loop only has one failure path to handle.
func evaluateOne(rule Rule, content *model.PageContent) (findings []model.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Evaluate(content)
}
