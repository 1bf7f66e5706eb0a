// Package rules evaluates extracted page content against a battery of
// audit rules. Every rule is a pure function of a single page's content:
// rules never perform network or filesystem access, so the same content
// always yields the same findings. The engine runs rules in a fixed
// registration order and isolates each rule's failures so one broken
// rule cannot take down the audit.
package rules
