// Package model defines the core data structures shared across siteaudit:
// canonical URLs, extracted page content, analysis findings, per-page
// records, and the final aggregated report.
//
// The JSON field names of PageRecord and Report are a compatibility
// surface consumed by downstream tooling and must not change.
package model
