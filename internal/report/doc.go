// Package report collects page records into a final audit report and
// renders it in JSON, Markdown, and plain-text formats. The aggregator
// is the single collection point for concurrent crawl workers; the
// writers share one interface so output can go to a terminal, a file,
// or both at once.
package report
