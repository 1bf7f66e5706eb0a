// Package main provides the entry point for the siteaudit CLI.
//
// Siteaudit crawls a website breadth-first, extracts the content of each
// page, and evaluates quality rules against it: heading structure,
// metadata, duplicate element IDs, social link consistency, and CMS
// detection.
//
// Usage:
//
//	siteaudit run <url>
//	siteaudit compare <host>
//
// See --help for all available options.
package main

// main is the entry point for siteaudit.
func main() {
	Execute()
}
