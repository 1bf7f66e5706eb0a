// Package database provides SQLite-based storage for audit run history.
// Each finished report is persisted as one row keyed by the seed host,
// which enables listing past runs and comparing the two most recent
// audits of a site.
package database
