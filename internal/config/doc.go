// Package config provides configuration structures and utilities for
// siteaudit. It defines the crawl, rendering, and report settings, their
// validation, and the optional per-site YAML configuration file.
package config
