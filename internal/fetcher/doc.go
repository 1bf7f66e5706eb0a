// Package fetcher retrieves page markup over HTTP with bounded retries
// and an optional headless-Chrome rendering step. When rendering is
// requested but fails, the raw HTTP body is returned instead and the
// result is marked degraded, so the crawl continues on static markup.
package fetcher
