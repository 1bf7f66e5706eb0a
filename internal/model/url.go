package model

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Canonicalize normalizes a URL into its canonical form, the key used for
// crawl deduplication. Two URLs that canonicalize identically are the same
// crawl target.
//
// Normalization rules:
//  1. Scheme and host are lower-cased.
//  2. The fragment is removed (it never changes server content).
//  3. "." and ".." path segments are resolved.
//  4. A trailing slash is stripped when the path is otherwise empty, so
//     "https://example.com/" and "https://example.com" are the same target.
//
// Returns an error if the URL does not parse or is not an absolute
// http/https URL.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("URL %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("URL %q has unsupported scheme %q", rawURL, u.Scheme)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Resolve "." and ".." segments. path.Clean also collapses duplicate
	// slashes and drops any trailing slash except for the root path.
	if u.Path != "" {
		cleaned := path.Clean(u.Path)
		if cleaned == "." || cleaned == "/" {
			cleaned = ""
		}
		u.Path = cleaned
	}

	return u.String(), nil
}

// CanonicalHost returns the lower-cased hostname (without port) of a
// canonical URL. It is used for same-site checks and per-host rate limiting.
// Returns an empty string if the URL does not parse.
func CanonicalHost(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SameHost reports whether two canonical URLs share the same hostname.
// The crawl engine only enqueues links on the seed's host.
func SameHost(a, b string) bool {
	ha, hb := CanonicalHost(a), CanonicalHost(b)
	return ha != "" && ha == hb
}
