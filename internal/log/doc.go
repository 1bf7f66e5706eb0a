// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// Site configurations may carry cookies and authentication headers for
// crawling logged-in areas, and those values flow through fetch and
// retry log lines. The SecureHandler masks them before they reach the
// output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (tokens, basic auth)
//   - Session identifiers and passwords
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("request sent",
//	    "cookie", "session=abc123",  // masked in output
//	    "url", "https://example.com",
//	)
package log
