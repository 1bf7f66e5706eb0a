package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/siteaudit/internal/model"
)

// Default configuration values.
const (
	// DefaultTimeout is the per-request HTTP timeout. Public websites
	// normally respond well under this; the generous value keeps slow
	// shared hosting from producing false fetch failures.
	DefaultTimeout = 30 * time.Second

	// DefaultDepth of 1 audits the seed page and everything it links to.
	// Deeper crawls are opt-in because the page count grows quickly.
	DefaultDepth = 1

	// DefaultMaxPages caps the total fetches of one run. This prevents
	// runaway crawling on large or infinitely-generating sites.
	DefaultMaxPages = 200

	// DefaultWorkers of 4 concurrent fetches balances throughput with
	// politeness toward a single host.
	DefaultWorkers = 4

	// DefaultDelay is the minimum gap between requests to one host.
	// 500ms is conservative enough not to disturb small sites.
	DefaultDelay = 500 * time.Millisecond

	// DefaultRenderWait is how long the renderer lets scripts settle.
	DefaultRenderWait = 2 * time.Second

	// DefaultUserAgent identifies siteaudit in HTTP requests.
	// A descriptive User-Agent lets operators identify auditor traffic.
	DefaultUserAgent = "siteaudit/1.0 (+https://github.com/nao1215/siteaudit)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 10MB covers even heavy landing pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "siteaudit"
)

// Config holds all configuration options for siteaudit.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// SeedURL is the absolute http(s) URL the crawl starts from.
	SeedURL string

	// Depth is the maximum crawl depth. Depth 0 means only the seed
	// page, 1 adds the pages it links to, and so on.
	Depth int

	// MaxPages is the maximum number of pages to fetch in one run.
	MaxPages int

	// Workers is the number of concurrent fetch workers.
	Workers int

	// Timeout is the HTTP timeout for each request.
	Timeout time.Duration

	// Delay is the minimum gap between requests to the same host.
	Delay time.Duration

	// RatePerSecond adds a per-host token-bucket limit on top of Delay.
	// Zero disables the token bucket.
	RatePerSecond float64

	// Render enables JavaScript rendering with headless Chrome.
	// Render failures degrade to the raw markup per page.
	Render bool

	// Scrolldown scrolls rendered pages to the bottom this many times
	// to trigger lazy-loaded content. Only used when Render is true.
	Scrolldown int

	// RenderWait is the script settle time per render step.
	RenderWait time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file in addition to stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, run results are saved for historical comparison.
	// When empty, results are not persisted.
	DBDir string

	// SaveToDB indicates whether to save run results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .siteaudit in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site configurations loaded from the config
	// file. Populated by LoadConfigFile.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, depth).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Depth:       DefaultDepth,
		MaxPages:    DefaultMaxPages,
		Workers:     DefaultWorkers,
		Timeout:     DefaultTimeout,
		Delay:       DefaultDelay,
		RenderWait:  DefaultRenderWait,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for siteaudit.
// On Linux: ~/.local/share/siteaudit
// On macOS: ~/Library/Application Support/siteaudit
// On Windows: %LOCALAPPDATA%\siteaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for siteaudit.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeed
	}
	if _, err := model.Canonicalize(c.SeedURL); err != nil {
		return ErrInvalidSeedURL
	}
	if c.Depth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.RatePerSecond < 0 {
		return ErrInvalidRate
	}
	if c.Scrolldown < 0 {
		return ErrInvalidScrolldown
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
