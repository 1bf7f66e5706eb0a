package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/siteaudit/internal/config"
	"github.com/nao1215/siteaudit/internal/crawler"
	"github.com/nao1215/siteaudit/internal/database"
	"github.com/nao1215/siteaudit/internal/extractor"
	"github.com/nao1215/siteaudit/internal/fetcher"
	"github.com/nao1215/siteaudit/internal/log"
	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [url]",
		Short: "Crawl a website and audit every page",
		Long: `Run crawls a website breadth-first starting from the given URL.

Only pages on the seed's host are followed. Each fetched page is parsed,
its content extracted, and audit rules evaluated:
- Duplicate element IDs and h1 heading structure
- Missing meta descriptions
- Social media links pointing at the wrong platform
- CMS and shop platform detection

Examples:
  # Audit a site with default depth and limits
  siteaudit run https://www.example.com

  # Deeper crawl with more pages and workers
  siteaudit run --depth 3 --max-pages 500 -w 8 https://www.example.com

  # Render JavaScript-heavy pages with headless Chrome
  siteaudit run --render --scrolldown 2 https://www.example.com

  # Output a JSON report to a file
  siteaudit run --json -o report.json https://www.example.com

  # Use a custom configuration file
  siteaudit run -c myconfig.yaml https://www.example.com

Configuration file (.siteaudit) example:
  defaults:
    delayMillis: 1000
  sites:
    www.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      depth: 3
      productSignals: ["product-card", "angebot"]`,
		Args: cobra.ExactArgs(1),
		RunE: runRunCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultDepth,
		"Maximum crawl depth (0 audits only the seed page)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch in one run")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent fetch workers")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum gap between requests to the same host")
	cmd.Flags().Float64("rate", 0,
		"Per-host request rate limit in requests per second (0 disables)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with HTTP requests")

	// JavaScript rendering flags
	cmd.Flags().Bool("render", false,
		"Render pages with headless Chrome before analysis")
	cmd.Flags().Int("scrolldown", 0,
		"Scroll rendered pages to the bottom this many times (requires --render)")
	cmd.Flags().Duration("render-wait", config.DefaultRenderWait,
		"Script settle time per render step (requires --render)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .siteaudit in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory for the run history database (empty disables saving)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential masking
	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAudit(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Depth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.RatePerSecond, err = cmd.Flags().GetFloat64("rate")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.Render, err = cmd.Flags().GetBool("render")
	if err != nil {
		return nil, err
	}

	cfg.Scrolldown, err = cmd.Flags().GetInt("scrolldown")
	if err != nil {
		return nil, err
	}

	cfg.RenderWait, err = cmd.Flags().GetDuration("render-wait")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = cfg.DBDir != ""

	cfg.Verbose = getVerboseFlag(cmd)

	// Get positional argument (seed URL)
	cfg.SeedURL = args[0]

	return cfg, nil
}

// runAudit executes the crawl and writes the report.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Validate already checked the seed; canonicalize again for the host.
	seed, err := model.Canonicalize(cfg.SeedURL)
	if err != nil {
		return fmt.Errorf("invalid seed URL %q: %w", cfg.SeedURL, err)
	}
	host := model.CanonicalHost(seed)

	// Apply site-specific overrides from the config file
	var site config.SiteConfig
	if cfg.SiteConfigs != nil {
		site = cfg.SiteConfigs.GetSiteConfig(host)
	}
	depth := cfg.Depth
	if site.Depth > 0 {
		depth = site.Depth
	}
	delay := cfg.Delay
	if site.DelayMillis > 0 {
		delay = time.Duration(site.DelayMillis) * time.Millisecond
	}

	client := buildFetcher(cfg, site, logger)
	engine := buildEngine(cfg, site, client, depth, delay, logger)

	fmt.Fprintf(os.Stderr, "Auditing %s (depth %d, up to %d pages)...\n", seed, depth, cfg.MaxPages)
	startTime := time.Now()

	auditReport, err := engine.Run(ctx, seed)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "Audit completed in %s: %d pages, %d findings\n\n",
		elapsed.Round(time.Millisecond),
		auditReport.Summary.TotalPages,
		auditReport.Summary.TotalFindings,
	)
	if auditReport.Cancelled {
		fmt.Fprintln(os.Stderr, "Note: the crawl was interrupted; the report covers partial results.")
	}

	if err := outputReport(cfg, auditReport); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	// Save to database if enabled. A cancelled context must not discard
	// the partial run, so saving detaches from the crawl context.
	if cfg.SaveToDB && cfg.DBDir != "" {
		saveReport(context.WithoutCancel(ctx), cfg, auditReport, host, logger)
	}

	return nil
}

// buildFetcher assembles the HTTP client, applying site-specific
// authentication and the optional headless-Chrome renderer.
func buildFetcher(cfg *config.Config, site config.SiteConfig, logger *slog.Logger) *fetcher.Client {
	opts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithLogger(logger),
	}

	if site.Cookie != "" {
		opts = append(opts, fetcher.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, fetcher.WithExtraHeaders(site.Headers))
	}

	if cfg.Render {
		renderer := fetcher.NewChromeRenderer(fetcher.RenderOptions{
			Wait:       cfg.RenderWait,
			Scrolldown: cfg.Scrolldown,
			UserAgent:  cfg.UserAgent,
			Sessions:   cfg.Workers,
		}, logger)
		opts = append(opts, fetcher.WithRenderer(renderer))
	}

	return fetcher.NewClient(opts...)
}

// buildEngine assembles the crawl engine with the effective limits.
func buildEngine(cfg *config.Config, site config.SiteConfig, client *fetcher.Client, depth int, delay time.Duration, logger *slog.Logger) *crawler.Engine {
	ex := extractor.New()
	if len(site.ProductSignals) > 0 {
		ex = extractor.New(extractor.WithProductSignals(site.ProductSignals))
	}

	return crawler.NewEngine(client,
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithLimiter(crawler.NewHostLimiter(delay, cfg.RatePerSecond, 1)),
		crawler.WithLogger(logger),
		crawler.WithExtractor(ex),
		crawler.WithProgress(func(url string, depth, completed int) {
			fmt.Fprintf(os.Stderr, "[%3d] depth=%d %s\n", completed, depth, url)
		}),
	)
}

// outputReport writes the report in the requested format to stdout and,
// when configured, to the output file.
func outputReport(cfg *config.Config, auditReport *model.Report) error {
	writers := []report.Writer{newFormatWriter(cfg, os.Stdout)}

	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may embed cookies from site configs in evidence, so the
		// file is only readable by the owner.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writers = append(writers, newFormatWriter(cfg, f))
	}

	_, err := report.NewMultiWriter(writers...).Write(auditReport)
	return err
}

// newFormatWriter selects the report writer for the configured format.
func newFormatWriter(cfg *config.Config, output *os.File) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveReport persists the run for later comparison. Failures are logged
// rather than returned because the report was already delivered.
func saveReport(ctx context.Context, cfg *config.Config, auditReport *model.Report, host string, logger *slog.Logger) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		logger.Error("failed to open history database", "dir", cfg.DBDir, "error", err)
		return
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, auditReport)
	if err != nil {
		logger.Error("failed to save run", "error", err)
		return
	}

	fmt.Fprintf(os.Stderr, "\nRun saved to history (ID %d). Compare runs with: siteaudit compare %s\n", id, host)
}
