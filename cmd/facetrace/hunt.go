package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/osintlab/facetrace/internal/avatar"
	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/database"
	"github.com/osintlab/facetrace/internal/faceindex"
	"github.com/osintlab/facetrace/internal/log"
	"github.com/osintlab/facetrace/internal/model"
	"github.com/osintlab/facetrace/internal/pipeline"
	"github.com/osintlab/facetrace/internal/probe"
	"github.com/osintlab/facetrace/internal/ratelimit"
	"github.com/osintlab/facetrace/internal/report"
	"github.com/osintlab/facetrace/internal/tor"
	"github.com/spf13/cobra"
)

// NewHuntCmd creates the hunt command.
func NewHuntCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hunt <username> [username...]",
		Short: "Probe platforms for usernames and index the faces found",
		Long: `Hunt probes every enabled platform for each username, decides
existence from the response, and extracts avatar candidates from the
profiles it finds.

With --embed-endpoint set, avatar candidates are downloaded, run
through the face embedding service, and added to the local face index
for later search. Without it the hunt only reports existence.

Probe results are stored in a local history database; platforms probed
within the last 24 hours are skipped unless --force is given.

Examples:
  # Hunt a single username across all enabled platforms
  facetrace hunt johndoe

  # Hunt several usernames on specific platforms only
  facetrace hunt -p github -p gitlab johndoe jdoe

  # Hunt and index faces via a local embedding service
  facetrace hunt --embed-endpoint http://127.0.0.1:5000/encode johndoe

  # Route probes through an external Tor proxy
  facetrace hunt --tor-proxy 127.0.0.1:9050 johndoe

  # Output JSON report to a file
  facetrace hunt --json -o report.json johndoe`,
		Args: cobra.ArbitraryArgs,
		RunE: runHuntCmd,
	}

	// Platform selection flags
	cmd.Flags().StringP("templates", "c", "",
		"Platform template file path (default: .facetrace in current or config directory)")
	cmd.Flags().StringSliceP("platforms", "p", nil,
		"Restrict the hunt to these platform ids (repeatable)")

	// Probe behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().IntP("workers", "w", config.DefaultMaxWorkers,
		"Maximum number of concurrent probes")
	cmd.Flags().Duration("min-interval", config.DefaultMinInterval,
		"Minimum gap between requests to the same domain")
	cmd.Flags().BoolP("force", "f", false,
		"Re-probe platforms even when a fresh result exists in the history database")
	cmd.Flags().String("user-agent", "",
		"User-Agent header for probes (default: one of the built-in browser strings)")

	// Face indexing flags
	cmd.Flags().StringP("embed-endpoint", "E", "",
		"Face embedding service URL (e.g., http://127.0.0.1:5000/encode); empty disables indexing")
	cmd.Flags().StringP("index", "i", "",
		"Face index file path (default: face_index.json in the data directory)")

	// Tor flags
	cmd.Flags().String("tor-proxy", "",
		"Route probes through a SOCKS5 Tor proxy at the given address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("embedded-tor", false,
		"Launch an embedded Tor daemon and route probes through it")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("show-missing", false,
		"Include platforms where the username was not found in the report")

	return cmd
}

// runHuntCmd executes the hunt command.
func runHuntCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildHuntConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Structured logging with credential masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runHunt(ctx, cfg, logger)
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

// buildHuntConfig creates a Config from cobra command flags.
func buildHuntConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.TemplateFilePath, err = cmd.Flags().GetString("templates")
	if err != nil {
		return nil, err
	}

	cfg.Platforms, err = cmd.Flags().GetStringSlice("platforms")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxWorkers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}

	cfg.MinInterval, err = cmd.Flags().GetDuration("min-interval")
	if err != nil {
		return nil, err
	}

	cfg.Force, err = cmd.Flags().GetBool("force")
	if err != nil {
		return nil, err
	}

	userAgent, err := cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		cfg.UserAgent = userAgent
	} else {
		cfg.UserAgent = config.RandomUserAgent()
	}

	cfg.EmbedEndpoint, err = cmd.Flags().GetString("embed-endpoint")
	if err != nil {
		return nil, err
	}

	indexPath, err := cmd.Flags().GetString("index")
	if err != nil {
		return nil, err
	}
	if indexPath != "" {
		cfg.IndexPath = indexPath
	}

	torProxy, err := cmd.Flags().GetString("tor-proxy")
	if err != nil {
		return nil, err
	}
	if torProxy != "" {
		cfg.UseTor = true
		cfg.TorProxyAddress = torProxy
	}

	cfg.UseEmbeddedTor, err = cmd.Flags().GetBool("embedded-tor")
	if err != nil {
		return nil, err
	}

	cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return nil, err
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

	cfg.ShowMissing, err = cmd.Flags().GetBool("show-missing")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always keep probe history in the XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments are the usernames to hunt
	cfg.Usernames = args

	return cfg, nil
}

// loadTemplates resolves the platform template set: an explicit file,
// a discovered file, or the built-in defaults.
func loadTemplates(cfg *config.Config) (*config.Templates, error) {
	explicit := cfg.TemplateFilePath != ""
	path := config.FindTemplateFile(cfg.TemplateFilePath)

	if path == "" {
		if explicit {
			return nil, fmt.Errorf("template file not found: %s", cfg.TemplateFilePath)
		}
		return config.DefaultTemplates(), nil
	}

	ts, err := config.LoadTemplates(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load template file %s: %w", path, err)
	}
	return ts, nil
}

// runHunt executes the hunt.
func runHunt(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if len(cfg.Usernames) == 0 {
		return config.ErrNoUsernames
	}

	templates, err := loadTemplates(cfg)
	if err != nil {
		return err
	}
	cfg.Templates = templates

	enabled := templates.Enabled(cfg.Platforms)
	if len(enabled) == 0 {
		return config.ErrNoPlatforms
	}

	logger.Info("starting hunt",
		"usernames", len(cfg.Usernames),
		"platforms", len(enabled),
		"useTor", cfg.UseTor || cfg.UseEmbeddedTor,
		"indexing", cfg.EmbedEndpoint != "",
	)

	// Open the probe history database
	var db *database.HuntDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Build the HTTP client: embedded Tor, external Tor, or direct
	client, cleanup, err := buildHTTPClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	worker := probe.NewWorker(client,
		ratelimit.New(ratelimit.WithMinInterval(cfg.MinInterval)),
		probe.WithUserAgent(cfg.UserAgent),
		probe.WithMaxBodySize(cfg.MaxBodySize),
		probe.WithJitter(cfg.JitterMin, cfg.JitterMax),
		probe.WithLogger(logger),
		probe.WithExtractor(avatar.New()),
	)

	orchOpts := []probe.OrchestratorOption{
		probe.WithMaxWorkers(cfg.MaxWorkers),
		probe.WithOrchestratorLogger(logger),
	}
	if db != nil && !cfg.Force {
		orchOpts = append(orchOpts, probe.WithHistory(db, cfg.RecencyWindow))
	}
	orchestrator := probe.NewOrchestrator(worker, orchOpts...)

	fmt.Printf("Hunting %d username(s) across %d platform(s)...\n", len(cfg.Usernames), len(enabled))
	startTime := time.Now()

	results := orchestrator.Crawl(ctx, cfg.Usernames, enabled)

	elapsed := time.Since(startTime)
	fmt.Printf("Hunt completed in %s\n\n", elapsed.Round(time.Millisecond))

	if db != nil {
		if err := db.SaveResults(ctx, results); err != nil {
			logger.Error("failed to save probe results", "error", err)
		}
	}

	// Face indexing phase, only when an embedding service is configured
	var summary *pipeline.Summary
	if cfg.EmbedEndpoint != "" {
		summary, err = runIndexing(ctx, cfg, client, results, logger)
		if err != nil {
			logger.Error("face indexing failed", "error", err)
		}
	}

	return outputHuntReport(cfg, report.NewHuntReport(cfg.Usernames, results, summary))
}

// buildHTTPClient returns the probe HTTP client and a cleanup function.
// The cleanup stops the embedded Tor daemon when one was started.
func buildHTTPClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*http.Client, func(), error) {
	noop := func() {}

	switch {
	case cfg.UseEmbeddedTor:
		client, embeddedTor, err := startEmbeddedTor(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embeddedTor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		return client.NewHTTPClient(), cleanup, nil

	case cfg.UseTor:
		client, err := tor.NewClient(cfg.TorProxyAddress, cfg.Timeout)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Tor client: %w", err)
		}

		status := client.CheckConnection(ctx)
		if status != tor.ProxyStatusOK {
			return nil, noop, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.TorProxyAddress)
		}

		logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)
		return client.NewHTTPClient(), noop, nil

	default:
		return newDirectHTTPClient(cfg.Timeout), noop, nil
	}
}

// newDirectHTTPClient builds the HTTP client used when probes go out
// directly, without Tor.
func newDirectHTTPClient(timeout time.Duration) *http.Client {
	// Platforms gate profile pages behind consent/session cookies; a
	// jar makes redirect chains through those gates work.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Timeout: timeout,
		Jar:     jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
// Returns the Tor client and embedded Tor manager on success.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tor.Client, *tor.EmbeddedTor, error) {
	fmt.Println("Starting embedded Tor daemon...")
	fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embeddedTor := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)

	if err := embeddedTor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	logger.Info("embedded Tor daemon started",
		"socksAddr", embeddedTor.SocksAddr(),
		"controlAddr", embeddedTor.ControlAddr(),
	)

	client, err := embeddedTor.NewClient(cfg.Timeout)
	if err != nil {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}

	status := client.CheckConnection(ctx)
	if status != tor.ProxyStatusOK {
		_ = embeddedTor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}

	return client, embeddedTor, nil
}

// runIndexing downloads avatar candidates for every existing profile,
// embeds them, and persists the updated face index.
func runIndexing(ctx context.Context, cfg *config.Config, client *http.Client, results map[string][]*model.ProbeResult, logger *slog.Logger) (*pipeline.Summary, error) {
	index := faceindex.New()

	// Fold new faces into the existing index when one is present
	if err := index.Restore(cfg.IndexPath); err != nil && !errors.Is(err, faceindex.ErrIndexNotFound) {
		return nil, fmt.Errorf("failed to restore face index: %w", err)
	}

	fetcher := pipeline.NewFetcher(client,
		pipeline.WithMaxImageSize(cfg.MaxImageSize),
		pipeline.WithFetcherUserAgent(cfg.UserAgent),
	)
	encoder := pipeline.NewHTTPEncoder(cfg.EmbedEndpoint)

	p := pipeline.NewPipeline(fetcher, encoder, index,
		pipeline.WithImagesPerProfile(config.DefaultImagesPerProfile),
		pipeline.WithPipelineLogger(logger),
	)

	summary := p.Index(ctx, results)

	if err := index.Persist(cfg.IndexPath); err != nil {
		return summary, fmt.Errorf("failed to persist face index: %w", err)
	}

	logger.Info("face index updated",
		"indexed", summary.Indexed,
		"total", index.Count(),
		"path", cfg.IndexPath,
	)
	return summary, nil
}

// outputHuntReport writes the hunt report in the requested format.
func outputHuntReport(cfg *config.Config, huntReport *report.HuntReport) error {
	output, closeFn, err := openReportOutput(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeFn()

	writer := selectHuntWriter(cfg, output)
	_, err = writer.WriteHunt(huntReport)
	return err
}

// selectHuntWriter picks the report writer matching the config flags.
func selectHuntWriter(cfg *config.Config, output *os.File) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output,
			report.WithShowMissing(cfg.ShowMissing),
			report.WithVerbose(cfg.Verbose),
		)
	}
}

// openReportOutput opens the report destination: a file with secure
// permissions when a path is given, stdout otherwise.
func openReportOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports identify real people; owner-only permissions.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided report path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
