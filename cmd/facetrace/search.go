package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/faceindex"
	"github.com/osintlab/facetrace/internal/log"
	"github.com/osintlab/facetrace/internal/pipeline"
	"github.com/osintlab/facetrace/internal/report"
	"github.com/spf13/cobra"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <image>",
		Short: "Search the face index for a target face",
		Long: `Search embeds the face in the given image and ranks every face in
the local index by similarity. The image can be a local file path, an
http(s) URL, or a data: URI.

The index is built by previous hunts run with --embed-endpoint; the
same embedding service must be reachable for search, since the query
image needs encoding too.

Examples:
  # Search with a local photograph
  facetrace search --embed-endpoint http://127.0.0.1:5000/encode photo.jpg

  # Lower the match threshold and return more results
  facetrace search -E http://127.0.0.1:5000/encode --threshold 0.5 -k 25 photo.jpg

  # JSON output for scripting
  facetrace search -E http://127.0.0.1:5000/encode --json photo.jpg

  # Show index statistics instead of searching
  facetrace search --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().StringP("embed-endpoint", "E", "",
		"Face embedding service URL (required unless --stats)")
	cmd.Flags().StringP("index", "i", "",
		"Face index file path (default: face_index.json in the data directory)")
	cmd.Flags().Float64("threshold", config.DefaultMatchThreshold,
		"Face distance below which a result counts as a match (0 < t <= 1)")
	cmd.Flags().IntP("top-k", "k", config.DefaultTopK,
		"Maximum number of results to return")
	cmd.Flags().Bool("stats", false,
		"Print index statistics instead of searching")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON results")
	cmd.Flags().StringP("output", "o", "",
		"Write results to specified file path")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildSearchConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	statsOnly, err := cmd.Flags().GetBool("stats")
	if err != nil {
		return err
	}

	index := faceindex.New()
	if err := index.Restore(cfg.IndexPath); err != nil {
		if errors.Is(err, faceindex.ErrIndexNotFound) {
			return fmt.Errorf("no face index at %s (run a hunt with --embed-endpoint first)", cfg.IndexPath)
		}
		return fmt.Errorf("failed to restore face index: %w", err)
	}

	if statsOnly {
		printIndexStats(cmd, index)
		return nil
	}

	if len(args) == 0 {
		return errors.New("no target image provided (specify a file path, URL, or data: URI)")
	}
	if cfg.EmbedEndpoint == "" {
		return errors.New("--embed-endpoint is required to encode the target image")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return runSearch(ctx, cfg, index, args[0], logger)
}

// buildSearchConfig creates a Config from the search command flags.
func buildSearchConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

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

	cfg.MatchThreshold, err = cmd.Flags().GetFloat64("threshold")
	if err != nil {
		return nil, err
	}

	cfg.TopK, err = cmd.Flags().GetInt("top-k")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runSearch embeds the target image and ranks the index against it.
func runSearch(ctx context.Context, cfg *config.Config, index *faceindex.Index, imageRef string, logger *slog.Logger) error {
	fetcher := pipeline.NewFetcher(&http.Client{Timeout: cfg.Timeout},
		pipeline.WithMaxImageSize(cfg.MaxImageSize),
		pipeline.WithFetcherUserAgent(cfg.UserAgent),
	)

	image, perr := fetcher.Fetch(ctx, imageRef)
	if perr != nil {
		return fmt.Errorf("failed to load target image: %s", perr.Error())
	}

	encoder := pipeline.NewHTTPEncoder(cfg.EmbedEndpoint)
	query, err := encoder.Encode(ctx, image)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoFace) {
			return errors.New("no face detected in the target image")
		}
		return fmt.Errorf("failed to encode target image: %w", err)
	}

	logger.Debug("target face encoded",
		"dimension", len(query),
		"indexSize", index.Count(),
	)

	matches, err := index.Search(query, cfg.MatchThreshold, cfg.TopK)
	if err != nil {
		return fmt.Errorf("face search failed: %w", err)
	}

	output, closeFn, err := openReportOutput(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeFn()

	var writer report.Writer
	if cfg.JSONReport {
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(output)
	}

	_, err = writer.WriteMatches(matches)
	return err
}

// printIndexStats prints record counts for the restored index.
func printIndexStats(cmd *cobra.Command, index *faceindex.Index) {
	stats := index.Stats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Face index statistics\n")
	fmt.Fprintf(out, "  Records:   %d\n", stats.Total)
	fmt.Fprintf(out, "  Dimension: %d\n", stats.Dimension)
	fmt.Fprintf(out, "  Usernames: %d\n", stats.Usernames)

	if len(stats.ByPlatform) == 0 {
		return
	}

	fmt.Fprintf(out, "  By platform:\n")
	platforms := make([]string, 0, len(stats.ByPlatform))
	for p := range stats.ByPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		fmt.Fprintf(out, "    %-16s %d\n", p, stats.ByPlatform[p])
	}
}
