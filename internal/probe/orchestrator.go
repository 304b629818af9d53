package probe

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/model"
)

// History is the probe result cache consulted before hitting the
// network. A stored result younger than the recency window is reused
// instead of re-probing the platform.
type History interface {
	// RecentResult returns the stored result for the pair when one
	// exists within the window, or nil when the pair must be probed.
	RecentResult(ctx context.Context, username, platformID string, window time.Duration) (*model.ProbeResult, error)
}

// Orchestrator fans probe work out over every (username, platform)
// pair with bounded concurrency.
//
// Invariant: Crawl returns exactly one result per (username, enabled
// platform) pair, regardless of how individual probes fail.
type Orchestrator struct {
	// worker performs the individual probes.
	worker *Worker

	// maxWorkers bounds concurrent probes. The effective pool size is
	// min(maxWorkers, number of templates): concurrency buys nothing
	// beyond one in-flight probe per platform because of the per-domain
	// rate limit.
	maxWorkers int

	// history is the optional probe result cache. Nil disables reuse.
	history History

	// recencyWindow is how far back cached results are honored.
	recencyWindow time.Duration

	// logger receives per-hunt progress output.
	logger *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxWorkers sets the concurrent probe bound.
func WithMaxWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxWorkers = n
	}
}

// WithHistory enables probe result reuse from the given cache for
// results younger than window.
func WithHistory(h History, window time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.history = h
		o.recencyWindow = window
	}
}

// WithOrchestratorLogger sets the logger used for hunt progress.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator around the given Worker.
func NewOrchestrator(worker *Worker, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		worker:        worker,
		maxWorkers:    config.DefaultMaxWorkers,
		recencyWindow: config.DefaultRecencyWindow,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Crawl probes every (username, template) pair and returns results
// grouped by username, ordered by platform id within each group.
// Usernames that are empty after trimming are dropped; duplicates are
// probed once. Crawl itself never fails: per-pair failures live on the
// individual results.
func (o *Orchestrator) Crawl(ctx context.Context, usernames []string, templates []config.PlatformTemplate) map[string][]*model.ProbeResult {
	cleaned := cleanUsernames(usernames)

	results := make(map[string][]*model.ProbeResult, len(cleaned))
	for _, username := range cleaned {
		results[username] = make([]*model.ProbeResult, 0, len(templates))
	}

	limit := o.maxWorkers
	if len(templates) > 0 && len(templates) < limit {
		limit = len(templates)
	}
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)

	for _, username := range cleaned {
		for _, tmpl := range templates {
			g.Go(func() error {
				result := o.probeOne(ctx, username, tmpl)

				mu.Lock()
				results[username] = append(results[username], result)
				mu.Unlock()

				return nil
			})
		}
	}

	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	for _, username := range cleaned {
		rs := results[username]
		sort.Slice(rs, func(i, j int) bool {
			return rs[i].PlatformID < rs[j].PlatformID
		})
	}

	return results
}

// probeOne resolves one pair, preferring a fresh cached result when a
// history store is configured.
func (o *Orchestrator) probeOne(ctx context.Context, username string, tmpl config.PlatformTemplate) *model.ProbeResult {
	if o.history != nil {
		cached, err := o.history.RecentResult(ctx, username, tmpl.ID, o.recencyWindow)
		if err != nil {
			o.logger.WarnContext(ctx, "history lookup failed, probing anyway",
				slog.String("platform", tmpl.ID),
				slog.String("error", err.Error()))
		} else if cached != nil {
			o.logger.DebugContext(ctx, "reusing recent probe result",
				slog.String("username", username),
				slog.String("platform", tmpl.ID))
			return cached
		}
	}

	req := model.ProbeRequest{
		Username:    username,
		PlatformID:  tmpl.ID,
		ResolvedURL: tmpl.ResolveURL(username),
	}

	return o.worker.Probe(ctx, req, tmpl)
}

// cleanUsernames trims, drops empties, and dedupes preserving order.
func cleanUsernames(usernames []string) []string {
	seen := make(map[string]bool, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
