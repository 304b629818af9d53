package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/osintlab/facetrace/internal/avatar"
	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/model"
	"github.com/osintlab/facetrace/internal/ratelimit"
	"github.com/osintlab/facetrace/internal/strategy"
)

// Worker probes a single (username, platform) pair. It is safe for
// concurrent use: all fields are read-only after construction and the
// rate limiter handles its own locking.
type Worker struct {
	// client is the HTTP client used for probes. Pre-configured with
	// redirect following and, when requested, a Tor SOCKS5 proxy.
	client *http.Client

	// limiter enforces the per-domain minimum request interval.
	limiter *ratelimit.Limiter

	// strategies resolves existence strategy ids to decision functions.
	strategies *strategy.Registry

	// extractor pulls avatar candidates out of profile pages.
	extractor *avatar.Extractor

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize caps how many body bytes are read per response.
	// Bodies beyond the cap are truncated, not failed: existence
	// markers live near the top of the page.
	maxBodySize int64

	// jitterMin and jitterMax bound the random pre-request delay.
	jitterMin time.Duration
	jitterMax time.Duration

	// logger receives per-probe debug output.
	logger *slog.Logger

	// sleep is time-based waiting, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) WorkerOption {
	return func(w *Worker) {
		w.userAgent = ua
	}
}

// WithMaxBodySize sets the response body read cap in bytes.
func WithMaxBodySize(size int64) WorkerOption {
	return func(w *Worker) {
		w.maxBodySize = size
	}
}

// WithJitter sets the random delay range applied before each request.
// Passing 0, 0 disables jitter; tests rely on this.
func WithJitter(minDelay, maxDelay time.Duration) WorkerOption {
	return func(w *Worker) {
		w.jitterMin = minDelay
		w.jitterMax = maxDelay
	}
}

// WithLogger sets the logger used for per-probe debug output.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithExtractor sets the avatar extractor.
func WithExtractor(e *avatar.Extractor) WorkerOption {
	return func(w *Worker) {
		w.extractor = e
	}
}

// NewWorker creates a Worker using the given HTTP client and rate
// limiter. The client is injected rather than built here so that the
// tor package can supply a proxied client and tests can use
// httptest-backed ones.
func NewWorker(client *http.Client, limiter *ratelimit.Limiter, opts ...WorkerOption) *Worker {
	w := &Worker{
		client:      client,
		limiter:     limiter,
		strategies:  strategy.NewRegistry(),
		extractor:   avatar.New(),
		userAgent:   config.DefaultUserAgent,
		maxBodySize: config.DefaultMaxBodySize,
		jitterMin:   config.DefaultJitterMin,
		jitterMax:   config.DefaultJitterMax,
		logger:      slog.Default(),
		sleep:       sleepCtx,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Probe performs one existence check. It never returns a Go error:
// every failure mode is folded into the result's Error field so one
// dead platform cannot abort the hunt it belongs to.
func (w *Worker) Probe(ctx context.Context, req model.ProbeRequest, tmpl config.PlatformTemplate) *model.ProbeResult {
	result := &model.ProbeResult{
		Username:   req.Username,
		PlatformID: req.PlatformID,
		FinalURL:   req.ResolvedURL,
	}

	if err := w.limiter.Acquire(ctx, domainOf(req.ResolvedURL)); err != nil {
		result.Error = model.NewProbeErrorOther(err.Error())
		return result
	}

	if err := w.sleep(ctx, w.jitterDelay()); err != nil {
		result.Error = model.NewProbeErrorOther(err.Error())
		return result
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.ResolvedURL, nil)
	if err != nil {
		result.Error = model.NewProbeErrorOther(err.Error())
		return result
	}

	httpReq.Header.Set("User-Agent", w.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := w.client.Do(httpReq)
	if err != nil {
		result.Error = classifyRequestError(err)
		w.logger.DebugContext(ctx, "probe request failed",
			slog.String("platform", req.PlatformID),
			slog.String("kind", string(result.Error.Kind)))
		return result
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBodySize))
	if err != nil {
		result.Error = classifyRequestError(err)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.ContentLength = len(body)

	decide := w.strategies.Lookup(tmpl.ExistenceStrategy)
	result.Exists = decide(result.FinalURL, resp.StatusCode, string(body), req.Username)

	if result.Exists {
		result.CandidateImageURLs = w.extractor.Extract(string(body), result.FinalURL, tmpl.AvatarSelector)
	}

	w.logger.DebugContext(ctx, "probe complete",
		slog.String("username", req.Username),
		slog.String("platform", req.PlatformID),
		slog.Int("status", resp.StatusCode),
		slog.Bool("exists", result.Exists),
		slog.Int("candidates", len(result.CandidateImageURLs)))

	return result
}

// jitterDelay picks a random delay in [jitterMin, jitterMax].
func (w *Worker) jitterDelay() time.Duration {
	if w.jitterMax <= 0 || w.jitterMax <= w.jitterMin {
		return w.jitterMin
	}
	return w.jitterMin + time.Duration(rand.Int63n(int64(w.jitterMax-w.jitterMin))) //nolint:gosec // Politeness jitter, not crypto
}

// classifyRequestError maps a transport failure onto the probe error
// taxonomy. Timeouts are separated from connection failures because
// they mean different things operationally: a timeout suggests rate
// limiting or a slow platform, a connection error a dead or blocked one.
func classifyRequestError(err error) *model.ProbeError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.NewProbeError(model.ProbeErrorTimeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewProbeError(model.ProbeErrorTimeout)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return model.NewProbeError(model.ProbeErrorConnection)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return model.NewProbeError(model.ProbeErrorConnection)
	}

	return model.NewProbeErrorOther(err.Error())
}

// domainOf extracts the host for rate limiting. Unparsable URLs fall
// back to the raw string so they still get a rate limit bucket.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
