package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/model"
)

// Fetcher retrieves avatar image bytes. It accepts three reference
// forms: data: URIs (decoded inline), http(s) URLs (downloaded), and
// anything else, which is treated as a local file path so manually
// saved images can be indexed too.
type Fetcher struct {
	// client is the HTTP client for remote images. Shares proxy
	// configuration with the probe workers so image downloads do not
	// leak around Tor when it is in use.
	client *http.Client

	// maxImageSize caps image downloads in bytes.
	maxImageSize int64

	// userAgent is sent with download requests.
	userAgent string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxImageSize sets the image download cap in bytes.
func WithMaxImageSize(size int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxImageSize = size
	}
}

// WithFetcherUserAgent sets the User-Agent for image downloads.
func WithFetcherUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a Fetcher using the given HTTP client.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:       client,
		maxImageSize: config.DefaultMaxImageSize,
		userAgent:    config.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch resolves one image reference to raw bytes. Failures come back
// as a typed ProbeError rather than a Go error so callers can count
// skip reasons without unwrapping.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, *model.ProbeError) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return f.fetchDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return f.fetchRemote(ctx, ref)
	default:
		return f.fetchFile(ref)
	}
}

// fetchDataURI decodes an inline base64 image.
func (f *Fetcher) fetchDataURI(ref string) ([]byte, *model.ProbeError) {
	parts := strings.SplitN(ref, ",", 2)
	if len(parts) != 2 {
		return nil, model.NewProbeError(model.ProbeErrorInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(parts[1])
		if err != nil {
			return nil, model.NewProbeError(model.ProbeErrorInvalidImage)
		}
	}

	return f.validate(data)
}

// fetchRemote downloads an image over HTTP with the size cap enforced
// while streaming, not after: a hostile server cannot make us buffer
// more than the cap.
func (f *Fetcher) fetchRemote(ctx context.Context, ref string) ([]byte, *model.ProbeError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, model.NewProbeErrorOther(err.Error())
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, model.NewProbeError(model.ProbeErrorTimeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewProbeError(model.ProbeErrorTimeout)
		}
		return nil, model.NewProbeError(model.ProbeErrorConnection)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewProbeErrorOther("unexpected status " + resp.Status)
	}
	if resp.ContentLength > f.maxImageSize {
		return nil, model.NewProbeError(model.ProbeErrorContentTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxImageSize+1))
	if err != nil {
		return nil, model.NewProbeError(model.ProbeErrorConnection)
	}
	if int64(len(data)) > f.maxImageSize {
		return nil, model.NewProbeError(model.ProbeErrorContentTooLarge)
	}

	return f.validate(data)
}

// fetchFile reads an image from the local filesystem.
func (f *Fetcher) fetchFile(path string) ([]byte, *model.ProbeError) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, model.NewProbeErrorOther(err.Error())
	}
	if info.Size() > f.maxImageSize {
		return nil, model.NewProbeError(model.ProbeErrorContentTooLarge)
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided image path is intentional
	if err != nil {
		return nil, model.NewProbeErrorOther(err.Error())
	}

	return f.validate(data)
}

// validate sniffs the bytes and rejects anything that is not an image.
// Platforms routinely serve HTML error pages with image content types,
// so the bytes are what gets trusted, never the headers.
func (f *Fetcher) validate(data []byte) ([]byte, *model.ProbeError) {
	if len(data) == 0 {
		return nil, model.NewProbeError(model.ProbeErrorInvalidImage)
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, model.NewProbeError(model.ProbeErrorInvalidImage)
	}
	return data, nil
}
