package config

import (
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These mirror typical politeness and
// resource bounds for probing public platforms without tripping
// anti-abuse systems.
const (
	// DefaultTimeout bounds each HTTP probe. 15 seconds covers slow
	// platforms while keeping a full hunt responsive.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxWorkers is the upper bound on concurrent probes. The
	// effective pool size is min(MaxWorkers, number of platforms).
	DefaultMaxWorkers = 10

	// DefaultMinInterval is the per-domain gap between requests.
	DefaultMinInterval = 1 * time.Second

	// DefaultJitterMin / DefaultJitterMax bound the random delay added
	// before each probe to break up request regularity.
	DefaultJitterMin = 250 * time.Millisecond
	DefaultJitterMax = 1500 * time.Millisecond

	// DefaultMaxBodySize limits response bodies read during probing.
	// 5MB is sufficient for any profile page while preventing memory
	// exhaustion from unexpected responses.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultMaxImageSize limits avatar downloads during indexing.
	DefaultMaxImageSize = 5 * 1024 * 1024

	// DefaultMatchThreshold is the face distance below which a search
	// hit counts as a match. 0.6 is the conventional threshold for
	// 128-dimensional face embeddings.
	DefaultMatchThreshold = 0.6

	// DefaultTopK is the number of search results returned.
	DefaultTopK = 10

	// DefaultImagesPerProfile is how many avatar candidates per
	// existing profile the indexing pipeline downloads.
	DefaultImagesPerProfile = 2

	// DefaultUserAgent mimics a mainstream browser. Using an honest
	// scanner User-Agent gets probes blocked on most platforms, which
	// would make every existence heuristic useless.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultTorStartupTimeout is the maximum wait for the embedded
	// Tor daemon to bootstrap when --embedded-tor is used.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultRecencyWindow is how long a stored probe result is
	// considered fresh; fresh probes are skipped unless --force.
	DefaultRecencyWindow = 24 * time.Hour

	// AppName is the application name used for XDG directory paths.
	AppName = "facetrace"

	// DefaultIndexFile is the face index filename inside the data dir.
	DefaultIndexFile = "face_index.json"
)

// BrowserUserAgents is the static pool of browser User-Agent strings a
// hunt picks from when none is configured. All current mainstream
// browsers on common desktop platforms.
var BrowserUserAgents = []string{
	DefaultUserAgent,
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// RandomUserAgent returns one entry from BrowserUserAgents.
func RandomUserAgent() string {
	return BrowserUserAgents[rand.IntN(len(BrowserUserAgents))]
}

// Config holds all runtime options for facetrace.
type Config struct {
	// Usernames are the candidate identities to hunt.
	Usernames []string

	// Platforms optionally restricts the hunt to these platform ids.
	// Empty means all enabled templates.
	Platforms []string

	// Templates holds the platform templates loaded for this run.
	// Read-only once loaded.
	Templates *Templates

	// TemplateFilePath is an explicit path to the template file. Empty
	// means search the standard locations and fall back to built-ins.
	TemplateFilePath string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxWorkers bounds the probe worker pool.
	MaxWorkers int

	// MinInterval is the per-domain minimum gap between requests.
	MinInterval time.Duration

	// JitterMin and JitterMax bound the random pre-request delay.
	JitterMin time.Duration
	JitterMax time.Duration

	// MaxBodySize caps HTML response bodies in bytes.
	MaxBodySize int64

	// MaxImageSize caps avatar downloads in bytes.
	MaxImageSize int64

	// UserAgent is sent with every HTTP request.
	UserAgent string

	// Verbose enables debug-level logging.
	Verbose bool

	// IndexPath is the face index file. Defaults to the XDG data dir.
	IndexPath string

	// DBDir is the directory for the probe history database. Empty
	// disables history persistence.
	DBDir string

	// SaveToDB indicates whether probe results are persisted.
	SaveToDB bool

	// Force re-probes platforms even when a fresh result exists in the
	// history database.
	Force bool

	// RecencyWindow is how long stored probe results stay fresh.
	RecencyWindow time.Duration

	// EmbedEndpoint is the URL of the external face embedding service.
	// Empty disables indexing (hunts still report existence).
	EmbedEndpoint string

	// MatchThreshold is the distance threshold for search matches.
	MatchThreshold float64

	// TopK is the number of search results to return.
	TopK int

	// JSONReport selects machine-readable JSON output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ShowMissing includes platforms where the username was not found
	// in the human-readable report.
	ShowMissing bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// TorProxyAddress is a SOCKS5 proxy in "host:port" format. Set
	// together with UseTor to route probes through Tor.
	TorProxyAddress string

	// UseTor routes all probe traffic through TorProxyAddress.
	UseTor bool

	// UseEmbeddedTor launches an embedded Tor daemon instead of using
	// an external proxy.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds embedded Tor bootstrap.
	TorStartupTimeout time.Duration
}

// NewConfig creates a Config with default values. Many defaults are
// non-zero, so relying on zero values would be wrong; this constructor
// also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		MaxWorkers:        DefaultMaxWorkers,
		MinInterval:       DefaultMinInterval,
		JitterMin:         DefaultJitterMin,
		JitterMax:         DefaultJitterMax,
		MaxBodySize:       DefaultMaxBodySize,
		MaxImageSize:      DefaultMaxImageSize,
		UserAgent:         DefaultUserAgent,
		MatchThreshold:    DefaultMatchThreshold,
		TopK:              DefaultTopK,
		RecencyWindow:     DefaultRecencyWindow,
		TorStartupTimeout: DefaultTorStartupTimeout,
		IndexPath:         filepath.Join(XDGDataDir(), DefaultIndexFile),
	}
}

// XDGDataDir returns the XDG data directory for facetrace.
// On Linux: ~/.local/share/facetrace
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for facetrace.
// On Linux: ~/.config/facetrace
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem
// found. Called once after flag parsing, before any probing begins.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxWorkers <= 0 {
		return ErrInvalidMaxWorkers
	}
	if c.MinInterval < 0 {
		return ErrInvalidMinInterval
	}
	if c.JitterMin < 0 || c.JitterMax < 0 || c.JitterMin > c.JitterMax {
		return ErrInvalidJitter
	}
	if c.MaxBodySize < 0 || c.MaxImageSize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return ErrInvalidThreshold
	}
	return nil
}
