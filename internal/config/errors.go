package config

import "errors"

// Configuration validation errors.
// These are package-level sentinels so callers can use errors.Is for
// programmatic handling while still getting readable messages.
var (
	// ErrNoUsernames is returned when a hunt is started without any usernames.
	ErrNoUsernames = errors.New("no usernames specified: provide one or more usernames as arguments")

	// ErrInvalidTimeout is returned when the per-request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxWorkers is returned when the worker pool size is not positive.
	ErrInvalidMaxWorkers = errors.New("invalid max workers: must be positive")

	// ErrInvalidMinInterval is returned when the per-domain interval is negative.
	ErrInvalidMinInterval = errors.New("invalid rate limit interval: must be non-negative")

	// ErrInvalidJitter is returned when the jitter range is negative or inverted.
	ErrInvalidJitter = errors.New("invalid jitter range: min and max must be non-negative with min <= max")

	// ErrInvalidMaxBodySize is returned when the body size cap is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidThreshold is returned when the match threshold is outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid match threshold: must be in (0, 1]")

	// ErrNoPlatforms is returned when the template file contains no
	// enabled platforms.
	ErrNoPlatforms = errors.New("no enabled platforms in template configuration")
)

// Template validation errors. Malformed templates are fatal at load
// time, before any crawl starts.
var (
	// ErrMissingPlaceholder is returned when a url pattern lacks the
	// username placeholder.
	ErrMissingPlaceholder = errors.New("url pattern must contain exactly one {} placeholder")

	// ErrEmptyURLPattern is returned when a template has no url pattern.
	ErrEmptyURLPattern = errors.New("url pattern must not be empty")

	// ErrTemplatesNotFound is returned when the template file does not exist.
	ErrTemplatesNotFound = errors.New("platform template file not found")
)
