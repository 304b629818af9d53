package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig tests the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
	if cfg.MaxWorkers != DefaultMaxWorkers {
		t.Errorf("expected default max workers %d, got %d", DefaultMaxWorkers, cfg.MaxWorkers)
	}
	if cfg.MatchThreshold != DefaultMatchThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultMatchThreshold, cfg.MatchThreshold)
	}
	if cfg.UserAgent == "" {
		t.Error("expected non-empty default user agent")
	}
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid defaults", mutate: func(_ *Config) {}, wantErr: nil},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.MaxWorkers = 0 },
			wantErr: ErrInvalidMaxWorkers,
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.MinInterval = -time.Second },
			wantErr: ErrInvalidMinInterval,
		},
		{
			name:    "inverted jitter",
			mutate:  func(c *Config) { c.JitterMin = time.Second; c.JitterMax = 0 },
			wantErr: ErrInvalidJitter,
		},
		{
			name:    "negative body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
		{
			name:    "conflicting report formats",
			mutate:  func(c *Config) { c.JSONReport = true; c.MarkdownReport = true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "threshold above one",
			mutate:  func(c *Config) { c.MatchThreshold = 1.5 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.MatchThreshold = 0 },
			wantErr: ErrInvalidThreshold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestPlatformTemplateValidate tests template invariants.
func TestPlatformTemplateValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tmpl    PlatformTemplate
		wantErr error
	}{
		{
			name: "valid",
			tmpl: PlatformTemplate{ID: "e", URLPattern: "https://e.test/{}"},
		},
		{
			name:    "empty pattern",
			tmpl:    PlatformTemplate{ID: "e"},
			wantErr: ErrEmptyURLPattern,
		},
		{
			name:    "missing placeholder",
			tmpl:    PlatformTemplate{ID: "e", URLPattern: "https://e.test/users"},
			wantErr: ErrMissingPlaceholder,
		},
		{
			name:    "two placeholders",
			tmpl:    PlatformTemplate{ID: "e", URLPattern: "https://e.test/{}/{}"},
			wantErr: ErrMissingPlaceholder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.tmpl.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestTemplateResolveURL tests placeholder substitution.
func TestTemplateResolveURL(t *testing.T) {
	t.Parallel()

	tmpl := PlatformTemplate{ID: "e", URLPattern: "https://e.test/{}"}
	if got := tmpl.ResolveURL("alice"); got != "https://e.test/alice" {
		t.Errorf("unexpected URL: %s", got)
	}
}

// TestTemplatesEnabled tests filtering and ordering.
func TestTemplatesEnabled(t *testing.T) {
	t.Parallel()

	off := false
	ts := &Templates{Platforms: map[string]PlatformTemplate{
		"zeta":  {URLPattern: "https://z.test/{}"},
		"alpha": {URLPattern: "https://a.test/{}"},
		"off":   {URLPattern: "https://o.test/{}", Enabled: &off},
	}}

	t.Run("sorted and enabled only", func(t *testing.T) {
		t.Parallel()

		got := ts.Enabled(nil)
		if len(got) != 2 {
			t.Fatalf("expected 2 enabled, got %d", len(got))
		}
		if got[0].ID != "alpha" || got[1].ID != "zeta" {
			t.Errorf("expected [alpha zeta], got [%s %s]", got[0].ID, got[1].ID)
		}
	})

	t.Run("filter restricts", func(t *testing.T) {
		t.Parallel()

		got := ts.Enabled([]string{"zeta"})
		if len(got) != 1 || got[0].ID != "zeta" {
			t.Errorf("expected [zeta], got %v", got)
		}
	})

	t.Run("disabled stays out even when filtered for", func(t *testing.T) {
		t.Parallel()

		got := ts.Enabled([]string{"off"})
		if len(got) != 0 {
			t.Errorf("expected none, got %v", got)
		}
	})
}

// TestLoadTemplates tests YAML loading and fatal validation.
func TestLoadTemplates(t *testing.T) {
	t.Parallel()

	t.Run("valid file round-trips", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".facetrace")
		content := `platforms:
  example:
    url: "https://e.test/{}"
    existence_strategy: status_code
    avatar_selector: img.avatar
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		ts, err := LoadTemplates(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		tmpl, ok := ts.Platforms["example"]
		if !ok {
			t.Fatal("expected example platform")
		}
		if tmpl.URLPattern != "https://e.test/{}" {
			t.Errorf("unexpected pattern: %s", tmpl.URLPattern)
		}
		if tmpl.ExistenceStrategy != "status_code" {
			t.Errorf("unexpected strategy: %s", tmpl.ExistenceStrategy)
		}
	})

	t.Run("missing placeholder is fatal at load", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".facetrace")
		content := `platforms:
  broken:
    url: "https://e.test/users"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		_, err := LoadTemplates(path)
		if !errors.Is(err, ErrMissingPlaceholder) {
			t.Errorf("expected ErrMissingPlaceholder, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadTemplates(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrTemplatesNotFound) {
			t.Errorf("expected ErrTemplatesNotFound, got %v", err)
		}
	})
}

// TestDefaultTemplates tests the built-in set.
func TestDefaultTemplates(t *testing.T) {
	t.Parallel()

	ts := DefaultTemplates()

	if err := ts.Validate(); err != nil {
		t.Fatalf("built-in templates must validate: %v", err)
	}

	if _, ok := ts.Platforms["github"]; !ok {
		t.Error("expected github template")
	}

	for _, tmpl := range ts.Enabled(nil) {
		if tmpl.ID == "twitter" || tmpl.ID == "instagram" {
			t.Errorf("%s requires JS rendering and should be disabled by default", tmpl.ID)
		}
	}
}

// TestWriteTemplates tests the init-command write path.
func TestWriteTemplates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", ".facetrace")
	if err := WriteTemplates(DefaultTemplates(), path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ts, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(ts.Platforms) != len(DefaultTemplates().Platforms) {
		t.Errorf("expected %d platforms, got %d", len(DefaultTemplates().Platforms), len(ts.Platforms))
	}
}

// TestRandomUserAgent tests that the pool always yields a browser string.
func TestRandomUserAgent(t *testing.T) {
	t.Parallel()

	for range 20 {
		ua := RandomUserAgent()
		found := false
		for _, candidate := range BrowserUserAgents {
			if ua == candidate {
				found = true
			}
		}
		if !found {
			t.Fatalf("RandomUserAgent returned %q, not in BrowserUserAgents", ua)
		}
	}
}
