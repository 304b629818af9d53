package config

import (
	"fmt"
	"sort"
	"strings"
)

// Placeholder is the token in a url pattern that gets replaced with
// the username being probed.
const Placeholder = "{}"

// PlatformTemplate describes how to probe one platform. Templates are
// immutable once loaded for a run; the probing core only reads them.
type PlatformTemplate struct {
	// ID is the unique platform key. Set from the map key on load.
	ID string `yaml:"-"`

	// URLPattern is the profile URL with exactly one {} placeholder
	// for the username.
	URLPattern string `yaml:"url"`

	// ExistenceStrategy names the strategy deciding whether a response
	// is a real profile. Empty or unknown ids use the default check.
	ExistenceStrategy string `yaml:"existence_strategy,omitempty"`

	// AvatarSelector is an optional CSS-like selector hint for the
	// platform's avatar element.
	AvatarSelector string `yaml:"avatar_selector,omitempty"`

	// Enabled controls whether the platform is probed. Unset means
	// enabled; templates must be opted out explicitly.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the template participates in hunts.
func (t PlatformTemplate) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// ResolveURL substitutes the username into the url pattern.
func (t PlatformTemplate) ResolveURL(username string) string {
	return strings.Replace(t.URLPattern, Placeholder, username, 1)
}

// Validate checks the template invariants: a non-empty pattern with
// exactly one placeholder.
func (t PlatformTemplate) Validate() error {
	if strings.TrimSpace(t.URLPattern) == "" {
		return fmt.Errorf("platform %q: %w", t.ID, ErrEmptyURLPattern)
	}
	if strings.Count(t.URLPattern, Placeholder) != 1 {
		return fmt.Errorf("platform %q: %w", t.ID, ErrMissingPlaceholder)
	}
	return nil
}

// Templates is the platform template file contents. Platform ids are
// unique by construction (they are YAML map keys).
type Templates struct {
	// Platforms maps platform ids to their templates.
	Platforms map[string]PlatformTemplate `yaml:"platforms"`
}

// Validate checks every template. Malformed templates are fatal before
// any crawl starts, surfaced with the offending platform id.
func (ts *Templates) Validate() error {
	for _, tmpl := range ts.sorted() {
		if err := tmpl.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Enabled returns the enabled templates, optionally filtered to the
// given platform ids, sorted by id for deterministic probe ordering.
func (ts *Templates) Enabled(filter []string) []PlatformTemplate {
	wanted := make(map[string]bool, len(filter))
	for _, id := range filter {
		wanted[strings.TrimSpace(id)] = true
	}

	out := make([]PlatformTemplate, 0, len(ts.Platforms))
	for _, tmpl := range ts.sorted() {
		if !tmpl.IsEnabled() {
			continue
		}
		if len(filter) > 0 && !wanted[tmpl.ID] {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

// sorted returns all templates ordered by id with the ID field
// populated from the map key.
func (ts *Templates) sorted() []PlatformTemplate {
	ids := make([]string, 0, len(ts.Platforms))
	for id := range ts.Platforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]PlatformTemplate, 0, len(ids))
	for _, id := range ids {
		tmpl := ts.Platforms[id]
		tmpl.ID = id
		out = append(out, tmpl)
	}
	return out
}
