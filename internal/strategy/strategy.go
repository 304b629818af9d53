package strategy

import (
	"net/http"
	"strings"
)

// Func is an existence strategy: it maps the final response of a probe
// to a boolean "profile exists" decision.
//
// Strategies must be side-effect-free and must never panic. Ambiguous
// input resolves to false: presuming a profile absent is the
// conservative default for an investigation tool.
type Func func(finalURL string, statusCode int, body, username string) bool

// DefaultID is the id of the fallback strategy used when a platform
// declares no strategy or an unrecognized one.
const DefaultID = "status_code"

// Registry holds existence strategies keyed by id.
//
// The registry is populated at construction and read-only afterwards,
// so it is safe for concurrent use by probe workers without locking.
type Registry struct {
	strategies map[string]Func
}

// NewRegistry creates a Registry pre-populated with the built-in
// strategies for the default platform set.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Func)}

	r.register(DefaultID, StatusCode)
	r.register("username_in_page", UsernameInPage)

	// Marker-based platform strategies. Each is a 200-gated check that
	// a platform's "not found" phrases are absent, optionally requiring
	// a positive profile marker.
	for id, table := range platformMarkers {
		r.register(id, markerStrategy(table))
	}

	// GitLab is the one redirect-based carve-out: statuses other than
	// 404 may still count as "exists" there.
	r.register("gitlab_check", Redirect(gitlabMarkers))

	return r
}

// register adds a strategy under the given id.
func (r *Registry) register(id string, fn Func) {
	r.strategies[id] = fn
}

// Lookup returns the strategy for the given id. Unknown or empty ids
// return the default strategy, so Lookup never fails.
func (r *Registry) Lookup(id string) Func {
	if fn, ok := r.strategies[id]; ok {
		return fn
	}
	return r.strategies[DefaultID]
}

// IDs returns all registered strategy ids. Useful for config validation
// diagnostics and the init command's template comments.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	return ids
}

// StatusCode is the default strategy: the profile exists iff the final
// status code is 200.
func StatusCode(_ string, statusCode int, _, _ string) bool {
	return statusCode == http.StatusOK
}

// UsernameInPage requires a 200 response whose title, meta content, or
// body mentions the username. Useful for platforms that serve a generic
// 200 page for missing users without a distinctive error phrase.
func UsernameInPage(_ string, statusCode int, body, username string) bool {
	if statusCode != http.StatusOK || username == "" {
		return false
	}
	return strings.Contains(strings.ToLower(body), strings.ToLower(username))
}

// markerTable is the data for one marker-based strategy.
type markerTable struct {
	// notFound phrases indicate a missing profile; any hit decides false.
	notFound []string

	// positive markers indicate a real profile page. When non-empty,
	// at least one must be present for the strategy to decide true.
	positive []string

	// requireUsername additionally demands the username appear in the
	// page when positive markers are configured.
	requireUsername bool
}

// markerStrategy builds a Func from a markerTable.
func markerStrategy(table markerTable) Func {
	return func(_ string, statusCode int, body, username string) bool {
		if statusCode != http.StatusOK {
			return false
		}

		lower := strings.ToLower(body)
		for _, phrase := range table.notFound {
			if strings.Contains(lower, phrase) {
				return false
			}
		}

		if table.requireUsername && username != "" &&
			!strings.Contains(lower, strings.ToLower(username)) {
			return false
		}

		if len(table.positive) == 0 {
			return true
		}
		for _, marker := range table.positive {
			if strings.Contains(lower, marker) {
				return true
			}
		}
		return false
	}
}

// Redirect builds the redirect-based strategy: 404 decides false, any
// other status may still be an existing profile unless a not-found
// phrase appears in a 200 body.
func Redirect(table markerTable) Func {
	return func(_ string, statusCode int, body, _ string) bool {
		if statusCode == http.StatusNotFound {
			return false
		}
		if statusCode != http.StatusOK {
			// Redirect chains and interstitials still count as existing.
			return true
		}

		lower := strings.ToLower(body)
		for _, phrase := range table.notFound {
			if strings.Contains(lower, phrase) {
				return false
			}
		}
		return true
	}
}

// platformMarkers holds the marker tables for the built-in platform
// strategies. All phrases are lowercase; bodies are lowercased before
// matching.
var platformMarkers = map[string]markerTable{
	"github_check": {
		notFound: []string{
			"this is not the web page you are looking for",
			"page not found",
			"github could not find that page",
		},
		positive: []string{
			`itemprop="name"`,
			"vcard-names-container",
			"js-profile-editable-area",
			"p-nickname vcard-username",
			"avatars.githubusercontent.com",
		},
		requireUsername: true,
	},
	"stackoverflow_check": {
		notFound: []string{"page not found", "404 - page not found"},
		positive: []string{"user-card", "user-avatar", "user-details"},
	},
	"twitter_check": {
		notFound: []string{"this account doesn't exist", "account suspended"},
	},
	"instagram_check": {
		notFound: []string{"sorry, this page isn't available"},
	},
	"reddit_check": {
		notFound: []string{"page not found", "this user has deleted"},
	},
	"artstation_check": {
		notFound: []string{"doesn't exist", "page not found"},
	},
	"deviantart_check": {
		notFound: []string{"deviation you are looking for", "does not exist"},
	},
	"flickr_check": {
		notFound: []string{"no longer active", "does not exist"},
	},
	"500px_check": {
		notFound: []string{"could not be found"},
	},
	"bandcamp_check": {
		notFound: []string{"couldn't find that one"},
	},
	"keybase_check": {
		notFound: []string{"user not found"},
	},
}

// gitlabMarkers is the not-found table for the redirect-based GitLab
// strategy, kept out of platformMarkers because it is not 200-gated.
var gitlabMarkers = markerTable{
	notFound: []string{"page could not be found"},
}
