// Package strategy decides whether an HTTP response represents an
// existing profile page. Strategies are pure functions registered by
// string id; platform templates reference them by id and unknown ids
// fall back to the default status-code check.
package strategy
