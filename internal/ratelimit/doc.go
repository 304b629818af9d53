// Package ratelimit provides a per-domain minimum-interval gate used
// to space out probe requests against the same host. Different domains
// never block each other.
package ratelimit
