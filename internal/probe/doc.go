// Package probe performs the HTTP existence checks at the core of a
// hunt. A Worker probes one (username, platform) pair; the Orchestrator
// fans workers out over every pair with bounded concurrency and
// per-domain rate limiting, and guarantees exactly one result per pair.
package probe
