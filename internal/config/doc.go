// Package config holds facetrace's runtime configuration and the
// platform template file format. Configuration is built once from CLI
// flags, validated up front, and passed through the application by
// dependency injection; there is no global mutable state.
package config
