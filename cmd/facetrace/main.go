// Package main provides the entry point for the facetrace CLI.
//
// Facetrace hunts usernames across public platforms, extracts avatar
// candidates from the profiles it finds, and maintains a searchable
// face index built from those avatars.
//
// Usage:
//
//	facetrace hunt <username> [username...]
//	facetrace search <image>
//
// See --help for all available options.
package main

// main is the entry point for facetrace.
func main() {
	Execute()
}
