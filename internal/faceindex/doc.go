// Package faceindex stores face embeddings and answers nearest-match
// queries over them. The index is append-only in memory and persists
// to a single JSON file, which keeps it portable between machines and
// easy to inspect by hand.
package faceindex
