// Package database provides SQLite-based storage for probe history.
// Stored results let repeated hunts skip platforms probed recently,
// which matters: re-probing the same profiles in quick succession is
// exactly the traffic pattern anti-abuse systems look for.
package database
