package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/osintlab/facetrace/internal/model"
)

// dbFileName is the SQLite file created inside the data directory.
const dbFileName = "facetrace.db"

// HuntDB stores probe results across hunts. One row per
// (username, platform) pair; re-probing the pair replaces the row.
type HuntDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HuntDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Recommended: hunts write
	// from multiple goroutines while reports read.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HuntDB in the given directory.
func Open(dbDir string, opts Options) (*HuntDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating
	// a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HuntDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HuntDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (hdb *HuntDB) createTables() error {
	schema := `
	-- Probe results, one row per (username, platform) pair.
	CREATE TABLE IF NOT EXISTS probes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		platform TEXT NOT NULL,
		exists_flag INTEGER NOT NULL,
		status_code INTEGER,
		final_url TEXT,
		candidates TEXT,
		error_json TEXT,
		content_length INTEGER,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(username, platform)
	);

	CREATE INDEX IF NOT EXISTS idx_probes_username ON probes(username);
	CREATE INDEX IF NOT EXISTS idx_probes_timestamp ON probes(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveProbeResult inserts or replaces the stored result for the pair.
func (hdb *HuntDB) SaveProbeResult(ctx context.Context, result *model.ProbeResult) error {
	candidatesJSON, err := json.Marshal(result.CandidateImageURLs)
	if err != nil {
		return fmt.Errorf("serialize candidates: %w", err)
	}

	var errorJSON []byte
	if result.Error != nil {
		errorJSON, err = json.Marshal(result.Error)
		if err != nil {
			return fmt.Errorf("serialize probe error: %w", err)
		}
	}

	query := `
	INSERT INTO probes (username, platform, exists_flag, status_code, final_url, candidates, error_json, content_length)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(username, platform) DO UPDATE SET
		exists_flag = excluded.exists_flag,
		status_code = excluded.status_code,
		final_url = excluded.final_url,
		candidates = excluded.candidates,
		error_json = excluded.error_json,
		content_length = excluded.content_length,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err = hdb.db.ExecContext(ctx, query,
		result.Username,
		result.PlatformID,
		boolToInt(result.Exists),
		result.StatusCode,
		result.FinalURL,
		string(candidatesJSON),
		string(errorJSON),
		result.ContentLength,
	)
	if err != nil {
		return fmt.Errorf("save probe result: %w", err)
	}

	return nil
}

// SaveResults stores every result from a crawl.
func (hdb *HuntDB) SaveResults(ctx context.Context, results map[string][]*model.ProbeResult) error {
	for _, rs := range results {
		for _, r := range rs {
			if err := hdb.SaveProbeResult(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetProbeResult retrieves the stored result and its timestamp for a
// pair. Returns nil without error when the pair has never been probed.
func (hdb *HuntDB) GetProbeResult(ctx context.Context, username, platformID string) (*model.ProbeResult, time.Time, error) {
	query := `
	SELECT exists_flag, status_code, final_url, candidates, error_json, content_length, timestamp
	FROM probes
	WHERE username = ? AND platform = ?
	`

	var (
		existsFlag    int
		statusCode    sql.NullInt64
		finalURL      sql.NullString
		candidates    sql.NullString
		errorJSON     sql.NullString
		contentLength sql.NullInt64
		timestamp     string
	)

	err := hdb.db.QueryRowContext(ctx, query, username, platformID).Scan(
		&existsFlag, &statusCode, &finalURL, &candidates, &errorJSON, &contentLength, &timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get probe result: %w", err)
	}

	result := &model.ProbeResult{
		Username:      username,
		PlatformID:    platformID,
		Exists:        existsFlag != 0,
		StatusCode:    int(statusCode.Int64),
		FinalURL:      finalURL.String,
		ContentLength: int(contentLength.Int64),
	}

	if candidates.Valid && candidates.String != "" {
		if err := json.Unmarshal([]byte(candidates.String), &result.CandidateImageURLs); err != nil {
			return nil, time.Time{}, fmt.Errorf("parse candidates: %w", err)
		}
	}
	if errorJSON.Valid && errorJSON.String != "" {
		var perr model.ProbeError
		if err := json.Unmarshal([]byte(errorJSON.String), &perr); err != nil {
			return nil, time.Time{}, fmt.Errorf("parse probe error: %w", err)
		}
		result.Error = &perr
	}

	return result, parseTimestamp(timestamp), nil
}

// RecentResult returns the stored result for the pair when it is
// younger than window, or nil when the pair must be probed again.
// This satisfies the orchestrator's history interface.
func (hdb *HuntDB) RecentResult(ctx context.Context, username, platformID string, window time.Duration) (*model.ProbeResult, error) {
	query := `
	SELECT COUNT(*) FROM probes
	WHERE username = ? AND platform = ? AND timestamp > datetime('now', ?)
	`
	modifier := fmt.Sprintf("-%d seconds", int(window.Seconds()))

	var count int
	if err := hdb.db.QueryRowContext(ctx, query, username, platformID, modifier).Scan(&count); err != nil {
		return nil, fmt.Errorf("check recent probe: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	result, _, err := hdb.GetProbeResult(ctx, username, platformID)
	return result, err
}

// ResultsForUsername retrieves all stored results for one username,
// ordered by platform id.
func (hdb *HuntDB) ResultsForUsername(ctx context.Context, username string) ([]*model.ProbeResult, error) {
	query := `
	SELECT platform FROM probes
	WHERE username = ?
	ORDER BY platform
	`

	rows, err := hdb.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var platforms []string
	for rows.Next() {
		var platform string
		if err := rows.Scan(&platform); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		platforms = append(platforms, platform)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]*model.ProbeResult, 0, len(platforms))
	for _, platform := range platforms {
		result, _, err := hdb.GetProbeResult(ctx, username, platform)
		if err != nil {
			return nil, err
		}
		if result != nil {
			results = append(results, result)
		}
	}

	return results, nil
}

// ListUsernames returns every username with stored results.
func (hdb *HuntDB) ListUsernames(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT username FROM probes
	ORDER BY username
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		usernames = append(usernames, username)
	}

	return usernames, rows.Err()
}

// boolToInt converts for SQLite, which has no boolean type.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses a SQLite timestamp, returning zero time when
// no known format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
