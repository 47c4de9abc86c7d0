package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cratedig/internal/chart"
	"cratedig/internal/services"
)

// Store provides SQLite-backed persistence for canonical tracks.
type Store struct {
	db   *sql.DB
	path string
}

// Summary describes the catalog contents for status reporting.
type Summary struct {
	Tracks      int
	DriftRows   int
	Fingerprint string
	SyncedAt    time.Time
}

// Open creates or opens a catalog database at the configured path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "catalog path is not configured", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "failed to create catalog directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "failed to open database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", fmt.Sprintf("failed to apply %s", pragma), err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "failed to apply schema", err)
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) applySchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tracks (
    position INTEGER PRIMARY KEY,
    track_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    artist TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drift_rows (
    position INTEGER PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    artist TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    fingerprint TEXT NOT NULL,
    synced_at TEXT NOT NULL
);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Replace swaps the catalog contents for a fresh canonicalization result.
// Track order is preserved so later reads replay the canonical sequence.
func (s *Store) Replace(ctx context.Context, tracks, drift []chart.Record, fingerprint string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tracks"); err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to clear tracks", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM drift_rows"); err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to clear drift rows", err)
	}

	trackStmt, err := tx.PrepareContext(ctx, "INSERT INTO tracks (position, track_id, url, title, artist) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to prepare track insert", err)
	}
	defer trackStmt.Close()
	for i, rec := range tracks {
		if _, err := trackStmt.ExecContext(ctx, i, rec.TrackID(), rec.URL, rec.Title, rec.Artist); err != nil {
			return services.Wrap(services.ErrTransient, "catalog", "replace", fmt.Sprintf("failed to insert track %d", i), err)
		}
	}

	driftStmt, err := tx.PrepareContext(ctx, "INSERT INTO drift_rows (position, url, title, artist) VALUES (?, ?, ?, ?)")
	if err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to prepare drift insert", err)
	}
	defer driftStmt.Close()
	for i, rec := range drift {
		if _, err := driftStmt.ExecContext(ctx, i, rec.URL, rec.Title, rec.Artist); err != nil {
			return services.Wrap(services.ErrTransient, "catalog", "replace", fmt.Sprintf("failed to insert drift row %d", i), err)
		}
	}

	syncedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO sync_meta (id, fingerprint, synced_at) VALUES (1, ?, ?)", fingerprint, syncedAt); err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to record sync metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrTransient, "catalog", "replace", "failed to commit transaction", err)
	}
	return nil
}

// Tracks returns the canonical tracks in their recorded order.
func (s *Store) Tracks(ctx context.Context) ([]chart.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT url, title, artist FROM tracks ORDER BY position")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "catalog", "tracks", "query failed", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Drift returns the recorded metadata drift rows in order.
func (s *Store) Drift(ctx context.Context) ([]chart.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT url, title, artist FROM drift_rows ORDER BY position")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "catalog", "drift", "query failed", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]chart.Record, error) {
	var records []chart.Record
	for rows.Next() {
		var rec chart.Record
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.Artist); err != nil {
			return nil, services.Wrap(services.ErrTransient, "catalog", "scan", "failed to scan record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "catalog", "scan", "row iteration failed", err)
	}
	return records, nil
}

// Fingerprint returns the source fingerprint of the last sync, or the
// empty string when the catalog has never been synced.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	var fingerprint string
	err := s.db.QueryRowContext(ctx, "SELECT fingerprint FROM sync_meta WHERE id = 1").Scan(&fingerprint)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "catalog", "fingerprint", "query failed", err)
	}
	return fingerprint, nil
}

// Summarize reports catalog counts and the last sync metadata.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var summary Summary
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracks").Scan(&summary.Tracks); err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "catalog", "summarize", "failed to count tracks", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM drift_rows").Scan(&summary.DriftRows); err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "catalog", "summarize", "failed to count drift rows", err)
	}

	var syncedAt string
	err := s.db.QueryRowContext(ctx, "SELECT fingerprint, synced_at FROM sync_meta WHERE id = 1").Scan(&summary.Fingerprint, &syncedAt)
	if err == sql.ErrNoRows {
		return summary, nil
	}
	if err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "catalog", "summarize", "failed to read sync metadata", err)
	}
	summary.SyncedAt = parseTimeString(syncedAt)
	return summary, nil
}

func parseTimeString(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return parsed
	}
	return time.Time{}
}

// SourceFingerprint derives a cheap change marker for the chart export
// from its size and modification time. Reading multi-gigabyte exports
// to hash them would dominate run time for no extra safety.
func SourceFingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "catalog", "fingerprint source", "failed to stat chart export", err)
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UTC().UnixNano()), nil
}
