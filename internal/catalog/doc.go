// Package catalog persists the canonicalized track table in SQLite.
//
// The catalog is a cache of the most recent canonicalization run, not a
// job queue: the clip directory listing remains the authority on which
// tracks are complete. Storing the canonical rows lets the CLI inspect
// and export them without re-reading the multi-gigabyte chart export,
// and the recorded source fingerprint lets a run skip canonicalization
// entirely when the export file has not changed.
package catalog
