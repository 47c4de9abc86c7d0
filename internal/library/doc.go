// Package library manages the clip output directory.
//
// A track counts as complete when a file named after its track ID with
// the configured audio extension exists in the directory. The directory
// listing is the single source of truth for completion; no separate
// state file is kept, so deleting a clip naturally schedules the track
// for a fresh fetch on the next run.
package library
