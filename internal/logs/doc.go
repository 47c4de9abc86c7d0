// Package logs reads the cratedig log file for the `show` command.
//
// Tail returns the trailing lines of a file with bounded memory; Follow polls
// from an offset and emits lines as they are appended until the context ends.
// A missing file is treated as empty so `show` works before the first run has
// written anything.
package logs
