// Package textutil provides text normalization helpers for chart metadata.
//
// Chart exports carry titles and artist names with inconsistent whitespace
// and the occasional control character that leaks into search queries and
// log lines. The helpers here collapse that noise without altering the
// visible text, so queries stay faithful to the source metadata while
// remaining safe to hand to external tools.
package textutil
