// Package chart models chart export records and owns the canonicalization
// that turns the noisy (title, artist, url) table into a clean 1:1 mapping.
//
// Chart exports accumulate two kinds of noise: metadata drift, where one
// track URL appears under several title/artist spellings, and re-release
// duplication, where one title/artist pair appears under several URLs.
// Canonicalize resolves both with two ordered passes; Drift reports the
// URLs whose metadata varied so the collapse can be audited.
package chart
