package chart

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Canonicalize collapses the raw table into records where both the URL and
// the (title, artist) pair are keys. Two ordered passes, each first-seen
// wins in source order:
//
//  1. Every URL adopts the title/artist of its first row, eliminating
//     metadata drift within a URL.
//  2. Every (title, artist) pair, as rewritten by pass 1, adopts the URL of
//     its first row, eliminating re-release duplicates.
//
// Pass order matters: the second pass groups by the pairs the first pass
// produced. Output rows appear in first-occurrence order of their canonical
// URL, so the result is deterministic for a given input order.
func Canonicalize(records []Record) []Record {
	titles := make(map[string]pairKey, len(records))
	for _, rec := range records {
		if _, ok := titles[rec.URL]; !ok {
			titles[rec.URL] = rec.pair()
		}
	}

	urls := make(map[pairKey]string, len(titles))
	for _, rec := range records {
		pair := titles[rec.URL]
		if _, ok := urls[pair]; !ok {
			urls[pair] = rec.URL
		}
	}

	seen := make(map[string]struct{}, len(urls))
	out := make([]Record, 0, len(urls))
	for _, rec := range records {
		pair := titles[rec.URL]
		url := urls[pair]
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, Record{URL: url, Title: pair.title, Artist: pair.artist})
	}
	return out
}

// Drift returns every distinct (url, title, artist) triple whose URL carries
// more than one distinct (title, artist) spelling in the raw table. The
// result is sorted by URL, then title and artist under Unicode collation,
// ready for export.
func Drift(records []Record) []Record {
	pairs := make(map[string]map[pairKey]struct{})
	for _, rec := range records {
		set, ok := pairs[rec.URL]
		if !ok {
			set = make(map[pairKey]struct{}, 1)
			pairs[rec.URL] = set
		}
		set[rec.pair()] = struct{}{}
	}

	seen := make(map[Record]struct{})
	out := make([]Record, 0)
	for _, rec := range records {
		if len(pairs[rec.URL]) < 2 {
			continue
		}
		key := Record{URL: rec.URL, Title: rec.Title, Artist: rec.Artist}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	c := collate.New(language.Und)
	sort.Slice(out, func(i, j int) bool {
		if out[i].URL != out[j].URL {
			return out[i].URL < out[j].URL
		}
		if cmp := c.CompareString(out[i].Title, out[j].Title); cmp != 0 {
			return cmp < 0
		}
		return c.CompareString(out[i].Artist, out[j].Artist) < 0
	})
	return out
}
