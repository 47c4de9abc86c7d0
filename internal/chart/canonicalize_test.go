package chart

import (
	"reflect"
	"testing"
)

func TestCanonicalizeProducesKeysOnBothSides(t *testing.T) {
	records := []Record{
		{URL: "https://open.spotify.com/track/aaa", Title: "Dance Monkey", Artist: "Tones and I"},
		{URL: "https://open.spotify.com/track/aaa", Title: "Dance Monkey ", Artist: "Tones And I"},
		{URL: "https://open.spotify.com/track/bbb", Title: "Dance Monkey", Artist: "Tones and I"},
		{URL: "https://open.spotify.com/track/ccc", Title: "bad guy", Artist: "Billie Eilish"},
		{URL: "https://open.spotify.com/track/ccc", Title: "bad guy", Artist: "Billie Eilish"},
	}

	out := Canonicalize(records)

	urls := make(map[string]int)
	pairs := make(map[[2]string]int)
	for _, rec := range out {
		urls[rec.URL]++
		pairs[[2]string{rec.Title, rec.Artist}]++
	}
	for url, n := range urls {
		if n > 1 {
			t.Fatalf("url %q appears %d times", url, n)
		}
	}
	for pair, n := range pairs {
		if n > 1 {
			t.Fatalf("pair %v appears %d times", pair, n)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	records := []Record{
		{URL: "u1", Title: "Song A", Artist: "Artist A"},
		{URL: "u1", Title: "song a", Artist: "Artist A"},
		{URL: "u2", Title: "Song A", Artist: "Artist A"},
		{URL: "u3", Title: "Song B", Artist: "Artist B"},
	}

	once := Canonicalize(records)
	twice := Canonicalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected idempotent output, got %v then %v", once, twice)
	}
}

func TestCanonicalizeMetadataDriftFirstSeenWins(t *testing.T) {
	records := []Record{
		{URL: "u1", Title: "Levitating", Artist: "Dua Lipa"},
		{URL: "u1", Title: "Levitating (feat. DaBaby)", Artist: "Dua Lipa"},
	}

	out := Canonicalize(records)
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].Title != "Levitating" || out[0].Artist != "Dua Lipa" {
		t.Fatalf("expected first-seen metadata, got %+v", out[0])
	}
}

func TestCanonicalizeReReleaseFirstSeenWins(t *testing.T) {
	records := []Record{
		{URL: "u1", Title: "Snowman", Artist: "Sia"},
		{URL: "u2", Title: "Snowman", Artist: "Sia"},
	}

	out := Canonicalize(records)
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0].URL != "u1" {
		t.Fatalf("expected first-seen url, got %+v", out[0])
	}
}

func TestCanonicalizePassOrder(t *testing.T) {
	// u2's second spelling collapses onto u2's first, which then collapses
	// onto u1. Grouping by pair before normalizing titles would keep the
	// variant spelling as its own record.
	records := []Record{
		{URL: "u1", Title: "Halo", Artist: "Beyoncé"},
		{URL: "u2", Title: "Halo", Artist: "Beyoncé"},
		{URL: "u2", Title: "Halo - Live", Artist: "Beyoncé"},
	}

	out := Canonicalize(records)
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %v", out)
	}
	if out[0].URL != "u1" || out[0].Title != "Halo" {
		t.Fatalf("unexpected canonical record: %+v", out[0])
	}
}

func TestCanonicalizePreservesSourceOrder(t *testing.T) {
	records := []Record{
		{URL: "u3", Title: "C", Artist: "c"},
		{URL: "u1", Title: "A", Artist: "a"},
		{URL: "u2", Title: "B", Artist: "b"},
	}

	out := Canonicalize(records)
	want := []string{"u3", "u1", "u2"}
	if len(out) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(out))
	}
	for i, url := range want {
		if out[i].URL != url {
			t.Fatalf("position %d: expected %s, got %s", i, url, out[i].URL)
		}
	}
}

func TestCanonicalizeEmpty(t *testing.T) {
	if out := Canonicalize(nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}

func TestDriftReportsOnlyAmbiguousURLs(t *testing.T) {
	records := []Record{
		{URL: "u1", Title: "Stay", Artist: "Kid LAROI"},
		{URL: "u1", Title: "STAY (with Justin Bieber)", Artist: "The Kid LAROI"},
		{URL: "u1", Title: "Stay", Artist: "Kid LAROI"},
		{URL: "u2", Title: "Clean", Artist: "Solo"},
	}

	out := Drift(records)
	if len(out) != 2 {
		t.Fatalf("expected 2 drift rows, got %v", out)
	}
	for _, rec := range out {
		if rec.URL != "u1" {
			t.Fatalf("expected only ambiguous url in report, got %+v", rec)
		}
	}
}

func TestDriftSorted(t *testing.T) {
	records := []Record{
		{URL: "u2", Title: "Zeta", Artist: "B"},
		{URL: "u2", Title: "Alpha", Artist: "B"},
		{URL: "u1", Title: "Mid", Artist: "A"},
		{URL: "u1", Title: "mid", Artist: "A2"},
	}

	out := Drift(records)
	if len(out) != 4 {
		t.Fatalf("expected 4 drift rows, got %v", out)
	}
	if out[0].URL != "u1" || out[2].URL != "u2" {
		t.Fatalf("expected rows grouped by url, got %v", out)
	}
	if out[2].Title != "Alpha" {
		t.Fatalf("expected titles sorted within url, got %v", out)
	}
}

func TestTrackIDDerivation(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://open.spotify.com/track/6rqhFgbbKwnb9MLmUQDhG6", "6rqhFgbbKwnb9MLmUQDhG6"},
		{"no-slash", "no-slash"},
		{"trailing/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		rec := Record{URL: tt.url}
		if got := rec.TrackID(); got != tt.want {
			t.Errorf("TrackID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestRecordQuery(t *testing.T) {
	rec := Record{Title: " Blinding  Lights ", Artist: "The Weeknd"}
	if got := rec.Query(); got != "Blinding Lights The Weeknd" {
		t.Fatalf("unexpected query: %q", got)
	}
}
