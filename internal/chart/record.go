package chart

import (
	"strings"

	"cratedig/internal/textutil"
)

// Record is one (url, title, artist) row from the chart export. Values are
// kept verbatim; canonicalization depends on exact equality, so no trimming
// or case folding happens here.
type Record struct {
	URL    string
	Title  string
	Artist string
}

// TrackID derives the storage identifier from the record's URL: the text
// after the last slash. Returns the whole URL when no slash is present and
// "" for an empty URL; callers treat an empty ID as unfetchable.
func (r Record) TrackID() string {
	if i := strings.LastIndexByte(r.URL, '/'); i >= 0 {
		return r.URL[i+1:]
	}
	return r.URL
}

// Query builds the search query handed to the resolver.
func (r Record) Query() string {
	return textutil.CleanQuery(r.Title, r.Artist)
}

type pairKey struct {
	title  string
	artist string
}

func (r Record) pair() pairKey {
	return pairKey{title: r.Title, artist: r.Artist}
}
