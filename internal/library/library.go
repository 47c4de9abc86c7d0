package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cratedig/internal/chart"
	"cratedig/internal/services"
)

// Library tracks which clips exist under the output directory.
type Library struct {
	root string
	ext  string
}

// Stats summarizes the clip directory contents.
type Stats struct {
	Clips      int
	TotalBytes int64
}

// New returns a library rooted at dir storing clips with the given audio
// format extension (without the leading dot).
func New(dir, format string) *Library {
	format = strings.TrimPrefix(strings.TrimSpace(format), ".")
	return &Library{root: dir, ext: "." + format}
}

// Root returns the clip directory path.
func (l *Library) Root() string {
	return l.root
}

// Ensure creates the clip directory if it does not exist.
func (l *Library) Ensure() error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "library", "ensure", "failed to create clip directory", err)
	}
	return nil
}

// ClipPath returns the final path a completed clip occupies.
func (l *Library) ClipPath(trackID string) string {
	return filepath.Join(l.root, trackID+l.ext)
}

// OutputTemplate returns the download output template for a track. The
// extension placeholder is filled in by the downloader after transcoding.
func (l *Library) OutputTemplate(trackID string) string {
	return filepath.Join(l.root, trackID+".%(ext)s")
}

// Completed returns the set of track IDs that already have a clip with
// the configured extension. A missing directory yields an empty set.
func (l *Library) Completed() (map[string]struct{}, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, services.Wrap(services.ErrStorage, "library", "completed", "failed to list clip directory", err)
	}

	done := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, l.ext) {
			continue
		}
		id := strings.TrimSuffix(name, l.ext)
		if id == "" {
			continue
		}
		done[id] = struct{}{}
	}
	return done, nil
}

// Pending filters records down to those without an existing clip,
// preserving order. Records whose URL yields an empty track ID are
// skipped as unfetchable. The second return holds the count of records
// already satisfied by the directory.
func (l *Library) Pending(records []chart.Record) ([]chart.Record, int, error) {
	done, err := l.Completed()
	if err != nil {
		return nil, 0, err
	}

	pending := make([]chart.Record, 0, len(records))
	existing := 0
	for _, rec := range records {
		id := rec.TrackID()
		if id == "" {
			continue
		}
		if _, ok := done[id]; ok {
			existing++
			continue
		}
		pending = append(pending, rec)
	}
	return pending, existing, nil
}

// RemoveArtifacts deletes every file the track ID produced, including
// partial downloads with intermediate extensions. Failed fetches must
// not leave files behind that a later run would mistake for clips.
func (l *Library) RemoveArtifacts(trackID string) error {
	if strings.TrimSpace(trackID) == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(l.root, trackID+".*"))
	if err != nil {
		return services.Wrap(services.ErrStorage, "library", "remove artifacts", fmt.Sprintf("bad artifact pattern for %s", trackID), err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return services.Wrap(services.ErrStorage, "library", "remove artifacts", fmt.Sprintf("failed to remove %s", match), err)
		}
	}
	return nil
}

// Stats reports the number of completed clips and their total size.
func (l *Library) Stats() (Stats, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, services.Wrap(services.ErrStorage, "library", "stats", "failed to list clip directory", err)
	}

	var stats Stats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), l.ext) {
			continue
		}
		stats.Clips++
		if info, err := entry.Info(); err == nil {
			stats.TotalBytes += info.Size()
		}
	}
	return stats, nil
}
