package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cratedig/internal/chart"
	"cratedig/internal/config"
	"cratedig/internal/library"
	"cratedig/internal/logging"
	"cratedig/internal/services"
	"cratedig/internal/services/ytdlp"
)

var (
	// ErrResolution tags failures while searching for a track's video.
	ErrResolution = errors.New("resolution error")
	// ErrDownload tags failures while downloading or extracting a clip.
	ErrDownload = errors.New("download error")
)

// Outcome records the result of one track fetch attempt.
type Outcome struct {
	TrackID string
	URL     string
	Err     error
}

// Failed reports whether the attempt ended in an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Worker fetches a single clip per call.
type Worker struct {
	media       ytdlp.Service
	library     *library.Library
	clipSeconds int
	format      string
	quality     string
	logger      *slog.Logger
}

// NewWorker constructs a worker bound to the given downloader and clip
// library.
func NewWorker(media ytdlp.Service, lib *library.Library, cfg config.Fetch, logger *slog.Logger) *Worker {
	clip := cfg.ClipSeconds
	if clip <= 0 {
		clip = 30
	}
	return &Worker{
		media:       media,
		library:     lib,
		clipSeconds: clip,
		format:      cfg.AudioFormat,
		quality:     cfg.AudioQuality,
		logger:      logging.NewComponentLogger(logger, "fetch"),
	}
}

// Fetch resolves and downloads the clip for one record. The returned
// outcome carries the record's track ID and source URL so callers can
// report failures without re-deriving them.
func (w *Worker) Fetch(ctx context.Context, rec chart.Record) Outcome {
	outcome := Outcome{TrackID: rec.TrackID(), URL: rec.URL}

	if outcome.TrackID == "" {
		outcome.Err = services.Wrap(services.ErrValidation, "fetch", "prepare", fmt.Sprintf("no track id in url %q", rec.URL), nil)
		return outcome
	}
	query := rec.Query()
	if query == "" {
		outcome.Err = services.Wrap(services.ErrValidation, "fetch", "prepare", fmt.Sprintf("track %s has no searchable metadata", outcome.TrackID), nil)
		return outcome
	}

	ctx = services.WithTrackID(ctx, outcome.TrackID)
	logger := logging.WithContext(ctx, w.logger)

	resolution, err := w.media.Resolve(ctx, query)
	if err != nil {
		outcome.Err = services.Wrap(ErrResolution, "fetch", "resolve", fmt.Sprintf("track %s", outcome.TrackID), err)
		return outcome
	}

	window := clipWindow(resolution.Duration, w.clipSeconds)
	logger.Debug("resolved track",
		logging.String("video_id", resolution.ID),
		logging.String("video_title", resolution.Title),
		logging.Float64("duration", resolution.Duration),
		logging.Int("clip_start", window.start),
		logging.Int("clip_end", window.end),
	)

	clip := ytdlp.Clip{
		URL:            resolution.WebpageURL,
		StartSecond:    window.start,
		EndSecond:      window.end,
		OutputTemplate: w.library.OutputTemplate(outcome.TrackID),
		Format:         w.format,
		Quality:        w.quality,
	}
	if err := w.media.Download(ctx, clip); err != nil {
		w.discardArtifacts(logger, outcome.TrackID)
		outcome.Err = services.Wrap(ErrDownload, "fetch", "download", fmt.Sprintf("track %s", outcome.TrackID), err)
		return outcome
	}

	if _, err := os.Stat(w.library.ClipPath(outcome.TrackID)); err != nil {
		w.discardArtifacts(logger, outcome.TrackID)
		outcome.Err = services.Wrap(ErrDownload, "fetch", "verify", fmt.Sprintf("track %s produced no %s clip", outcome.TrackID, w.format), err)
		return outcome
	}

	return outcome
}

// discardArtifacts removes whatever a failed attempt wrote so the next
// run sees the track as pending again.
func (w *Worker) discardArtifacts(logger *slog.Logger, trackID string) {
	if err := w.library.RemoveArtifacts(trackID); err != nil {
		logging.WarnWithContext(logger, "failed to clean up partial download", "fetch_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the track's files from the clip directory manually"),
		)
	}
}

type window struct {
	start int
	end   int
}

// clipWindow centers a clip-length window inside the video. Videos
// shorter than the clip are taken whole; unknown durations fall back to
// the leading clip-length window.
func clipWindow(durationSeconds float64, clipSeconds int) window {
	duration := int(durationSeconds)
	switch {
	case duration <= 0:
		return window{start: 0, end: clipSeconds}
	case duration <= clipSeconds:
		return window{start: 0, end: duration}
	default:
		start := (duration - clipSeconds) / 2
		return window{start: start, end: start + clipSeconds}
	}
}
