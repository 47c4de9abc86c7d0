package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cratedig/internal/catalog"
	"cratedig/internal/config"
	"cratedig/internal/dataset"
	"cratedig/internal/fetch"
	"cratedig/internal/library"
	"cratedig/internal/logging"
	"cratedig/internal/notifications"
	"cratedig/internal/services"
	"cratedig/internal/services/ytdlp"
)

// Options overrides run collaborators, mainly for tests. Zero values fall
// back to the production implementations built from configuration.
type Options struct {
	Media    ytdlp.Service
	Source   dataset.Source
	Notifier notifications.Service
	Workers  int
}

// Result summarizes one run. On a failed run it carries whatever the run
// completed before the error.
type Result struct {
	RunID       string
	DatasetPath string
	Synced      bool
	Tracks      int
	DriftRows   int
	Existing    int
	Pending     int
	Report      fetch.Report
	Duration    time.Duration
}

// Run executes the full pipeline: chart export, catalog sync, pending
// scan, and the fetch pool. An exclusive lock under the data directory
// rejects overlapping runs. Notifications fire only when there was work
// to do, so no-op runs stay quiet.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (Result, error) {
	start := time.Now()
	var result Result
	if cfg == nil {
		return result, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "failed to create working directories", err)
	}

	runLock := flock.New(cfg.LockPath())
	ok, err := runLock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return result, errors.New("another cratedig run is already in progress")
	}
	defer func() {
		if err := runLock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	result.RunID = uuid.NewString()
	ctx = services.WithRunID(ctx, result.RunID)
	runLogger := logging.WithContext(ctx, logger)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg.Notifications)
	}
	notifyError := func(failure error, label string) {
		if err := notifier.NotifyError(ctx, failure, label); err != nil {
			runLogger.Warn("failed to send error notification", logging.Error(err))
		}
	}

	source := opts.Source
	if source == nil {
		source = dataset.NewManager(cfg, logger)
	}
	datasetPath, err := source.Ensure(services.WithStage(ctx, "dataset"))
	if err != nil {
		notifyError(err, "chart export download")
		return result, err
	}
	result.DatasetPath = datasetPath

	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		notifyError(err, "catalog")
		return result, err
	}
	defer store.Close()

	sync, err := SyncCatalog(services.WithStage(ctx, "canonicalize"), store, datasetPath, logger)
	if err != nil {
		notifyError(err, "catalog sync")
		return result, err
	}
	result.Synced = sync.Synced
	result.Tracks = len(sync.Tracks)
	result.DriftRows = len(sync.Drift)

	lib := library.New(cfg.Paths.ClipsDir, cfg.Fetch.AudioFormat)
	if err := lib.Ensure(); err != nil {
		notifyError(err, "clip library")
		return result, err
	}
	pending, existing, err := lib.Pending(sync.Tracks)
	if err != nil {
		notifyError(err, "clip library")
		return result, err
	}
	result.Existing = existing
	result.Pending = len(pending)

	runLogger.Info("run starting",
		logging.Int("tracks", result.Tracks),
		logging.Int("existing", existing),
		logging.Int("pending", len(pending)),
	)

	media := opts.Media
	if media == nil {
		media, err = ytdlp.New(cfg.Fetch.Binary, cfg.Fetch.ResolveTimeout, cfg.Fetch.DownloadTimeout)
		if err != nil {
			return result, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "failed to build downloader", err)
		}
	}

	if len(pending) > 0 {
		if err := notifier.NotifyRunStarted(ctx, len(pending)); err != nil {
			runLogger.Warn("failed to send run start notification", logging.Error(err))
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.Fetch.Workers
	}
	worker := fetch.NewWorker(media, lib, cfg.Fetch, logger)
	orchestrator := fetch.NewOrchestrator(worker, workers, cfg.ManifestPath(), logger)

	report, err := orchestrator.Run(services.WithStage(ctx, "fetch"), pending)
	result.Report = report
	result.Duration = time.Since(start)
	if err != nil {
		notifyError(err, "fetch run")
		return result, err
	}

	if len(pending) > 0 {
		if err := notifier.NotifyRunCompleted(ctx, report.Succeeded, report.FailedCount(), result.Duration); err != nil {
			runLogger.Warn("failed to send run completion notification", logging.Error(err))
		}
	}

	runLogger.Info("run complete",
		logging.Int("fetched", report.Succeeded),
		logging.Int("failed", report.FailedCount()),
		logging.Int("existing", existing),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}
