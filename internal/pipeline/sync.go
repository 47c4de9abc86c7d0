package pipeline

import (
	"context"
	"log/slog"

	"cratedig/internal/catalog"
	"cratedig/internal/chart"
	"cratedig/internal/logging"
)

// SyncResult reports what a catalog sync found.
type SyncResult struct {
	Tracks  []chart.Record
	Drift   []chart.Record
	Synced  bool
	RawRows int
}

// SyncCatalog brings the catalog in line with the chart export at
// exportPath. The export is re-read and re-canonicalized only when its
// fingerprint differs from the one recorded by the last sync; otherwise
// the stored tracks and drift rows are returned as they are. RawRows is
// populated only when a sync actually ran.
func SyncCatalog(ctx context.Context, store *catalog.Store, exportPath string, logger *slog.Logger) (SyncResult, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "catalog"))

	fingerprint, err := catalog.SourceFingerprint(exportPath)
	if err != nil {
		return SyncResult{}, err
	}
	stored, err := store.Fingerprint(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	if stored == fingerprint {
		tracks, err := store.Tracks(ctx)
		if err != nil {
			return SyncResult{}, err
		}
		drift, err := store.Drift(ctx)
		if err != nil {
			return SyncResult{}, err
		}
		logger.Debug("chart export unchanged",
			logging.String("fingerprint", fingerprint),
			logging.Int("tracks", len(tracks)),
		)
		return SyncResult{Tracks: tracks, Drift: drift}, nil
	}

	records, err := chart.ReadRecordsFile(exportPath)
	if err != nil {
		return SyncResult{}, err
	}
	tracks := chart.Canonicalize(records)
	drift := chart.Drift(records)
	if err := store.Replace(ctx, tracks, drift, fingerprint); err != nil {
		return SyncResult{}, err
	}

	logger.Info("catalog synced",
		logging.Int("raw_rows", len(records)),
		logging.Int("tracks", len(tracks)),
		logging.Int("drift_rows", len(drift)),
		logging.String("fingerprint", fingerprint),
	)
	return SyncResult{Tracks: tracks, Drift: drift, Synced: true, RawRows: len(records)}, nil
}
