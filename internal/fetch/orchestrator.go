package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cratedig/internal/chart"
	"cratedig/internal/fileutil"
	"cratedig/internal/logging"
	"cratedig/internal/services"
)

// Fetcher fetches one track. *Worker is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, rec chart.Record) Outcome
}

// Report aggregates one orchestrated fetch run.
type Report struct {
	Requested int
	Succeeded int
	Failed    []Outcome
	Elapsed   time.Duration
}

// FailedCount returns the number of failed attempts.
func (r Report) FailedCount() int {
	return len(r.Failed)
}

// Completed returns how many attempts finished, in either direction.
func (r Report) Completed() int {
	return r.Succeeded + len(r.Failed)
}

// Orchestrator runs track fetches across a bounded worker pool.
type Orchestrator struct {
	fetcher      Fetcher
	workers      int
	manifestPath string
	logger       *slog.Logger
	sampler      *logging.ProgressSampler
}

// NewOrchestrator constructs an orchestrator. The manifest path may be
// empty to disable failure manifest handling.
func NewOrchestrator(fetcher Fetcher, workers int, manifestPath string, logger *slog.Logger) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{
		fetcher:      fetcher,
		workers:      workers,
		manifestPath: manifestPath,
		logger:       logging.NewComponentLogger(logger, "fetch"),
		sampler:      logging.NewProgressSampler(0),
	}
}

// Run fetches every record, never holding more than the configured
// number of attempts in flight. Failures are collected in completion
// order and written to the failure manifest; a clean run removes any
// manifest left over from an earlier one. On cancellation the report
// covers the attempts that finished before shutdown.
func (o *Orchestrator) Run(ctx context.Context, records []chart.Record) (Report, error) {
	start := time.Now()
	logger := logging.WithContext(ctx, o.logger)
	report := Report{Requested: len(records)}

	if len(records) == 0 {
		err := o.writeManifest(logger, nil)
		report.Elapsed = time.Since(start)
		return report, err
	}

	workers := o.workers
	if workers > len(records) {
		workers = len(records)
	}

	jobs := make(chan chart.Record)
	outcomes := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				outcomes <- o.fetcher.Fetch(ctx, rec)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rec := range records {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	completed := 0
	for outcome := range outcomes {
		completed++
		if outcome.Failed() {
			report.Failed = append(report.Failed, outcome)
			hint := "url is recorded in the failure manifest for the next run"
			if services.Fatal(outcome.Err) {
				hint = "source row cannot be fetched; fix the chart export entry"
			}
			logging.ErrorWithContext(logger, "track fetch failed", "fetch_item_failed",
				logging.String(logging.FieldTrackID, outcome.TrackID),
				logging.String("url", outcome.URL),
				logging.Error(outcome.Err),
				logging.String(logging.FieldErrorHint, hint),
			)
		} else {
			report.Succeeded++
		}
		if o.sampler.ShouldLog(completed, len(records)) {
			logger.Info("fetch progress",
				logging.Int("completed", completed),
				logging.Int("total", len(records)),
				logging.Int("failed", len(report.Failed)),
			)
		}
	}

	report.Elapsed = time.Since(start)

	if err := o.writeManifest(logger, report.Failed); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, services.Wrap(services.ErrTransient, "fetch", "run", "fetch run interrupted", err)
	}
	return report, nil
}

// writeManifest records failed source URLs one per line, in completion
// order, replacing whatever the previous run left. Zero failures clear
// the manifest so it always describes the latest run.
func (o *Orchestrator) writeManifest(logger *slog.Logger, failed []Outcome) error {
	if o.manifestPath == "" {
		return nil
	}
	if len(failed) == 0 {
		if err := os.Remove(o.manifestPath); err != nil && !os.IsNotExist(err) {
			return services.Wrap(services.ErrStorage, "fetch", "clear manifest", "failed to remove stale failure manifest", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(o.manifestPath), 0o755); err != nil {
		return services.Wrap(services.ErrStorage, "fetch", "write manifest", "failed to create manifest directory", err)
	}
	err := fileutil.WriteFileAtomic(o.manifestPath, 0o644, func(w io.Writer) error {
		for _, outcome := range failed {
			if _, err := fmt.Fprintln(w, outcome.URL); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return services.Wrap(services.ErrStorage, "fetch", "write manifest", "failed to write failure manifest", err)
	}
	logger.Info("wrote failure manifest",
		logging.String("path", o.manifestPath),
		logging.Int("failed", len(failed)),
	)
	return nil
}

// ReadManifest returns the URLs recorded by the last failing run. A
// missing manifest yields an empty list.
func ReadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrStorage, "fetch", "read manifest", "failed to read failure manifest", err)
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}
