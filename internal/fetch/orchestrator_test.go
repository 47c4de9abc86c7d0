package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cratedig/internal/chart"
	"cratedig/internal/logging"
	"cratedig/internal/services"
)

type fetcherFunc func(ctx context.Context, rec chart.Record) Outcome

func (f fetcherFunc) Fetch(ctx context.Context, rec chart.Record) Outcome {
	return f(ctx, rec)
}

func makeRecords(n int) []chart.Record {
	records := make([]chart.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, chart.Record{
			URL:    fmt.Sprintf("https://open.spotify.com/track/t%d", i),
			Title:  fmt.Sprintf("Track %d", i),
			Artist: "Artist",
		})
	}
	return records
}

func TestRunPartialFailuresProduceManifest(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "failed_urls.txt")
	failing := map[string]struct{}{"t3": {}, "t7": {}}

	fetcher := fetcherFunc(func(ctx context.Context, rec chart.Record) Outcome {
		outcome := Outcome{TrackID: rec.TrackID(), URL: rec.URL}
		if _, bad := failing[outcome.TrackID]; bad {
			outcome.Err = services.Wrap(ErrDownload, "fetch", "download", "track "+outcome.TrackID, errors.New("boom"))
		}
		return outcome
	})

	// Single worker keeps completion order equal to input order.
	orch := NewOrchestrator(fetcher, 1, manifestPath, logging.NewNop())
	report, err := orch.Run(context.Background(), makeRecords(10))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Requested != 10 {
		t.Errorf("expected 10 requested, got %d", report.Requested)
	}
	if report.Succeeded != 8 {
		t.Errorf("expected 8 succeeded, got %d", report.Succeeded)
	}
	if report.FailedCount() != 2 {
		t.Fatalf("expected 2 failures, got %d", report.FailedCount())
	}
	if report.Failed[0].TrackID != "t3" || report.Failed[1].TrackID != "t7" {
		t.Errorf("unexpected failure order: %+v", report.Failed)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("expected manifest file: %v", err)
	}
	want := "https://open.spotify.com/track/t3\nhttps://open.spotify.com/track/t7\n"
	if string(data) != want {
		t.Errorf("unexpected manifest contents:\n got %q\nwant %q", string(data), want)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	fetcher := fetcherFunc(func(ctx context.Context, rec chart.Record) Outcome {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return Outcome{TrackID: rec.TrackID(), URL: rec.URL}
	})

	orch := NewOrchestrator(fetcher, 4, "", logging.NewNop())
	report, err := orch.Run(context.Background(), makeRecords(20))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Succeeded != 20 {
		t.Errorf("expected 20 successes, got %d", report.Succeeded)
	}
	if peak > 4 {
		t.Errorf("concurrency exceeded pool size: peak %d", peak)
	}
	if peak < 2 {
		t.Errorf("expected parallel execution, peak was %d", peak)
	}
}

func TestRunCleanRunRemovesStaleManifest(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "failed_urls.txt")
	if err := os.WriteFile(manifestPath, []byte("https://old/run\n"), 0o644); err != nil {
		t.Fatalf("seed manifest failed: %v", err)
	}

	fetcher := fetcherFunc(func(ctx context.Context, rec chart.Record) Outcome {
		return Outcome{TrackID: rec.TrackID(), URL: rec.URL}
	})
	orch := NewOrchestrator(fetcher, 2, manifestPath, logging.NewNop())
	if _, err := orch.Run(context.Background(), makeRecords(3)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if _, err := os.Stat(manifestPath); !os.IsNotExist(err) {
		t.Fatalf("expected stale manifest removed, got err=%v", err)
	}
}

func TestRunEmptyInputClearsManifest(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "failed_urls.txt")
	if err := os.WriteFile(manifestPath, []byte("https://old/run\n"), 0o644); err != nil {
		t.Fatalf("seed manifest failed: %v", err)
	}

	orch := NewOrchestrator(fetcherFunc(func(ctx context.Context, rec chart.Record) Outcome {
		t.Error("fetcher must not run for empty input")
		return Outcome{}
	}), 2, manifestPath, logging.NewNop())

	report, err := orch.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Requested != 0 || report.Succeeded != 0 || report.FailedCount() != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if _, err := os.Stat(manifestPath); !os.IsNotExist(err) {
		t.Fatalf("expected stale manifest removed, got err=%v", err)
	}
}

func TestRunCancellationReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	fetcher := fetcherFunc(func(ctx context.Context, rec chart.Record) Outcome {
		calls++
		if calls == 2 {
			cancel()
		}
		return Outcome{TrackID: rec.TrackID(), URL: rec.URL}
	})

	orch := NewOrchestrator(fetcher, 1, "", logging.NewNop())
	report, err := orch.Run(ctx, makeRecords(10))
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got: %v", err)
	}
	if report.Completed() < 2 || report.Completed() >= 10 {
		t.Errorf("expected partial completion, got %d of 10", report.Completed())
	}
}

func TestReadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_urls.txt")

	urls, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest on missing file: %v", err)
	}
	if urls != nil {
		t.Errorf("expected nil for missing manifest, got %v", urls)
	}

	content := "https://open.spotify.com/track/a\nhttps://open.spotify.com/track/b\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	urls, err = ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://open.spotify.com/track/a" || urls[1] != "https://open.spotify.com/track/b" {
		t.Errorf("unexpected manifest urls %v", urls)
	}
}
