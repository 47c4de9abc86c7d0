package ytdlp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cratedig/internal/services"
	"cratedig/internal/services/ytdlp"
)

type stubExecutor struct {
	lines []string
	err   error
	calls int
	args  [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.calls++
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	if onStdout != nil {
		for _, line := range s.lines {
			onStdout(line)
		}
	}
	return s.err
}

func newTestClient(t *testing.T, exec ytdlp.Executor) *ytdlp.Client {
	t.Helper()
	client, err := ytdlp.New("yt-dlp", 0, 0, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ytdlp.New("  ", 0, 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestResolveParsesMetadataDump(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		"[youtube:search] query: Downloading search results",
		`{"id":"dQw4w9WgXcQ","title":"Never Gonna Give You Up","webpage_url":"https://www.youtube.com/watch?v=dQw4w9WgXcQ","duration":213.0}`,
	}}
	client := newTestClient(t, exec)

	resolution, err := client.Resolve(context.Background(), "Never Gonna Give You Up Rick Astley")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolution.ID != "dQw4w9WgXcQ" {
		t.Errorf("unexpected id %q", resolution.ID)
	}
	if resolution.WebpageURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("unexpected webpage url %q", resolution.WebpageURL)
	}
	if resolution.Duration != 213 {
		t.Errorf("unexpected duration %v", resolution.Duration)
	}

	if exec.calls != 1 {
		t.Fatalf("expected 1 invocation, got %d", exec.calls)
	}
	args := exec.args[0]
	want := []string{
		"--no-warnings",
		"--skip-download",
		"--dump-json",
		"--no-playlist",
		"ytsearch1:Never Gonna Give You Up Rick Astley",
	}
	if !equalStrings(args, want) {
		t.Fatalf("unexpected args: got %v want %v", args, want)
	}
}

func TestResolveNoResult(t *testing.T) {
	client := newTestClient(t, &stubExecutor{lines: []string{"[youtube:search] query: no results"}})

	_, err := client.Resolve(context.Background(), "gibberish query")
	if err == nil {
		t.Fatal("expected error when search yields nothing")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got: %v", err)
	}
}

func TestResolveExecutorError(t *testing.T) {
	client := newTestClient(t, &stubExecutor{err: errors.New("exit status 1")})

	_, err := client.Resolve(context.Background(), "some track")
	if err == nil {
		t.Fatal("expected error from executor")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got: %v", err)
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	client := newTestClient(t, &stubExecutor{})

	_, err := client.Resolve(context.Background(), "   ")
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
}

type blockingExecutor struct{}

func (blockingExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestResolveDeadlineTagsTimeout(t *testing.T) {
	client := newTestClient(t, blockingExecutor{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Resolve(ctx, "slow query")
	if err == nil {
		t.Fatal("expected error after deadline")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got: %v", err)
	}
}

func TestDownloadBuildsSectionArgs(t *testing.T) {
	exec := &stubExecutor{}
	client := newTestClient(t, exec)

	clip := ytdlp.Clip{
		URL:            "https://www.youtube.com/watch?v=abc",
		StartSecond:    35,
		EndSecond:      65,
		OutputTemplate: "/media/clips/trackid.%(ext)s",
		Format:         "mp3",
		Quality:        "192",
	}
	if err := client.Download(context.Background(), clip); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	if exec.calls != 1 {
		t.Fatalf("expected 1 invocation, got %d", exec.calls)
	}
	want := []string{
		"--no-warnings",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--download-sections", "*35-65",
		"--no-playlist",
		"-o", "/media/clips/trackid.%(ext)s",
		"https://www.youtube.com/watch?v=abc",
	}
	if !equalStrings(exec.args[0], want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", exec.args[0], want)
	}
}

func TestDownloadVBRQualityPassthrough(t *testing.T) {
	exec := &stubExecutor{}
	client := newTestClient(t, exec)

	clip := ytdlp.Clip{
		URL:            "https://www.youtube.com/watch?v=abc",
		StartSecond:    0,
		EndSecond:      30,
		OutputTemplate: "/tmp/out.%(ext)s",
		Format:         "opus",
		Quality:        "5",
	}
	if err := client.Download(context.Background(), clip); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	args := exec.args[0]
	for i, a := range args {
		if a == "--audio-quality" {
			if args[i+1] != "5" {
				t.Fatalf("expected VBR quality to pass through, got %q", args[i+1])
			}
			return
		}
	}
	t.Fatal("missing --audio-quality argument")
}

func TestDownloadValidation(t *testing.T) {
	client := newTestClient(t, &stubExecutor{})

	cases := []struct {
		name string
		clip ytdlp.Clip
	}{
		{"missing url", ytdlp.Clip{OutputTemplate: "/tmp/x.%(ext)s", StartSecond: 0, EndSecond: 30}},
		{"missing template", ytdlp.Clip{URL: "https://example.com/v", StartSecond: 0, EndSecond: 30}},
		{"empty window", ytdlp.Clip{URL: "https://example.com/v", OutputTemplate: "/tmp/x.%(ext)s", StartSecond: 30, EndSecond: 30}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := client.Download(context.Background(), tc.clip)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got: %v", err)
			}
		})
	}
}

func TestDownloadExecutorError(t *testing.T) {
	client := newTestClient(t, &stubExecutor{err: errors.New("exit status 1")})

	clip := ytdlp.Clip{
		URL:            "https://www.youtube.com/watch?v=abc",
		StartSecond:    0,
		EndSecond:      30,
		OutputTemplate: "/tmp/out.%(ext)s",
		Format:         "mp3",
		Quality:        "192",
	}
	err := client.Download(context.Background(), clip)
	if err == nil {
		t.Fatal("expected error from executor")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got: %v", err)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
