package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"cratedig/internal/services"
)

// Resolution captures the search result yt-dlp selected for a query.
type Resolution struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	WebpageURL string  `json:"webpage_url"`
	Duration   float64 `json:"duration"`
}

// Clip describes one bounded audio download.
type Clip struct {
	URL            string
	StartSecond    int
	EndSecond      int
	OutputTemplate string
	Format         string
	Quality        string
}

// Service defines the downloader behaviour required by fetch workers.
type Service interface {
	Resolve(ctx context.Context, query string) (Resolution, error)
	Download(ctx context.Context, clip Clip) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary          string
	resolveTimeout  time.Duration
	downloadTimeout time.Duration
	exec            Executor
}

var _ Service = (*Client)(nil)

// New constructs a yt-dlp client.
func New(binary string, resolveTimeoutSeconds, downloadTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:          binary,
		resolveTimeout:  time.Duration(resolveTimeoutSeconds) * time.Second,
		downloadTimeout: time.Duration(downloadTimeoutSeconds) * time.Second,
		exec:            commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Resolve runs a single-result search for the query and returns the
// selected video's metadata without downloading anything.
func (c *Client) Resolve(ctx context.Context, query string) (Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Resolution{}, services.Wrap(services.ErrValidation, "ytdlp", "resolve", "empty search query", nil)
	}

	runCtx := ctx
	if c.resolveTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.resolveTimeout)
		defer cancel()
	}

	args := []string{
		"--no-warnings",
		"--skip-download",
		"--dump-json",
		"--no-playlist",
		"ytsearch1:" + query,
	}

	var payload string
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			payload = trimmed
		}
	})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Resolution{}, services.Wrap(services.ErrTimeout, "ytdlp", "resolve", fmt.Sprintf("search timed out for %q", query), err)
		}
		return Resolution{}, services.Wrap(services.ErrExternalTool, "ytdlp", "resolve", fmt.Sprintf("search failed for %q", query), err)
	}
	if payload == "" {
		return Resolution{}, services.Wrap(services.ErrNotFound, "ytdlp", "resolve", fmt.Sprintf("no result for %q", query), nil)
	}

	var resolution Resolution
	if err := json.Unmarshal([]byte(payload), &resolution); err != nil {
		return Resolution{}, services.Wrap(services.ErrExternalTool, "ytdlp", "resolve", "failed to decode metadata dump", err)
	}
	if resolution.WebpageURL == "" {
		return Resolution{}, services.Wrap(services.ErrNotFound, "ytdlp", "resolve", fmt.Sprintf("result for %q has no webpage url", query), nil)
	}
	return resolution, nil
}

// Download fetches the clip section and extracts it as audio.
func (c *Client) Download(ctx context.Context, clip Clip) error {
	if clip.URL == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", "clip url required", nil)
	}
	if clip.OutputTemplate == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", "output template required", nil)
	}
	if clip.EndSecond <= clip.StartSecond {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", fmt.Sprintf("invalid clip window %d-%d", clip.StartSecond, clip.EndSecond), nil)
	}

	runCtx := ctx
	if c.downloadTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.downloadTimeout)
		defer cancel()
	}

	args := []string{
		"--no-warnings",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", clip.Format,
		"--audio-quality", normalizeQuality(clip.Quality),
		"--download-sections", fmt.Sprintf("*%d-%d", clip.StartSecond, clip.EndSecond),
		"--no-playlist",
		"-o", clip.OutputTemplate,
		clip.URL,
	}

	if err := c.exec.Run(runCtx, c.binary, args, nil); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "ytdlp", "download", fmt.Sprintf("download timed out for %s", clip.URL), err)
		}
		return services.Wrap(services.ErrExternalTool, "ytdlp", "download", fmt.Sprintf("download failed for %s", clip.URL), err)
	}
	return nil
}

// normalizeQuality maps plain bitrate numbers to yt-dlp's K-suffixed
// form. Values on the 0-10 VBR scale pass through unchanged.
func normalizeQuality(quality string) string {
	quality = strings.TrimSpace(quality)
	if quality == "" {
		return "0"
	}
	if n, err := strconv.Atoi(quality); err == nil && n > 10 {
		return quality + "K"
	}
	return quality
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
