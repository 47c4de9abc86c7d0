package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cratedig/internal/config"
	"cratedig/internal/fileutil"
	"cratedig/internal/logging"
	"cratedig/internal/services"
)

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Source supplies the chart export file. Ensure returns the local path of a
// complete export, downloading it first if necessary.
type Source interface {
	Ensure(ctx context.Context) (string, error)
}

// Manager downloads the configured Kaggle dataset file into the data directory.
type Manager struct {
	cfg    config.Dataset
	target string
	client *http.Client
	logger *slog.Logger
}

// Option customizes Manager construction.
type Option func(*Manager)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.client = client
		}
	}
}

// NewManager builds a Manager from application configuration.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg.Dataset,
		target: cfg.DatasetPath(),
		client: &http.Client{Timeout: time.Duration(cfg.Dataset.DownloadTimeout) * time.Second},
		logger: logging.NewComponentLogger(logger, "dataset"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure returns the path of the chart export, downloading it when absent.
func (m *Manager) Ensure(ctx context.Context) (string, error) {
	logger := logging.WithContext(ctx, m.logger)
	if size, ok := fileutil.FileSize(m.target); ok && size > 0 {
		logger.Debug("chart export already cached",
			logging.String("path", m.target),
			logging.Int64("bytes", size))
		return m.target, nil
	}

	username, key, err := m.credentials()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(m.target), 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}

	downloadURL := fmt.Sprintf("%s/datasets/download/%s/%s/%s",
		m.cfg.BaseURL, m.cfg.Owner, m.cfg.Slug, url.PathEscape(m.cfg.File))
	logger.Info("downloading chart export",
		logging.String("url", downloadURL),
		logging.String("path", m.target))

	tempPath, err := m.download(ctx, downloadURL, username, key)
	if err != nil {
		return "", err
	}
	defer os.Remove(tempPath)

	archived, err := isZip(tempPath)
	if err != nil {
		return "", fmt.Errorf("inspect download: %w", err)
	}

	if archived {
		if err := m.extractArchive(tempPath); err != nil {
			return "", err
		}
	} else {
		if err := os.Chmod(tempPath, 0o644); err != nil {
			return "", fmt.Errorf("set export mode: %w", err)
		}
		if err := os.Rename(tempPath, m.target); err != nil {
			return "", fmt.Errorf("promote export: %w", err)
		}
	}

	size, _ := fileutil.FileSize(m.target)
	logger.Info("chart export ready",
		logging.String("path", m.target),
		logging.Int64("bytes", size))
	return m.target, nil
}

func (m *Manager) download(ctx context.Context, downloadURL, username, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.SetBasicAuth(username, key)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "dataset", "download", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		msg := fmt.Sprintf("kaggle rejected credentials (status %d)", resp.StatusCode)
		return "", services.Wrap(services.ErrConfiguration, "dataset", "download", msg, nil)
	default:
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return "", services.Wrap(services.ErrTransient, "dataset", "download", msg, nil)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.target), filepath.Base(m.target)+".download*")
	if err != nil {
		return "", fmt.Errorf("create download temp file: %w", err)
	}
	tempPath := tmp.Name()

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempPath)
		return "", services.Wrap(services.ErrTransient, "dataset", "download", "stream body", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(tempPath)
		msg := fmt.Sprintf("size mismatch: expected %d bytes, wrote %d", resp.ContentLength, written)
		return "", services.Wrap(services.ErrTransient, "dataset", "download", msg, nil)
	}
	return tempPath, nil
}

// extractArchive pulls the export out of a downloaded zip and promotes it to
// the target path. The entry matching the configured file name wins; a
// single-entry archive is accepted under any name.
func (m *Manager) extractArchive(archivePath string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	entry := pickEntry(zr.File, filepath.Base(m.target))
	if entry == nil {
		return services.Wrap(services.ErrValidation, "dataset", "extract",
			fmt.Sprintf("archive has no entry named %s", filepath.Base(m.target)), nil)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry: %w", err)
	}
	defer rc.Close()

	err = fileutil.WriteFileAtomic(m.target, 0o644, func(w io.Writer) error {
		_, copyErr := io.Copy(w, rc)
		return copyErr
	})
	if err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return nil
}

func pickEntry(files []*zip.File, want string) *zip.File {
	var single *zip.File
	regular := 0
	for _, file := range files {
		if file.FileInfo().IsDir() {
			continue
		}
		regular++
		single = file
		if strings.EqualFold(filepath.Base(file.Name), want) {
			return file
		}
	}
	if regular == 1 {
		return single
	}
	return nil
}

func (m *Manager) credentials() (string, string, error) {
	if m.cfg.Username != "" && m.cfg.Key != "" {
		return m.cfg.Username, m.cfg.Key, nil
	}

	data, err := os.ReadFile(m.cfg.CredentialsFile)
	if err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "dataset", "credentials",
			"set dataset.username and dataset.key, export KAGGLE_USERNAME/KAGGLE_KEY, or provide kaggle.json", err)
	}

	var parsed struct {
		Username string `json:"username"`
		Key      string `json:"key"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "dataset", "credentials",
			fmt.Sprintf("parse %s", m.cfg.CredentialsFile), err)
	}
	parsed.Username = strings.TrimSpace(parsed.Username)
	parsed.Key = strings.TrimSpace(parsed.Key)
	if parsed.Username == "" || parsed.Key == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "dataset", "credentials",
			fmt.Sprintf("%s is missing username or key", m.cfg.CredentialsFile), nil)
	}
	return parsed.Username, parsed.Key, nil
}

func isZip(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	magic := make([]byte, len(zipMagic))
	n, err := io.ReadFull(file, magic)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bytes.Equal(magic[:n], zipMagic), nil
}
