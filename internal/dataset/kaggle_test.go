package dataset_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cratedig/internal/config"
	"cratedig/internal/dataset"
	"cratedig/internal/logging"
	"cratedig/internal/services"
)

const exportBody = "url,title,artist\nu1,Song,Someone\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Dataset.Username = "tester"
	cfg.Dataset.Key = "secret"
	cfg.Dataset.CredentialsFile = filepath.Join(cfg.Paths.DataDir, "kaggle.json")
	return &cfg
}

func TestEnsureSkipsWhenCached(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.DatasetPath(), []byte(exportBody), 0o644); err != nil {
		t.Fatalf("seed export: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("expected no request for cached export")
	}))
	defer server.Close()
	cfg.Dataset.BaseURL = server.URL

	manager := dataset.NewManager(cfg, logging.NewNop())
	path, err := manager.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
	if path != cfg.DatasetPath() {
		t.Fatalf("unexpected path: %q", path)
	}
}

func TestEnsureDownloadsRawFile(t *testing.T) {
	cfg := testConfig(t)

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		user, key, ok := r.BasicAuth()
		if !ok || user != "tester" || key != "secret" {
			t.Errorf("unexpected credentials: %q %q %v", user, key, ok)
		}
		wantPath := "/datasets/download/dhruvildave/spotify-charts/charts.csv"
		if r.URL.Path != wantPath {
			t.Errorf("unexpected request path: %q", r.URL.Path)
		}
		w.Write([]byte(exportBody))
	}))
	defer server.Close()
	cfg.Dataset.BaseURL = server.URL

	manager := dataset.NewManager(cfg, logging.NewNop())
	path, err := manager.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(content) != exportBody {
		t.Fatalf("unexpected export content: %q", content)
	}

	if _, err := manager.Ensure(context.Background()); err != nil {
		t.Fatalf("second Ensure returned error: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected a single download, saw %d requests", requests)
	}
}

func TestEnsureExtractsZip(t *testing.T) {
	cfg := testConfig(t)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	entry, err := zw.Create("charts.csv")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := entry.Write([]byte(exportBody)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive.Bytes())
	}))
	defer server.Close()
	cfg.Dataset.BaseURL = server.URL

	manager := dataset.NewManager(cfg, logging.NewNop())
	path, err := manager.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(content) != exportBody {
		t.Fatalf("unexpected extracted content: %q", content)
	}

	leftovers, err := filepath.Glob(filepath.Join(cfg.Paths.DataDir, "*.download*"))
	if err != nil {
		t.Fatalf("glob temp files: %v", err)
	}
	if len(leftovers) != 0 {
		t.Fatalf("expected no download temp files, found %v", leftovers)
	}
}

func TestEnsureRejectedCredentials(t *testing.T) {
	cfg := testConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()
	cfg.Dataset.BaseURL = server.URL

	manager := dataset.NewManager(cfg, logging.NewNop())
	_, err := manager.Ensure(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureMissingCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Username = ""
	cfg.Dataset.Key = ""

	manager := dataset.NewManager(cfg, logging.NewNop())
	_, err := manager.Ensure(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureCredentialsFromFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Username = ""
	cfg.Dataset.Key = ""
	credentials := `{"username": "file-user", "key": "file-key"}`
	if err := os.WriteFile(cfg.Dataset.CredentialsFile, []byte(credentials), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, key, _ := r.BasicAuth()
		if user != "file-user" || key != "file-key" {
			t.Errorf("unexpected credentials: %q %q", user, key)
		}
		w.Write([]byte(exportBody))
	}))
	defer server.Close()
	cfg.Dataset.BaseURL = server.URL

	manager := dataset.NewManager(cfg, logging.NewNop())
	if _, err := manager.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure returned error: %v", err)
	}
}
