package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDataset(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ClipsDir) == "" {
		c.Paths.ClipsDir = filepath.Join(c.Paths.DataDir, "clips")
	}
	if c.Paths.ClipsDir, err = expandPath(c.Paths.ClipsDir); err != nil {
		return fmt.Errorf("paths.clips_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = filepath.Join(c.Paths.DataDir, "catalog.db")
	}
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDataset() error {
	c.Dataset.Owner = strings.TrimSpace(c.Dataset.Owner)
	c.Dataset.Slug = strings.TrimSpace(c.Dataset.Slug)
	c.Dataset.File = strings.TrimSpace(c.Dataset.File)
	c.Dataset.BaseURL = strings.TrimRight(strings.TrimSpace(c.Dataset.BaseURL), "/")
	if c.Dataset.BaseURL == "" {
		c.Dataset.BaseURL = defaultDatasetBaseURL
	}
	c.Dataset.Username = strings.TrimSpace(c.Dataset.Username)
	c.Dataset.Key = strings.TrimSpace(c.Dataset.Key)
	if c.Dataset.Username == "" {
		if value, ok := os.LookupEnv("KAGGLE_USERNAME"); ok {
			c.Dataset.Username = strings.TrimSpace(value)
		}
	}
	if c.Dataset.Key == "" {
		if value, ok := os.LookupEnv("KAGGLE_KEY"); ok {
			c.Dataset.Key = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Dataset.CredentialsFile) == "" {
		c.Dataset.CredentialsFile = defaultCredentialsFile
	}
	var err error
	if c.Dataset.CredentialsFile, err = expandPath(c.Dataset.CredentialsFile); err != nil {
		return fmt.Errorf("dataset.credentials_file: %w", err)
	}
	if c.Dataset.DownloadTimeout <= 0 {
		c.Dataset.DownloadTimeout = defaultDatasetDownloadTimeout
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = defaultFetchWorkers
	}
	if c.Fetch.ClipSeconds <= 0 {
		c.Fetch.ClipSeconds = defaultClipSeconds
	}
	c.Fetch.AudioFormat = strings.ToLower(strings.TrimSpace(c.Fetch.AudioFormat))
	if c.Fetch.AudioFormat == "" {
		c.Fetch.AudioFormat = defaultAudioFormat
	}
	c.Fetch.AudioQuality = strings.TrimSpace(c.Fetch.AudioQuality)
	if c.Fetch.AudioQuality == "" {
		c.Fetch.AudioQuality = defaultAudioQuality
	}
	c.Fetch.Binary = strings.TrimSpace(c.Fetch.Binary)
	if c.Fetch.Binary == "" {
		c.Fetch.Binary = defaultFetchBinary
	}
	if c.Fetch.ResolveTimeout <= 0 {
		c.Fetch.ResolveTimeout = defaultResolveTimeout
	}
	if c.Fetch.DownloadTimeout <= 0 {
		c.Fetch.DownloadTimeout = defaultFetchDownloadTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
