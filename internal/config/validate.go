package config

import (
	"errors"
	"fmt"
	"strings"
)

var audioFormats = map[string]struct{}{
	"aac":    {},
	"flac":   {},
	"m4a":    {},
	"mp3":    {},
	"opus":   {},
	"vorbis": {},
	"wav":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDataset() error {
	if c.Dataset.Owner == "" {
		return errors.New("dataset.owner must be set")
	}
	if c.Dataset.Slug == "" {
		return errors.New("dataset.slug must be set")
	}
	if c.Dataset.File == "" {
		return errors.New("dataset.file must be set")
	}
	if !strings.HasPrefix(c.Dataset.BaseURL, "http://") && !strings.HasPrefix(c.Dataset.BaseURL, "https://") {
		return fmt.Errorf("dataset.base_url must be an http(s) URL, got %q", c.Dataset.BaseURL)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Workers < 1 {
		return errors.New("fetch.workers must be at least 1")
	}
	if c.Fetch.ClipSeconds < 1 {
		return errors.New("fetch.clip_seconds must be at least 1")
	}
	if _, ok := audioFormats[c.Fetch.AudioFormat]; !ok {
		return fmt.Errorf("fetch.audio_format %q is not supported", c.Fetch.AudioFormat)
	}
	if c.Fetch.AudioQuality == "" {
		return errors.New("fetch.audio_quality must be set")
	}
	if c.Fetch.Binary == "" {
		return errors.New("fetch.binary must be set")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if strings.ContainsAny(c.Notifications.NtfyTopic, " \t") {
		return errors.New("notifications.ntfy_topic must not contain whitespace")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
