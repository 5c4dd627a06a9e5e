package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateLive(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateBus(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	raw := strings.TrimSpace(c.Backend.BaseURL)
	if raw == "" {
		return errors.New("backend.base_url must be set")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https, got %q", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("backend.base_url is missing a host: %q", raw)
	}
	if c.Backend.RequestTimeout < 0 {
		return errors.New("backend.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLive() error {
	if c.Live.ReconnectDelaySeconds <= 0 {
		return errors.New("live.reconnect_delay_seconds must be positive")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.MaxCSVBytes <= 0 {
		return errors.New("upload.max_csv_bytes must be positive")
	}
	return nil
}

func (c *Config) validateBus() error {
	if c.Bus.RedisDB < 0 {
		return errors.New("bus.redis_db must be >= 0")
	}
	return nil
}
