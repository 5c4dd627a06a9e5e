package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeBackend()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLive()
	c.normalizeBus()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	if c.Backend.BaseURL == "" {
		if value, ok := os.LookupEnv("DIALER_BASE_URL"); ok {
			c.Backend.BaseURL = strings.TrimSpace(value)
		}
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaultBaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	c.Backend.APIToken = strings.TrimSpace(c.Backend.APIToken)
	if c.Backend.APIToken == "" {
		if value, ok := os.LookupEnv("DIALER_API_TOKEN"); ok {
			c.Backend.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Backend.RequestTimeout < 0 {
		c.Backend.RequestTimeout = 0
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLive() {
	if c.Live.ReconnectDelaySeconds == 0 {
		c.Live.ReconnectDelaySeconds = defaultReconnectDelaySeconds
	}
	if c.Upload.MaxCSVBytes == 0 {
		c.Upload.MaxCSVBytes = defaultMaxCSVBytes
	}
}

func (c *Config) normalizeBus() {
	c.Bus.RedisAddr = strings.TrimSpace(c.Bus.RedisAddr)
	if c.Bus.RedisAddr == "" {
		if value, ok := os.LookupEnv("DIALER_REDIS_ADDR"); ok {
			c.Bus.RedisAddr = strings.TrimSpace(value)
		}
	}
	c.Bus.Channel = strings.TrimSpace(c.Bus.Channel)
	if c.Bus.Channel == "" {
		c.Bus.Channel = defaultBusChannel
	}
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
