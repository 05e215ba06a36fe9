package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validatePolling(); err != nil {
		return err
	}
	if err := c.validateBarbers(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api.base_url is missing a host: %q", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePolling() error {
	if c.Polling.IntervalMillis < 100 {
		return errors.New("polling.interval_ms must be at least 100")
	}
	if c.Polling.FetchTimeoutSeconds <= 0 {
		return errors.New("polling.fetch_timeout_seconds must be positive")
	}
	if c.Polling.MissingTolerance < 1 {
		return errors.New("polling.missing_tolerance must be at least 1")
	}
	return nil
}

func (c *Config) validateBarbers() error {
	if len(c.Barbers) == 0 {
		return errors.New("at least one [[barbers]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Barbers))
	for i, b := range c.Barbers {
		if b.ID == "" {
			return fmt.Errorf("barbers[%d].id must be set", i)
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("barbers[%d].id %q is duplicated", i, b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
