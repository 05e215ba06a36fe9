package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	envBaseURL      = "BARBERQ_API_URL"
	envToken        = "BARBERQ_TOKEN"
	envRefreshToken = "BARBERQ_REFRESH_TOKEN"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBarbers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv(envBaseURL); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if c.API.Token == "" {
		if value, ok := os.LookupEnv(envToken); ok {
			c.API.Token = value
		}
	}
	if c.API.RefreshToken == "" {
		if value, ok := os.LookupEnv(envRefreshToken); ok {
			c.API.RefreshToken = value
		}
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.API.RefreshToken = strings.TrimSpace(c.API.RefreshToken)
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBarbers() {
	title := cases.Title(language.English)
	for i := range c.Barbers {
		b := &c.Barbers[i]
		b.ID = strings.ToLower(strings.TrimSpace(b.ID))
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" && b.ID != "" {
			b.Name = title.String(strings.ReplaceAll(b.ID, "-", " "))
		}
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
