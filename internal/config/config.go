package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains connection settings for the barbershop backend.
type API struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	RefreshToken   string `toml:"refresh_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Polling contains timing for every live view.
type Polling struct {
	IntervalMillis      int `toml:"interval_ms"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
	// MissingTolerance is the number of consecutive "not found" position
	// answers accepted before a tracked client is treated as gone.
	MissingTolerance int `toml:"missing_tolerance"`
}

// Paths contains local state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Barber is one selectable queue.
type Barber struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Config encapsulates all configuration values for barberq.
type Config struct {
	API     API      `toml:"api"`
	Polling Polling  `toml:"polling"`
	Paths   Paths    `toml:"paths"`
	Logging Logging  `toml:"logging"`
	Barbers []Barber `toml:"barbers"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/barberq/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that lists barbers replaces the defaults rather than appending.
		cfg.Barbers = nil
		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Barbers) == 0 {
			cfg.Barbers = Default().Barbers
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("barberq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PollInterval is the tick period shared by every live view.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMillis) * time.Millisecond
}

// FetchTimeout bounds a single snapshot fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Polling.FetchTimeoutSeconds) * time.Second
}

// APITimeout bounds a single HTTP round trip.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// BarberIDs returns configured barber ids in declaration order.
func (c *Config) BarberIDs() []string {
	ids := make([]string, 0, len(c.Barbers))
	for _, b := range c.Barbers {
		ids = append(ids, b.ID)
	}
	return ids
}

// Barber looks up a configured barber by id (case-insensitive).
func (c *Config) Barber(id string) (Barber, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, b := range c.Barbers {
		if b.ID == id {
			return b, true
		}
	}
	return Barber{}, false
}

// DisplayName returns the configured name for id, or the id itself when unknown.
func (c *Config) DisplayName(id string) string {
	if b, ok := c.Barber(id); ok {
		return b.Name
	}
	return id
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
