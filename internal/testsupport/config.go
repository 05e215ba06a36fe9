package testsupport

import (
	"path/filepath"
	"testing"

	"barberq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Polling.IntervalMillis = 100
	cfgVal.Polling.FetchTimeoutSeconds = 2
	cfgVal.Polling.MissingTolerance = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithBackend points the config at a fake backend and uses its staff credentials.
func WithBackend(b *Backend) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.API.BaseURL = b.URL()
		cb.cfg.API.Token = b.Token()
		cb.cfg.API.RefreshToken = b.RefreshToken
	}
}

// WithBarbers replaces the configured barbers with ids (display names are title-cased ids).
func WithBarbers(ids ...string) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Barbers = cb.cfg.Barbers[:0]
		for _, id := range ids {
			cb.cfg.Barbers = append(cb.cfg.Barbers, config.Barber{ID: id, Name: id})
		}
	}
}

// WithMissingTolerance overrides polling.missing_tolerance.
func WithMissingTolerance(n int) ConfigOption {
	return func(cb *configBuilder) {
		cb.cfg.Polling.MissingTolerance = n
	}
}
