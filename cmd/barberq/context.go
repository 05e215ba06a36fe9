package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"barberq/internal/barbershop"
	"barberq/internal/config"
	"barberq/internal/customer"
	"barberq/internal/logging"
	"barberq/internal/session"
)

type commandContext struct {
	configFlag   *string
	apiURLFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	// quiet keeps log records off stderr, for full-screen commands.
	quiet bool
}

func newCommandContext(configFlag, apiURLFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		apiURLFlag:   apiURLFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if url := flagValue(c.apiURLFlag); url != "" {
			cfg.API.BaseURL = strings.TrimRight(url, "/")
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// ensureLogger builds the command logger. Records go to the log file, and to
// stderr only when --log-level was given on a line-oriented command.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		console := flagValue(c.logLevelFlag) != "" && !c.quiet
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, console)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) client() (*barbershop.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return barbershop.NewFromConfig(cfg, logger)
}

func (c *commandContext) customerService() (*customer.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	client, err := barbershop.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return customer.NewService(cfg, client, session.NewStore(cfg.Paths.StateDir), logger), nil
}

// describeError turns well-known failures into actionable messages.
func describeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNoSession):
		return errors.New("you are not in a queue; join with `barberq join <name> --barber <id>`")
	case errors.Is(err, barbershop.ErrUnauthorized):
		return fmt.Errorf("%w; set api.token or BARBERQ_TOKEN", err)
	case errors.Is(err, barbershop.ErrUnavailable):
		return fmt.Errorf("%w; the barbershop service may be down, try again shortly", err)
	default:
		return err
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
