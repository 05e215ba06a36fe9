package main

import (
	"errors"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"barberq/internal/dashboard"
	"barberq/internal/tui"
)

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the live staff dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) || !isTerminal(os.Stdin) {
				return errors.New("dashboard needs an interactive terminal; use `barberq queue list --watch` instead")
			}
			ctx.quiet = true
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}

			feed := tui.NewFeed()
			board, err := dashboard.New(cfg, client, logger,
				dashboard.WithSinks(feed.Sink),
				dashboard.WithErrorHandler(feed.Error),
			)
			if err != nil {
				return err
			}
			return quietCancel(tui.Run(cmd.Context(), board, feed))
		},
	}
}

func isTerminal(file *os.File) bool {
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
