package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Runner is a board that polls until its context ends.
type Runner interface {
	Board
	Run(ctx context.Context) error
}

// Run shows the dashboard until the user quits or ctx ends. The board must
// have been built with feed's sinks and error handler.
func Run(ctx context.Context, board Runner, feed *Feed, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer feed.Close()

	boardErr := make(chan error, 1)
	go func() {
		boardErr <- board.Run(ctx)
	}()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	program := tea.NewProgram(NewModel(ctx, board, feed), opts...)
	_, err := program.Run()

	feed.Close()
	cancel()
	if runErr := <-boardErr; runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
