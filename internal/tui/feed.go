package tui

import (
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"barberq/internal/poller"
	"barberq/internal/queue"
)

const errorBuffer = 16

// ErrFeedClosed is returned by feed sinks once the UI has exited.
var ErrFeedClosed = errors.New("dashboard screen closed")

// patchMsg carries one reconciled patch for a barber's column. The model
// answers on applied once the column has taken it.
type patchMsg struct {
	barber  string
	patch   queue.Patch
	applied chan error
}

// cycleErrorMsg reports a skipped cycle for a barber's column.
type cycleErrorMsg struct {
	barber string
	err    error
}

// Feed carries poll loop output into the bubbletea message loop. Sinks run on
// the loop goroutines; the model drains the feed on the UI goroutine, so
// rendered rows are only ever mutated there.
type Feed struct {
	patches chan patchMsg
	errs    chan cycleErrorMsg
	done    chan struct{}
	once    sync.Once
}

// NewFeed creates an open feed.
func NewFeed() *Feed {
	return &Feed{
		patches: make(chan patchMsg),
		errs:    make(chan cycleErrorMsg, errorBuffer),
		done:    make(chan struct{}),
	}
}

// Sink returns the poller sink for barber's column. Apply returns only after
// the model has applied the patch, with the model's verdict, so the loop's
// baseline never runs ahead of the screen. It fails once the feed is closed.
func (f *Feed) Sink(barber string) poller.Sink {
	return poller.SinkFunc(func(patch queue.Patch) error {
		msg := patchMsg{barber: barber, patch: patch, applied: make(chan error, 1)}
		select {
		case f.patches <- msg:
		case <-f.done:
			return ErrFeedClosed
		}
		select {
		case err := <-msg.applied:
			return err
		case <-f.done:
			return ErrFeedClosed
		}
	})
}

// Error forwards a cycle failure. It never blocks; failures arriving while
// the error buffer is full are dropped.
func (f *Feed) Error(barber string, err error) {
	select {
	case f.errs <- cycleErrorMsg{barber: barber, err: err}:
	case <-f.done:
	default:
	}
}

// Close releases blocked sinks. Safe to call more than once.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.done)
	})
}

// listen returns a command that waits for the next feed message.
func (f *Feed) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-f.patches:
			return msg
		case msg := <-f.errs:
			return msg
		case <-f.done:
			return nil
		}
	}
}
