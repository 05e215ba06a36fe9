package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"barberq/internal/config"
	"barberq/internal/queue"
)

// Board is the dashboard surface the screen drives.
type Board interface {
	Barbers() []config.Barber
	Serve(ctx context.Context, clientID string) (string, error)
	Poke(barber string)
	Snapshot(barber string) (queue.Snapshot, bool)
}

// servedMsg reports the outcome of a serve dispatch.
type servedMsg struct {
	clientID string
	name     string
	barber   string
	err      error
}

type column struct {
	barber  config.Barber
	rows    *queue.Rows
	cursor  int
	lastErr error
}

// Model is the bubbletea model of the staff dashboard.
type Model struct {
	ctx   context.Context
	board Board
	feed  *Feed

	columns []*column
	index   map[string]int
	focus   int

	keys   keyMap
	help   help.Model
	status string
	width  int
	height int
}

// NewModel builds the screen for board, fed by feed.
func NewModel(ctx context.Context, board Board, feed *Feed) Model {
	m := Model{
		ctx:   ctx,
		board: board,
		feed:  feed,
		index: map[string]int{},
		keys:  defaultKeyMap(),
		help:  help.New(),
	}
	for i, barber := range board.Barbers() {
		m.columns = append(m.columns, &column{barber: barber, rows: queue.NewRows()})
		m.index[barber.ID] = i
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.feed.listen()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case patchMsg:
		err := m.applyPatch(msg)
		if msg.applied != nil {
			msg.applied <- err
		}
		return m, m.feed.listen()

	case cycleErrorMsg:
		if col := m.column(msg.barber); col != nil {
			col.lastErr = msg.err
		}
		m.status = fmt.Sprintf("%s: %v", m.displayName(msg.barber), msg.err)
		return m, m.feed.listen()

	case servedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("could not serve %s: %v", msg.name, msg.err)
		} else {
			m.status = fmt.Sprintf("served %s (%s)", msg.name, m.displayName(msg.barber))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.feed.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Left):
		if len(m.columns) > 0 {
			m.focus = (m.focus - 1 + len(m.columns)) % len(m.columns)
		}
	case key.Matches(msg, m.keys.Right):
		if len(m.columns) > 0 {
			m.focus = (m.focus + 1) % len(m.columns)
		}
	case key.Matches(msg, m.keys.Up):
		if col := m.focused(); col != nil && col.cursor > 0 {
			col.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if col := m.focused(); col != nil && col.cursor < col.rows.Len()-1 {
			col.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		m.board.Poke("")
		m.status = "refreshing…"
	case key.Matches(msg, m.keys.Serve):
		return m, m.serveSelected()
	}
	return m, nil
}

func (m *Model) serveSelected() tea.Cmd {
	col := m.focused()
	if col == nil || col.rows.Len() == 0 {
		m.status = "no client selected"
		return nil
	}
	row := col.rows.Entries()[col.cursor]
	m.status = fmt.Sprintf("serving %s…", row.Name)
	ctx, board := m.ctx, m.board
	return func() tea.Msg {
		barber, err := board.Serve(ctx, row.ID)
		return servedMsg{clientID: row.ID, name: row.Name, barber: barber, err: err}
	}
}

// applyPatch applies msg to its column. A patch that does not fit the rendered
// rows is retried once on rows rebuilt from the board's baseline, which is
// still the snapshot the patch was computed from while its sink waits.
func (m *Model) applyPatch(msg patchMsg) error {
	col := m.column(msg.barber)
	if col == nil {
		return nil
	}
	col.lastErr = nil
	err := col.rows.Apply(msg.patch)
	if errors.Is(err, queue.ErrPatchMismatch) {
		m.rebuild(col)
		if err = col.rows.Apply(msg.patch); err != nil {
			m.rebuild(col)
		}
		m.status = fmt.Sprintf("%s: view rebuilt", m.displayName(msg.barber))
	}
	if err != nil {
		m.status = fmt.Sprintf("%s: %v", m.displayName(msg.barber), err)
	}
	if col.cursor >= col.rows.Len() {
		col.cursor = max(col.rows.Len()-1, 0)
	}
	return err
}

func (m *Model) rebuild(col *column) {
	col.rows = queue.NewRows()
	if snap, ok := m.board.Snapshot(col.barber.ID); ok {
		_ = col.rows.Apply(queue.Reconcile(queue.NewSnapshot(), snap))
	}
}

func (m *Model) column(barber string) *column {
	idx, ok := m.index[barber]
	if !ok {
		return nil
	}
	return m.columns[idx]
}

func (m *Model) focused() *column {
	if m.focus < 0 || m.focus >= len(m.columns) {
		return nil
	}
	return m.columns[m.focus]
}

func (m *Model) displayName(barber string) string {
	if col := m.column(barber); col != nil {
		return col.barber.Name
	}
	return barber
}
