package queue

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPatchMismatch marks a patch that does not fit the rows it was applied to.
// It indicates a defect in the caller's baseline bookkeeping, never a runtime
// condition to recover from.
var ErrPatchMismatch = errors.New("patch does not match rendered rows")

// Row is a rendered entry. Serial is assigned when the row is inserted and
// stays with it until removal, so it identifies the rendered element rather
// than the logical entry.
type Row struct {
	Serial uint64
	ID     string
	Name   string
	Rank   int
}

// Rows is an in-memory rendered list that applies patches. A new Rows renders
// an empty queue, so the placeholder starts visible. Rows is not safe for
// concurrent use; one goroutine owns it.
type Rows struct {
	rows        []Row
	placeholder bool
	serial      uint64
}

// NewRows returns a view rendering an empty queue.
func NewRows() *Rows {
	return &Rows{placeholder: true}
}

// Apply mutates the view with every operation of the patch, in order, then
// lays the rows out by rank. It fails when an operation references a row that
// does not exist (or already exists), or when the placeholder would be left
// visible next to rows or hidden over an empty list.
//
// Operations are not rolled back: after an error the view may hold part of the
// patch, so callers must discard it and rebuild from a known snapshot with
// Reconcile(NewSnapshot(), snapshot).
func (r *Rows) Apply(p Patch) error {
	for _, op := range p.Ops {
		if err := r.apply(op); err != nil {
			return err
		}
	}
	sort.SliceStable(r.rows, func(i, j int) bool {
		return r.rows[i].Rank < r.rows[j].Rank
	})
	if r.placeholder == (len(r.rows) > 0) {
		return fmt.Errorf("%w: placeholder visible=%t with %d rows", ErrPatchMismatch, r.placeholder, len(r.rows))
	}
	return nil
}

func (r *Rows) apply(op Op) error {
	switch op.Kind {
	case OpRemove:
		idx := r.indexOf(op.ID)
		if idx < 0 {
			return fmt.Errorf("%w: remove unknown row %q", ErrPatchMismatch, op.ID)
		}
		r.rows = append(r.rows[:idx], r.rows[idx+1:]...)
	case OpInsert:
		if r.indexOf(op.ID) >= 0 {
			return fmt.Errorf("%w: insert duplicate row %q", ErrPatchMismatch, op.ID)
		}
		r.serial++
		row := Row{Serial: r.serial, ID: op.ID, Name: op.Name, Rank: op.Rank}
		at := op.Position - 1
		if at < 0 {
			at = 0
		}
		if at > len(r.rows) {
			at = len(r.rows)
		}
		r.rows = append(r.rows, Row{})
		copy(r.rows[at+1:], r.rows[at:])
		r.rows[at] = row
	case OpUpdateRank:
		idx := r.indexOf(op.ID)
		if idx < 0 {
			return fmt.Errorf("%w: rank update for unknown row %q", ErrPatchMismatch, op.ID)
		}
		r.rows[idx].Rank = op.To
	case OpUpdateLabel:
		idx := r.indexOf(op.ID)
		if idx < 0 {
			return fmt.Errorf("%w: label update for unknown row %q", ErrPatchMismatch, op.ID)
		}
		r.rows[idx].Name = op.Name
	case OpShowPlaceholder:
		r.placeholder = true
	case OpHidePlaceholder:
		r.placeholder = false
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrPatchMismatch, op.Kind)
	}
	return nil
}

func (r *Rows) indexOf(id string) int {
	for i, row := range r.rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of rendered rows, not counting the placeholder.
func (r *Rows) Len() int {
	return len(r.rows)
}

// PlaceholderVisible reports whether the empty-queue sentinel is rendered.
func (r *Rows) PlaceholderVisible() bool {
	return r.placeholder
}

// Row returns the rendered row for id.
func (r *Rows) Row(id string) (Row, bool) {
	if idx := r.indexOf(id); idx >= 0 {
		return r.rows[idx], true
	}
	return Row{}, false
}

// Entries returns a copy of the rendered rows in display order.
func (r *Rows) Entries() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// Snapshot returns the rendered state as a snapshot.
func (r *Rows) Snapshot() Snapshot {
	entries := make([]Entry, len(r.rows))
	for i, row := range r.rows {
		entries[i] = Entry{ID: row.ID, Name: row.Name, Rank: row.Rank}
	}
	return Snapshot{Entries: entries}
}
