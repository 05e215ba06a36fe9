package queue

import (
	"fmt"
	"strings"
)

// OpKind names a single view mutation.
type OpKind string

const (
	OpRemove          OpKind = "remove"
	OpInsert          OpKind = "insert"
	OpUpdateRank      OpKind = "update_rank"
	OpUpdateLabel     OpKind = "update_label"
	OpShowPlaceholder OpKind = "show_placeholder"
	OpHidePlaceholder OpKind = "hide_placeholder"
)

// Op is one step of a Patch. Which fields are meaningful depends on Kind:
//
//	remove            ID
//	insert            ID, Name, Position (1-based index in the new order), Rank (provisional label)
//	update_rank       ID, From, To
//	update_label      ID, Name
//	show/hide         none
type Op struct {
	Kind     OpKind `json:"kind"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Position int    `json:"position,omitempty"`
	Rank     int    `json:"rank,omitempty"`
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
}

// Remove builds a remove-by-id operation.
func Remove(id string) Op {
	return Op{Kind: OpRemove, ID: id}
}

// Insert builds an insert-at-position operation.
func Insert(entry Entry, position, rank int) Op {
	return Op{Kind: OpInsert, ID: entry.ID, Name: entry.Name, Position: position, Rank: rank}
}

// UpdateRank builds a rank change for a row that is already rendered.
func UpdateRank(id string, from, to int) Op {
	return Op{Kind: OpUpdateRank, ID: id, From: from, To: to}
}

// UpdateLabel builds a display-name change for a row that is already rendered.
func UpdateLabel(id, name string) Op {
	return Op{Kind: OpUpdateLabel, ID: id, Name: name}
}

// ShowPlaceholder builds the operation that renders the empty-queue sentinel.
func ShowPlaceholder() Op {
	return Op{Kind: OpShowPlaceholder}
}

// HidePlaceholder builds the operation that drops the empty-queue sentinel.
func HidePlaceholder() Op {
	return Op{Kind: OpHidePlaceholder}
}

func (o Op) String() string {
	switch o.Kind {
	case OpRemove:
		return fmt.Sprintf("remove(%s)", o.ID)
	case OpInsert:
		return fmt.Sprintf("insert(%s at %d)", o.ID, o.Position)
	case OpUpdateRank:
		return fmt.Sprintf("update_rank(%s %d->%d)", o.ID, o.From, o.To)
	case OpUpdateLabel:
		return fmt.Sprintf("update_label(%s %q)", o.ID, o.Name)
	case OpShowPlaceholder:
		return "show_placeholder"
	case OpHidePlaceholder:
		return "hide_placeholder"
	default:
		return string(o.Kind)
	}
}

// Patch is the ordered list of operations that moves a rendering of one
// snapshot to the next. Operations must be applied in order.
type Patch struct {
	Ops []Op `json:"ops"`
}

// Empty reports whether applying the patch would change nothing.
func (p Patch) Empty() bool {
	return len(p.Ops) == 0
}

// Len returns the number of operations.
func (p Patch) Len() int {
	return len(p.Ops)
}

// Count returns how many operations of the given kind the patch carries.
func (p Patch) Count(kind OpKind) int {
	n := 0
	for _, op := range p.Ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (p Patch) String() string {
	if len(p.Ops) == 0 {
		return "[]"
	}
	parts := make([]string, len(p.Ops))
	for i, op := range p.Ops {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
