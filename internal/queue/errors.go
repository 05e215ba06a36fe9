package queue

import (
	"errors"
	"fmt"
)

// ErrDuplicateID marks snapshots that repeat an entry id.
var ErrDuplicateID = errors.New("duplicate entry id in snapshot")

// DuplicateIDError reports the first repeated id and the positions it was seen at.
type DuplicateIDError struct {
	ID     string
	First  int
	Second int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate entry id %q at positions %d and %d", e.ID, e.First, e.Second)
}

func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}

// ErrorKind classifies snapshot rejections for logging.
func (e *DuplicateIDError) ErrorKind() string {
	return "validation"
}

// Validate checks the preconditions Reconcile relies on.
func Validate(s Snapshot) error {
	seen := make(map[string]int, len(s.Entries))
	for idx, entry := range s.Entries {
		if first, ok := seen[entry.ID]; ok {
			return &DuplicateIDError{ID: entry.ID, First: first + 1, Second: idx + 1}
		}
		seen[entry.ID] = idx
	}
	return nil
}
