package queue

import "strings"

// Entry is one client waiting in a queue.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Rank is the 1-based position in the serving order. It is derived from the
	// entry's index and recomputed on every reconciliation.
	Rank int `json:"rank"`
}

// Snapshot is a complete, ordered list of entries at one point in time.
type Snapshot struct {
	Entries []Entry `json:"entries"`
}

// NewSnapshot builds a snapshot from entries in serving order and assigns ranks.
// The input slice is copied.
func NewSnapshot(entries ...Entry) Snapshot {
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Rank = i + 1
		out[i] = entry
	}
	return Snapshot{Entries: out}
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Empty reports whether the snapshot has no entries.
func (s Snapshot) Empty() bool {
	return len(s.Entries) == 0
}

// IDs returns entry ids in serving order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Entries))
	for i, entry := range s.Entries {
		ids[i] = entry.ID
	}
	return ids
}

// Find returns the entry with the given id and its 1-based rank.
func (s Snapshot) Find(id string) (Entry, bool) {
	for i, entry := range s.Entries {
		if entry.ID == id {
			entry.Rank = i + 1
			return entry, true
		}
	}
	return Entry{}, false
}

func (s Snapshot) index() map[string]int {
	idx := make(map[string]int, len(s.Entries))
	for i, entry := range s.Entries {
		idx[entry.ID] = i
	}
	return idx
}
