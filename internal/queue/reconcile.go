package queue

// Option adjusts Reconcile.
type Option func(*reconcileOptions)

type reconcileOptions struct {
	labels bool
}

// WithLabelUpdates emits OpUpdateLabel when a stable id changes its display
// name between snapshots. Without it, rendered labels of stable rows are left
// alone.
func WithLabelUpdates() Option {
	return func(o *reconcileOptions) {
		o.labels = true
	}
}

// Reconcile computes the patch that turns a rendering of previous into a
// rendering of next. Entries are matched by id. Both snapshots must pass
// Validate.
//
// Operation order: removals (previous order), placeholder hide, insertions
// (next order), label and rank updates (next order), placeholder show.
//
// An inserted row is first labelled as if it had joined behind the whole
// previous list (len(previous)+k for the k-th insertion); the rank pass then
// settles it at its final position.
func Reconcile(previous, next Snapshot, opts ...Option) Patch {
	var cfg reconcileOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	prevIdx := previous.index()
	nextIdx := next.index()

	ops := make([]Op, 0)
	for _, entry := range previous.Entries {
		if _, ok := nextIdx[entry.ID]; !ok {
			ops = append(ops, Remove(entry.ID))
		}
	}

	if previous.Empty() && !next.Empty() {
		ops = append(ops, HidePlaceholder())
	}

	shown := make(map[string]int, len(next.Entries))
	inserted := 0
	for i, entry := range next.Entries {
		if at, ok := prevIdx[entry.ID]; ok {
			shown[entry.ID] = at + 1
			continue
		}
		inserted++
		rank := len(previous.Entries) + inserted
		ops = append(ops, Insert(entry, i+1, rank))
		shown[entry.ID] = rank
	}

	for i, entry := range next.Entries {
		if cfg.labels {
			if at, ok := prevIdx[entry.ID]; ok && previous.Entries[at].Name != entry.Name {
				ops = append(ops, UpdateLabel(entry.ID, entry.Name))
			}
		}
		if rank := i + 1; shown[entry.ID] != rank {
			ops = append(ops, UpdateRank(entry.ID, shown[entry.ID], rank))
		}
	}

	if next.Empty() && !previous.Empty() {
		ops = append(ops, ShowPlaceholder())
	}

	if len(ops) == 0 {
		return Patch{}
	}
	return Patch{Ops: ops}
}
