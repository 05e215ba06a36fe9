package poller

import (
	"context"
	"sync"

	"barberq/internal/logging"
	"barberq/internal/queue"
)

// Sink receives the patch for one cycle. Returning an error rejects the patch
// and keeps the previous baseline, so the next cycle diffs against it again.
type Sink interface {
	Apply(patch queue.Patch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(queue.Patch) error

func (f SinkFunc) Apply(patch queue.Patch) error {
	return f(patch)
}

// WithReconcileOptions forwards options to queue.Reconcile for every cycle.
func WithReconcileOptions(opts ...queue.Option) Option {
	return func(s *settings) {
		s.reconcileOpts = append(s.reconcileOpts, opts...)
	}
}

// SnapshotLoop keeps one view in sync with the backend.
type SnapshotLoop struct {
	*Loop[queue.Snapshot]

	sink          Sink
	reconcileOpts []queue.Option

	mu       sync.RWMutex
	baseline queue.Snapshot
}

// NewSnapshotLoop wires fetch, reconciliation, and sink for the named view.
// The baseline starts empty, matching a freshly rendered view that shows only
// its placeholder.
func NewSnapshotLoop(view string, opts Options, fetch FetchFunc[queue.Snapshot], sink Sink, options ...Option) *SnapshotLoop {
	s := settings{}
	for _, opt := range options {
		opt(&s)
	}
	sl := &SnapshotLoop{
		sink:          sink,
		reconcileOpts: s.reconcileOpts,
		baseline:      queue.NewSnapshot(),
	}
	sl.Loop = New(view, opts, fetch, sl.cycle, options...)
	return sl
}

// Baseline returns the last snapshot the sink accepted.
func (s *SnapshotLoop) Baseline() queue.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline
}

func (s *SnapshotLoop) cycle(_ context.Context, next queue.Snapshot) error {
	if err := queue.Validate(next); err != nil {
		return &CycleError{View: s.View(), Stage: StageValidate, Err: err}
	}

	// Cycles are serialized by the in-flight guard; only they write the baseline.
	patch := queue.Reconcile(s.baseline, next, s.reconcileOpts...)
	if !patch.Empty() {
		if err := s.sink.Apply(patch); err != nil {
			return &CycleError{View: s.View(), Stage: StageApply, Err: err}
		}
		s.Loop.logger.Debug("patch applied", logging.Int("ops", patch.Len()))
	}

	s.mu.Lock()
	s.baseline = next
	s.mu.Unlock()
	return nil
}
