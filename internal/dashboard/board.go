package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"barberq/internal/config"
	"barberq/internal/logging"
	"barberq/internal/poller"
	"barberq/internal/queue"
)

// ErrUnknownClient is returned by Serve for an id no view currently shows.
var ErrUnknownClient = errors.New("client is not in any displayed queue")

// API is the subset of the backend client the board uses.
type API interface {
	QueueSnapshot(ctx context.Context, barber string) (queue.Snapshot, error)
	Serve(ctx context.Context, clientID string) error
}

// SinkFactory supplies an extra sink per barber, e.g. a UI adapter.
type SinkFactory func(barber string) poller.Sink

// Option customises Board construction.
type Option func(*Board)

// WithSinks forwards every patch to the sink built for its barber once the
// board's own rows have applied it.
func WithSinks(factory SinkFactory) Option {
	return func(b *Board) {
		b.sinks = factory
	}
}

// WithErrorHandler receives every skipped cycle, tagged with its barber.
func WithErrorHandler(fn func(barber string, err error)) Option {
	return func(b *Board) {
		b.onError = fn
	}
}

// WithReconcileOptions forwards options to every view's reconciler.
func WithReconcileOptions(opts ...queue.Option) Option {
	return func(b *Board) {
		b.reconcileOpts = append(b.reconcileOpts, opts...)
	}
}

// Board runs one reconciled view per barber.
type Board struct {
	api           API
	logger        *slog.Logger
	sinks         SinkFactory
	onError       func(string, error)
	reconcileOpts []queue.Option

	order []config.Barber
	views map[string]*view

	serving singleflight.Group
}

type view struct {
	barber config.Barber
	loop   *poller.SnapshotLoop
	extra  poller.Sink

	mu   sync.RWMutex
	rows *queue.Rows
}

// Apply updates the board's rows, then forwards the patch to the extra sink.
// When either rejects it the rows are rebuilt from the loop's baseline, which
// the loop keeps after a failed apply.
func (v *view) Apply(patch queue.Patch) error {
	v.mu.Lock()
	err := v.rows.Apply(patch)
	if err != nil {
		v.resetLocked()
	}
	v.mu.Unlock()
	if err != nil || v.extra == nil {
		return err
	}

	if err := v.extra.Apply(patch); err != nil {
		v.mu.Lock()
		v.resetLocked()
		v.mu.Unlock()
		return err
	}
	return nil
}

func (v *view) resetLocked() {
	v.rows = queue.NewRows()
	_ = v.rows.Apply(queue.Reconcile(queue.NewSnapshot(), v.loop.Baseline()))
}

// New builds a board for every configured barber.
func New(cfg *config.Config, api API, logger *slog.Logger, opts ...Option) (*Board, error) {
	if cfg == nil {
		return nil, errors.New("dashboard: config is nil")
	}
	if api == nil {
		return nil, errors.New("dashboard: api is nil")
	}
	b := &Board{
		api:    api,
		logger: logging.NewComponentLogger(logger, "dashboard"),
		views:  make(map[string]*view, len(cfg.Barbers)),
	}
	for _, opt := range opts {
		opt(b)
	}

	loopOpts := poller.Options{
		Interval:     cfg.PollInterval(),
		FetchTimeout: cfg.FetchTimeout(),
		Immediate:    true,
	}
	for _, barber := range cfg.Barbers {
		v := &view{barber: barber, rows: queue.NewRows()}
		if b.sinks != nil {
			v.extra = b.sinks(barber.ID)
		}
		id := barber.ID
		v.loop = poller.NewSnapshotLoop(id, loopOpts,
			func(ctx context.Context) (queue.Snapshot, error) {
				return api.QueueSnapshot(ctx, id)
			},
			v,
			poller.WithLogger(logger),
			poller.WithReconcileOptions(b.reconcileOpts...),
			poller.WithErrorHandler(func(err error) {
				if b.onError != nil {
					b.onError(id, err)
				}
			}),
		)
		b.order = append(b.order, barber)
		b.views[id] = v
	}
	return b, nil
}

// Barbers returns the board's barbers in display order.
func (b *Board) Barbers() []config.Barber {
	out := make([]config.Barber, len(b.order))
	copy(out, b.order)
	return out
}

// Run drives every view until ctx ends.
func (b *Board) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, barber := range b.order {
		loop := b.views[barber.ID].loop
		g.Go(func() error {
			err := loop.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	b.logger.Info("dashboard started", logging.Int("views", len(b.order)))
	err := g.Wait()
	b.logger.Info("dashboard stopped")
	return err
}

// Refresh runs one synchronous cycle for every view, in display order, and
// returns the failures joined.
func (b *Board) Refresh(ctx context.Context) error {
	var errs []error
	for _, barber := range b.order {
		if err := b.views[barber.ID].loop.RunOnce(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Poke requests an immediate cycle for barber, or for every view when barber
// is empty.
func (b *Board) Poke(barber string) {
	if barber != "" {
		if v, ok := b.views[barber]; ok {
			v.loop.Poke()
		}
		return
	}
	for _, v := range b.views {
		v.loop.Poke()
	}
}

// Serve dispatches a serve action for clientID and returns the barber whose
// queue held it. Concurrent requests for the same client share one backend call.
func (b *Board) Serve(ctx context.Context, clientID string) (string, error) {
	barber, ok := b.Owner(clientID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}

	_, err, shared := b.serving.Do(clientID, func() (any, error) {
		return nil, b.api.Serve(ctx, clientID)
	})
	if err != nil {
		logging.WarnWithContext(b.logger, "serve failed", "serve_failed",
			logging.Error(err),
			logging.String(logging.FieldClientID, clientID),
			logging.String(logging.FieldBarber, barber),
			logging.String(logging.FieldImpact, "client stays in the queue"),
			logging.String(logging.FieldErrorHint, "check staff credentials and backend availability"),
		)
		return barber, fmt.Errorf("serve %s: %w", clientID, err)
	}
	if !shared {
		b.logger.Info("client served",
			logging.String(logging.FieldClientID, clientID),
			logging.String(logging.FieldBarber, barber),
		)
	}
	b.views[barber].loop.Poke()
	return barber, nil
}

// Owner finds the barber whose last applied snapshot contains clientID.
func (b *Board) Owner(clientID string) (string, bool) {
	for _, barber := range b.order {
		if _, ok := b.views[barber.ID].loop.Baseline().Find(clientID); ok {
			return barber.ID, true
		}
	}
	return "", false
}

// Snapshot returns the last snapshot applied to barber's view.
func (b *Board) Snapshot(barber string) (queue.Snapshot, bool) {
	v, ok := b.views[barber]
	if !ok {
		return queue.Snapshot{}, false
	}
	return v.loop.Baseline(), true
}

// Rows returns barber's rendered rows and whether the placeholder is showing.
func (b *Board) Rows(barber string) ([]queue.Row, bool, bool) {
	v, ok := b.views[barber]
	if !ok {
		return nil, false, false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rows.Entries(), v.rows.PlaceholderVisible(), true
}

// Stats returns loop counters per barber.
func (b *Board) Stats() map[string]poller.Stats {
	out := make(map[string]poller.Stats, len(b.views))
	for id, v := range b.views {
		out[id] = v.loop.Stats()
	}
	return out
}
