package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"barberq/internal/logging"
	"barberq/internal/queue"
)

const defaultFetchTimeout = 5 * time.Second

// FetchFunc produces the latest authoritative value for a view.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// HandleFunc consumes a fetched value on the loop goroutine.
type HandleFunc[T any] func(ctx context.Context, value T) error

// Options controls loop timing.
type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	// Immediate starts the first cycle as soon as Run begins instead of
	// waiting one interval.
	Immediate bool
}

// Option configures optional loop collaborators.
type Option func(*settings)

type settings struct {
	logger        *slog.Logger
	onError       func(error)
	reconcileOpts []queue.Option
}

// WithLogger sets the logger used for cycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithErrorHandler registers a callback for every skipped cycle. It runs on the
// loop goroutine and must not block.
func WithErrorHandler(fn func(error)) Option {
	return func(s *settings) {
		s.onError = fn
	}
}

// Stats summarizes loop activity.
type Stats struct {
	Cycles   uint64
	Skipped  uint64
	Failures uint64
}

type result[T any] struct {
	value T
	err   error
}

// Loop periodically fetches a value and hands it to a handler.
type Loop[T any] struct {
	view    string
	opts    Options
	fetch   FetchFunc[T]
	handle  HandleFunc[T]
	logger  *slog.Logger
	onError func(error)

	inFlight atomic.Bool
	alive    atomic.Bool
	cycles   atomic.Uint64
	skipped  atomic.Uint64
	failures atomic.Uint64

	poke    chan struct{}
	results chan result[T]
	done    chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New constructs a loop for the named view.
func New[T any](view string, opts Options, fetch FetchFunc[T], handle HandleFunc[T], options ...Option) *Loop[T] {
	s := settings{}
	for _, opt := range options {
		opt(&s)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	logger := logging.NewComponentLogger(s.logger, "poller").With(logging.String(logging.FieldView, view))
	return &Loop[T]{
		view:    view,
		opts:    opts,
		fetch:   fetch,
		handle:  handle,
		logger:  logger,
		onError: s.onError,
		poke:    make(chan struct{}, 1),
		results: make(chan result[T], 1),
		done:    make(chan struct{}),
	}
}

// View returns the view name.
func (l *Loop[T]) View() string {
	return l.view
}

// Run ticks until ctx is cancelled or Stop is called. A loop runs at most once.
func (l *Loop[T]) Run(ctx context.Context) error {
	if l.opts.Interval <= 0 {
		return errors.New("poller: interval must be positive")
	}
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(logging.WithView(ctx, l.view))
	l.started = true
	l.cancel = cancel
	l.alive.Store(true)
	l.mu.Unlock()

	defer close(l.done)
	defer l.alive.Store(false)
	defer cancel()

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	l.logger.Debug("poll loop started", logging.Duration("interval", l.opts.Interval))
	if l.opts.Immediate {
		l.trigger(runCtx)
	}

	for {
		select {
		case <-runCtx.Done():
			l.logger.Debug("poll loop stopped",
				logging.Uint64("cycles", l.cycles.Load()),
				logging.Uint64("skipped", l.skipped.Load()),
			)
			return ctx.Err()
		case <-ticker.C:
			l.trigger(runCtx)
		case <-l.poke:
			l.trigger(runCtx)
		case res := <-l.results:
			if !l.alive.Load() || runCtx.Err() != nil {
				l.logger.Debug("discarding fetch result after stop")
			} else {
				l.complete(runCtx, res)
			}
			l.inFlight.Store(false)
		}
	}
}

// RunOnce performs one synchronous cycle on the caller's goroutine.
func (l *Loop[T]) RunOnce(ctx context.Context) error {
	if !l.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer l.inFlight.Store(false)

	ctx = logging.WithView(ctx, l.view)
	fetchCtx, cancel := context.WithTimeout(ctx, l.opts.FetchTimeout)
	value, err := l.fetch(fetchCtx)
	cancel()
	return l.complete(ctx, result[T]{value: value, err: err})
}

// Poke requests an immediate cycle. It never blocks; a poke while one is
// already pending is coalesced.
func (l *Loop[T]) Poke() {
	select {
	case l.poke <- struct{}{}:
	default:
	}
}

// Stop ends the loop. It is safe to call from the handler.
func (l *Loop[T]) Stop() {
	l.alive.Store(false)
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when Run returns.
func (l *Loop[T]) Done() <-chan struct{} {
	return l.done
}

// Alive reports whether the loop is running and accepting results.
func (l *Loop[T]) Alive() bool {
	return l.alive.Load()
}

// Stats returns activity counters.
func (l *Loop[T]) Stats() Stats {
	return Stats{
		Cycles:   l.cycles.Load(),
		Skipped:  l.skipped.Load(),
		Failures: l.failures.Load(),
	}
}

func (l *Loop[T]) trigger(runCtx context.Context) {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		l.logger.Debug("previous fetch still in flight; tick skipped")
		return
	}
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), l.opts.FetchTimeout)
	go func() {
		defer cancel()
		value, err := l.fetch(fetchCtx)
		if !l.alive.Load() {
			l.logger.Debug("discarding fetch result after stop")
			return
		}
		// Capacity one and a single fetch in flight: never blocks.
		l.results <- result[T]{value: value, err: err}
	}()
}

func (l *Loop[T]) complete(ctx context.Context, res result[T]) error {
	l.cycles.Add(1)
	if res.err != nil {
		err := &CycleError{View: l.view, Stage: StageFetch, Err: res.err}
		l.report(err)
		return err
	}
	if l.handle == nil {
		return nil
	}
	if err := l.handle(ctx, res.value); err != nil {
		var cycleErr *CycleError
		if !errors.As(err, &cycleErr) {
			err = &CycleError{View: l.view, Stage: StageApply, Err: err}
		}
		l.report(err)
		return err
	}
	return nil
}

func (l *Loop[T]) report(err error) {
	l.failures.Add(1)
	stage := StageApply
	var cycleErr *CycleError
	if errors.As(err, &cycleErr) {
		stage = cycleErr.Stage
	}
	if !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(l.logger, "poll cycle skipped", eventType(stage),
			logging.Error(err),
			logging.String("stage", string(stage)),
			logging.String(logging.FieldErrorHint, errorHint(stage)),
		)
	}
	if l.onError != nil {
		l.onError(err)
	}
}
