package poller_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"barberq/internal/poller"
)

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func startLoop[T any](t *testing.T, loop *poller.Loop[T]) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()
	t.Cleanup(func() {
		loop.Stop()
		<-loop.Done()
	})
	return errCh
}

func TestLoopSkipsTicksWhileFetchInFlight(t *testing.T) {
	release := make(chan struct{})
	var fetches atomic.Int32
	var handled atomic.Int32

	loop := poller.New("junior", poller.Options{Interval: 5 * time.Millisecond, FetchTimeout: time.Second, Immediate: true},
		func(ctx context.Context) (int, error) {
			fetches.Add(1)
			<-release
			return 1, nil
		},
		func(ctx context.Context, v int) error {
			handled.Add(1)
			return nil
		},
	)
	startLoop(t, loop)

	waitFor(t, time.Second, func() bool { return loop.Stats().Skipped >= 3 })
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected a single fetch in flight, got %d", got)
	}

	close(release)
	waitFor(t, time.Second, func() bool { return handled.Load() >= 1 })
}

func TestLoopDiscardsLateResultAfterStop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var handled atomic.Bool

	loop := poller.New("yago", poller.Options{Interval: time.Hour, FetchTimeout: time.Second, Immediate: true},
		func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "late", nil
		},
		func(ctx context.Context, v string) error {
			handled.Store(true)
			return nil
		},
	)
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()

	<-started
	loop.Stop()
	<-loop.Done()
	if loop.Alive() {
		t.Fatal("loop should not be alive after stop")
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Run after Stop returned %v", err)
	}

	close(release)
	time.Sleep(20 * time.Millisecond)
	if handled.Load() {
		t.Fatal("late result must not be handled")
	}
}

// parkingHandler blocks the first goroutine that logs a skipped tick until
// unpark is closed.
type parkingHandler struct {
	once   sync.Once
	parked chan struct{}
	unpark chan struct{}
}

func (h *parkingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *parkingHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "previous fetch still in flight; tick skipped" {
		h.once.Do(func() {
			close(h.parked)
			<-h.unpark
		})
	}
	return nil
}

func (h *parkingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *parkingHandler) WithGroup(string) slog.Handler { return h }

func TestLoopDropsBufferedResultWhenStoppedBeforeHandling(t *testing.T) {
	for i := 0; i < 20; i++ {
		handler := &parkingHandler{parked: make(chan struct{}), unpark: make(chan struct{})}
		release := make(chan struct{})
		fetched := make(chan struct{})
		var handled atomic.Bool

		loop := poller.New("reine", poller.Options{Interval: 2 * time.Millisecond, FetchTimeout: time.Second, Immediate: true},
			func(ctx context.Context) (int, error) {
				defer close(fetched)
				<-release
				return 7, nil
			},
			func(ctx context.Context, v int) error {
				handled.Store(true)
				return nil
			},
			poller.WithLogger(slog.New(handler)),
		)
		errCh := make(chan error, 1)
		go func() { errCh <- loop.Run(context.Background()) }()

		// The loop goroutine is now held inside a log call.
		<-handler.parked
		close(release)
		<-fetched
		time.Sleep(10 * time.Millisecond)
		loop.Stop()
		close(handler.unpark)

		<-loop.Done()
		if err := <-errCh; err != nil {
			t.Fatalf("Run returned %v", err)
		}
		if handled.Load() {
			t.Fatalf("run %d: result handled after Stop", i)
		}
	}
}

func TestLoopFetchSurvivesCancellationUntilTimeout(t *testing.T) {
	fetchErr := make(chan error, 1)
	loop := poller.New("reine", poller.Options{Interval: time.Hour, FetchTimeout: time.Second, Immediate: true},
		func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				fetchErr <- ctx.Err()
			case <-time.After(30 * time.Millisecond):
				fetchErr <- nil
			}
			return 0, nil
		},
		nil,
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	waitFor(t, time.Second, loop.Alive)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if err := <-fetchErr; err != nil {
		t.Fatalf("fetch context was cancelled with the loop: %v", err)
	}
}

func TestLoopPokeTriggersCycle(t *testing.T) {
	var handled atomic.Int32
	loop := poller.New("junior", poller.Options{Interval: time.Hour},
		func(ctx context.Context) (int, error) { return 7, nil },
		func(ctx context.Context, v int) error {
			handled.Add(1)
			return nil
		},
	)
	startLoop(t, loop)
	waitFor(t, time.Second, loop.Alive)

	loop.Poke()
	waitFor(t, time.Second, func() bool { return handled.Load() == 1 })
}

func TestLoopReportsFetchErrors(t *testing.T) {
	boom := errors.New("connection refused")
	var mu sync.Mutex
	var reported []error

	loop := poller.New("junior", poller.Options{Interval: time.Hour},
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context, v int) error {
			t.Fatal("handler must not run on fetch failure")
			return nil
		},
		poller.WithErrorHandler(func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		}),
	)

	err := loop.RunOnce(context.Background())
	var cycleErr *poller.CycleError
	if !errors.As(err, &cycleErr) || cycleErr.Stage != poller.StageFetch || cycleErr.View != "junior" {
		t.Fatalf("RunOnce = %v, want fetch CycleError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatal("CycleError should unwrap to the fetch error")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 {
		t.Fatalf("expected one reported error, got %d", len(reported))
	}
	if stats := loop.Stats(); stats.Failures != 1 || stats.Cycles != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRunOnceIsBusyWhileLoopFetches(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	loop := poller.New("yago", poller.Options{Interval: time.Hour, Immediate: true},
		func(ctx context.Context) (int, error) {
			once.Do(func() { close(started) })
			<-release
			return 0, nil
		},
		nil,
	)
	startLoop(t, loop)
	<-started

	if err := loop.RunOnce(context.Background()); !errors.Is(err, poller.ErrBusy) {
		t.Fatalf("RunOnce = %v, want ErrBusy", err)
	}
	close(release)
}

func TestLoopRunsOnce(t *testing.T) {
	loop := poller.New("junior", poller.Options{Interval: time.Hour},
		func(ctx context.Context) (int, error) { return 0, nil }, nil)
	startLoop(t, loop)
	waitFor(t, time.Second, loop.Alive)

	if err := loop.Run(context.Background()); !errors.Is(err, poller.ErrAlreadyStarted) {
		t.Fatalf("second Run = %v, want ErrAlreadyStarted", err)
	}
}
