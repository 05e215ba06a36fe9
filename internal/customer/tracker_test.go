package customer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barberq/internal/barbershop"
	"barberq/internal/customer"
	"barberq/internal/logging"
	"barberq/internal/session"
	"barberq/internal/testsupport"
)

// scriptedAPI answers Position from a script; the last answer repeats.
type scriptedAPI struct {
	mu      sync.Mutex
	answers []positionAnswer
	calls   int
}

type positionAnswer struct {
	pos barbershop.Position
	err error
}

func (a *scriptedAPI) Queue(context.Context, string) ([]barbershop.QueueEntry, error) {
	return nil, nil
}

func (a *scriptedAPI) Join(context.Context, string, string) (barbershop.Ticket, error) {
	return barbershop.Ticket{}, errors.New("not scripted")
}

func (a *scriptedAPI) Leave(context.Context, string) error {
	return nil
}

func (a *scriptedAPI) Position(context.Context, string) (barbershop.Position, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	if idx >= len(a.answers) {
		idx = len(a.answers) - 1
	}
	a.calls++
	return a.answers[idx].pos, a.answers[idx].err
}

func found(position int) positionAnswer {
	return positionAnswer{pos: barbershop.Position{Found: true, Position: position, Barber: "junior", Name: "Ana"}}
}

var missing = positionAnswer{pos: barbershop.Position{Found: false}}

type recorder struct {
	mu      sync.Mutex
	updates []customer.Update
}

func (r *recorder) add(u customer.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) last() customer.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func newTracked(t *testing.T, tolerance int, answers ...positionAnswer) (*customer.Tracker, *session.Store, *recorder) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMissingTolerance(tolerance))
	store := session.NewStore(cfg.Paths.StateDir)
	sess := session.Session{ClientID: "1001", Name: "Ana", Barber: "junior", JoinedAt: time.Now()}
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save: %v", err)
	}
	svc := customer.NewService(cfg, &scriptedAPI{answers: answers}, store, logging.NewNop())
	rec := &recorder{}
	return svc.Track(sess, rec.add), store, rec
}

func TestTrackerToleratesTransientMisses(t *testing.T) {
	tracker, store, rec := newTracked(t, 3, found(2), missing, missing, found(1), missing)
	ctx := context.Background()

	want := []struct {
		found   bool
		missing int
	}{
		{true, 0},
		{false, 1},
		{false, 2},
		{true, 0},
		{false, 1},
	}
	for i, w := range want {
		if err := tracker.Check(ctx); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		u := rec.last()
		if u.Status.Found != w.found || u.Missing != w.missing || u.Gone {
			t.Fatalf("cycle %d: got %+v, want found=%v missing=%d", i, u, w.found, w.missing)
		}
	}
	if _, err := store.Load(); err != nil {
		t.Fatalf("session must survive misses below tolerance: %v", err)
	}
}

func TestTrackerDeclaresGoneAtTolerance(t *testing.T) {
	tracker, store, rec := newTracked(t, 2, found(1), missing)
	ctx := context.Background()

	for range 3 {
		if err := tracker.Check(ctx); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}
	u := rec.last()
	if !u.Gone || u.Missing != 2 {
		t.Fatalf("expected gone after two misses, got %+v", u)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Fatalf("session should be cleared, Load = %v", err)
	}
}

func TestTrackerFetchErrorsDoNotCountAsMisses(t *testing.T) {
	boom := positionAnswer{err: errors.New("connection reset")}
	tracker, _, rec := newTracked(t, 2, missing, boom, boom, boom, found(3))
	ctx := context.Background()

	_ = tracker.Check(ctx)
	for range 3 {
		if err := tracker.Check(ctx); err == nil {
			t.Fatal("expected fetch error")
		}
		u := rec.last()
		if u.Err == nil || u.Missing != 1 || u.Gone {
			t.Fatalf("fetch error changed tracking state: %+v", u)
		}
	}
	if err := tracker.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if u := rec.last(); !u.Status.Found || u.Status.Position != 3 {
		t.Fatalf("unexpected final update %+v", u)
	}
}

func TestTrackerRunStopsWhenGone(t *testing.T) {
	tracker, _, rec := newTracked(t, 1, found(1), missing)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracker.Run(ctx); err != nil {
		t.Fatalf("Run = %v, want nil once the client is gone", err)
	}
	if !tracker.Gone() || !rec.last().Gone {
		t.Fatal("tracker should report the client gone")
	}
}
