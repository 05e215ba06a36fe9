package customer

import (
	"context"

	"barberq/internal/barbershop"
	"barberq/internal/logging"
	"barberq/internal/poller"
	"barberq/internal/session"
)

// Update is one tracker observation.
type Update struct {
	Status Status
	// Missing counts consecutive "not found" answers.
	Missing int
	// Gone is set once Missing reaches the tolerance; it is the last update.
	Gone bool
	// Err is a fetch failure. The previous standing still holds.
	Err error
}

// Tracker follows the saved client's position until it leaves the queue.
type Tracker struct {
	svc       *Service
	sess      session.Session
	tolerance int
	onUpdate  func(Update)
	loop      *poller.Loop[barbershop.Position]
	missing   int
	gone      bool
}

// Track builds a tracker for sess. onUpdate runs on the tracker's loop
// goroutine.
func (s *Service) Track(sess session.Session, onUpdate func(Update)) *Tracker {
	tolerance := s.cfg.Polling.MissingTolerance
	if tolerance < 1 {
		tolerance = 1
	}
	t := &Tracker{
		svc:       s,
		sess:      sess,
		tolerance: tolerance,
		onUpdate:  onUpdate,
	}
	opts := poller.Options{
		Interval:     s.cfg.PollInterval(),
		FetchTimeout: s.cfg.FetchTimeout(),
		Immediate:    true,
	}
	t.loop = poller.New("position:"+sess.ClientID, opts, t.fetch, t.handle,
		poller.WithLogger(s.logger),
		poller.WithErrorHandler(t.fetchFailed),
	)
	return t
}

// Run polls until ctx ends or the client is gone.
func (t *Tracker) Run(ctx context.Context) error {
	err := t.loop.Run(ctx)
	if t.gone {
		return nil
	}
	return err
}

// Check runs one tracking cycle on the caller's goroutine.
func (t *Tracker) Check(ctx context.Context) error {
	return t.loop.RunOnce(ctx)
}

// Stop ends tracking.
func (t *Tracker) Stop() {
	t.loop.Stop()
}

// Gone reports whether the client was found to have left the queue.
func (t *Tracker) Gone() bool {
	select {
	case <-t.loop.Done():
		return t.gone
	default:
		return false
	}
}

func (t *Tracker) fetch(ctx context.Context) (barbershop.Position, error) {
	return t.svc.api.Position(ctx, t.sess.ClientID)
}

func (t *Tracker) handle(ctx context.Context, pos barbershop.Position) error {
	if pos.Found {
		t.missing = 0
		t.emit(Update{Status: t.svc.status(t.sess, pos)})
		return nil
	}

	t.missing++
	if t.missing < t.tolerance {
		t.svc.logger.Debug("client not found; waiting for confirmation",
			logging.String(logging.FieldClientID, t.sess.ClientID),
			logging.Int("missing", t.missing),
			logging.Int("tolerance", t.tolerance),
		)
		t.emit(Update{Status: t.svc.status(t.sess, pos), Missing: t.missing})
		return nil
	}

	t.gone = true
	if err := t.svc.store.Clear(ctx); err != nil {
		logging.WarnWithContext(t.svc.logger, "session clear failed", "session_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next status check will look up a client that left"),
			logging.String(logging.FieldErrorHint, "run `barberq leave` to clear it"),
		)
	}
	t.svc.logger.Info("client left the queue",
		logging.String(logging.FieldClientID, t.sess.ClientID),
		logging.String(logging.FieldBarber, t.sess.Barber),
	)
	t.emit(Update{Status: t.svc.status(t.sess, pos), Missing: t.missing, Gone: true})
	t.loop.Stop()
	return nil
}

func (t *Tracker) fetchFailed(err error) {
	t.emit(Update{Status: Status{Session: t.sess, BarberName: t.svc.cfg.DisplayName(t.sess.Barber)}, Missing: t.missing, Err: err})
}

func (t *Tracker) emit(u Update) {
	if t.onUpdate != nil {
		t.onUpdate(u)
	}
}

// WatchPreview polls barber's queue length and reports the position a new
// client would get each cycle. Errors are reported with position 0.
func (s *Service) WatchPreview(barber string, onUpdate func(position int, err error)) (*poller.Loop[int], error) {
	b, ok := s.cfg.Barber(barber)
	if !ok {
		return nil, &UnknownBarberError{ID: barber}
	}
	opts := poller.Options{
		Interval:     s.cfg.PollInterval(),
		FetchTimeout: s.cfg.FetchTimeout(),
		Immediate:    true,
	}
	loop := poller.New("preview:"+b.ID, opts,
		func(ctx context.Context) (int, error) { return s.Preview(ctx, b.ID) },
		func(_ context.Context, position int) error {
			onUpdate(position, nil)
			return nil
		},
		poller.WithLogger(s.logger),
		poller.WithErrorHandler(func(err error) { onUpdate(0, err) }),
	)
	return loop, nil
}
