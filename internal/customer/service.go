package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"barberq/internal/barbershop"
	"barberq/internal/config"
	"barberq/internal/logging"
	"barberq/internal/session"
)

var (
	// ErrNameRequired is reported when the customer leaves the name blank.
	ErrNameRequired = errors.New("enter your name")
	// ErrBarberRequired is reported when no barber was chosen.
	ErrBarberRequired = errors.New("select a barber")
	// ErrAlreadyQueued is returned by Join while a saved session exists.
	ErrAlreadyQueued = errors.New("already waiting in a queue")
)

// UnknownBarberError names a barber that is not configured.
type UnknownBarberError struct {
	ID string
}

func (e *UnknownBarberError) Error() string {
	return fmt.Sprintf("unknown barber %q", e.ID)
}

// API is the subset of the backend client the customer flows use.
type API interface {
	Queue(ctx context.Context, barber string) ([]barbershop.QueueEntry, error)
	Join(ctx context.Context, name, barber string) (barbershop.Ticket, error)
	Leave(ctx context.Context, clientID string) error
	Position(ctx context.Context, clientID string) (barbershop.Position, error)
}

// Ticket describes a successful join.
type Ticket struct {
	ClientID   string
	Name       string
	Barber     string
	BarberName string
	Position   int
}

// Status is the customer's current standing.
type Status struct {
	Session    session.Session
	BarberName string
	Found      bool
	Position   int
}

// Service runs customer flows against one backend.
type Service struct {
	cfg    *config.Config
	api    API
	store  *session.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires the customer flows.
func NewService(cfg *config.Config, api API, store *session.Store, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		api:    api,
		store:  store,
		logger: logging.NewComponentLogger(logger, "customer"),
		now:    time.Now,
	}
}

// ValidateJoin checks the join form. Every problem is reported, joined.
func (s *Service) ValidateJoin(name, barber string) error {
	var problems []error
	if strings.TrimSpace(name) == "" {
		problems = append(problems, ErrNameRequired)
	}
	barber = strings.TrimSpace(barber)
	switch {
	case barber == "":
		problems = append(problems, ErrBarberRequired)
	default:
		if _, ok := s.cfg.Barber(barber); !ok {
			problems = append(problems, &UnknownBarberError{ID: barber})
		}
	}
	return errors.Join(problems...)
}

// Join validates the form, joins the queue, and saves the session.
func (s *Service) Join(ctx context.Context, name, barber string) (Ticket, error) {
	if err := s.ValidateJoin(name, barber); err != nil {
		return Ticket{}, err
	}
	if existing, err := s.store.Load(); err == nil {
		return Ticket{}, fmt.Errorf("%w: client %s with %s", ErrAlreadyQueued, existing.ClientID, s.cfg.DisplayName(existing.Barber))
	} else if !errors.Is(err, session.ErrNoSession) {
		return Ticket{}, err
	}

	b, _ := s.cfg.Barber(barber)
	name = strings.TrimSpace(name)
	resp, err := s.api.Join(ctx, name, b.ID)
	if err != nil {
		return Ticket{}, fmt.Errorf("join queue: %w", err)
	}

	ticket := Ticket{
		ClientID:   resp.ClientID.String(),
		Name:       name,
		Barber:     b.ID,
		BarberName: b.Name,
		Position:   resp.Position,
	}
	sess := session.Session{ClientID: ticket.ClientID, Name: name, Barber: b.ID, JoinedAt: s.now().UTC()}
	if err := s.store.Save(ctx, sess); err != nil {
		return ticket, fmt.Errorf("joined as %s but could not save session: %w", ticket.ClientID, err)
	}
	s.logger.Info("joined queue",
		logging.String(logging.FieldClientID, ticket.ClientID),
		logging.String(logging.FieldBarber, b.ID),
		logging.Int("position", ticket.Position),
	)
	return ticket, nil
}

// Leave removes the saved client from its queue and clears the session. A
// client the backend no longer knows counts as having left.
func (s *Service) Leave(ctx context.Context) (session.Session, error) {
	sess, err := s.store.Load()
	if err != nil {
		return session.Session{}, err
	}
	if err := s.api.Leave(ctx, sess.ClientID); err != nil && !errors.Is(err, barbershop.ErrNotFound) {
		return sess, fmt.Errorf("leave queue: %w", err)
	}
	if err := s.store.Clear(ctx); err != nil {
		return sess, err
	}
	s.logger.Info("left queue",
		logging.String(logging.FieldClientID, sess.ClientID),
		logging.String(logging.FieldBarber, sess.Barber),
	)
	return sess, nil
}

// Preview returns the position a client joining barber now would get.
func (s *Service) Preview(ctx context.Context, barber string) (int, error) {
	b, ok := s.cfg.Barber(barber)
	if !ok {
		if strings.TrimSpace(barber) == "" {
			return 0, ErrBarberRequired
		}
		return 0, &UnknownBarberError{ID: barber}
	}
	entries, err := s.api.Queue(ctx, b.ID)
	if err != nil {
		return 0, fmt.Errorf("preview %s: %w", b.ID, err)
	}
	return len(entries) + 1, nil
}

// Restore loads the saved session, if any.
func (s *Service) Restore() (session.Session, error) {
	return s.store.Load()
}

// Status asks the backend where the saved client stands.
func (s *Service) Status(ctx context.Context) (Status, error) {
	sess, err := s.store.Load()
	if err != nil {
		return Status{}, err
	}
	pos, err := s.api.Position(ctx, sess.ClientID)
	if err != nil {
		return Status{Session: sess, BarberName: s.cfg.DisplayName(sess.Barber)}, fmt.Errorf("position: %w", err)
	}
	return s.status(sess, pos), nil
}

func (s *Service) status(sess session.Session, pos barbershop.Position) Status {
	barber := sess.Barber
	if pos.Barber != "" {
		barber = pos.Barber
	}
	if pos.Name != "" {
		sess.Name = pos.Name
	}
	return Status{
		Session:    sess,
		BarberName: s.cfg.DisplayName(barber),
		Found:      pos.Found,
		Position:   pos.Position,
	}
}
