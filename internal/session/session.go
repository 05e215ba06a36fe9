// Package session persists the customer's place in a queue between barberq
// invocations.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"
)

const (
	fileName     = "session.toml"
	lockFileName = "session.lock"
	lockRetry    = 50 * time.Millisecond
)

// ErrNoSession is returned when no session has been saved.
var ErrNoSession = errors.New("no saved queue session")

// Session is the customer's saved queue ticket.
type Session struct {
	ClientID string    `toml:"client_id"`
	Name     string    `toml:"name"`
	Barber   string    `toml:"barber"`
	JoinedAt time.Time `toml:"joined_at"`
}

// Valid reports whether the session identifies a queued client.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.ClientID) != "" && strings.TrimSpace(s.Barber) != ""
}

// Store reads and writes the session file under a state directory.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore builds a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		path: filepath.Join(dir, fileName),
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved session. A missing or incomplete file is ErrNoSession.
func (s *Store) Load() (Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := toml.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if !sess.Valid() {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Save replaces the saved session.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if !sess.Valid() {
		return errors.New("session requires a client id and a barber")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(sess); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return s.withLock(ctx, func() error {
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return fmt.Errorf("replace session: %w", err)
		}
		return nil
	})
}

// Clear removes the saved session. Clearing a missing session is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return s.withLock(ctx, func() error {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session: %w", err)
		}
		return nil
	})
}

func (s *Store) withLock(ctx context.Context, fn func() error) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	if !locked {
		return errors.New("lock session: not acquired")
	}
	defer func() {
		_ = s.lock.Unlock()
	}()
	return fn()
}
