package session

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wricardo/tictactoe-server/game/engine"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrIDSpaceExhausted = errors.New("could not generate a unique session ID")
)

const (
	idLength      = 6
	idAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxIDAttempts = 16

	// Random bytes at or above this value are rejected so every alphabet
	// character is equally likely.
	idRejectFrom = 256 - 256%len(idAlphabet)
)

// entry guards one session. createdAt is immutable so the sweep can read it
// without taking mu.
type entry struct {
	mu        sync.Mutex
	session   *Session
	createdAt time.Time
	removed   atomic.Bool
}

// LeaveResult describes what happened when a connection left a session.
type LeaveResult struct {
	Removed   bool
	Deleted   bool
	Remaining int
	Session   Session
}

// Manager is the registry of live sessions.
//
// The id map is guarded by an RWMutex; each session has its own mutex, so
// mutations on different sessions never wait on each other. The map lock is
// never held while waiting for a session lock.
type Manager struct {
	sessions map[string]*entry
	mu       sync.RWMutex
	clock    clockwork.Clock
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for creation times and the sweeper.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithIDGenerator replaces the random id source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates an empty registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		clock:    clockwork.NewRealClock(),
		newID:    generateSessionID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stores a fresh session under a new id and returns a snapshot of it.
// Colliding ids are regenerated.
func (m *Manager) Create() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range maxIDAttempts {
		id := NormalizeID(m.newID())
		if id == "" {
			continue
		}
		if _, exists := m.sessions[id]; exists {
			continue
		}

		now := m.clock.Now()
		sess := New(id, now)
		m.sessions[id] = &entry{session: sess, createdAt: now}
		return sess.Snapshot(), nil
	}

	return Session{}, ErrIDSpaceExhausted
}

// Get returns a snapshot of the session (case-insensitive id).
func (m *Manager) Get(id string) (Session, error) {
	var snap Session
	err := m.withEntry(id, func(e *entry) error {
		snap = e.session.Snapshot()
		return nil
	})
	return snap, err
}

// List returns snapshots of all sessions ordered by creation time.
func (m *Manager) List() []Session {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	result := make([]Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed.Load() {
			result = append(result, e.session.Snapshot())
		}
		e.mu.Unlock()
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// WithSession runs fn with exclusive access to the session. It is the only
// way to mutate a session. fn must not retain the pointer.
func (m *Manager) WithSession(id string, fn func(*Session) error) error {
	return m.withEntry(id, func(e *entry) error {
		if err := fn(e.session); err != nil {
			return err
		}
		e.session.UpdatedAt = m.clock.Now()
		return nil
	})
}

// Join seats a connection in the session and returns its symbol together
// with the session state right after the join.
func (m *Manager) Join(id, connID, name string) (engine.Symbol, Session, error) {
	var (
		symbol engine.Symbol
		snap   Session
	)
	err := m.WithSession(id, func(s *Session) error {
		var err error
		symbol, err = s.AddPlayer(connID, name)
		if err != nil {
			return err
		}
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return engine.None, Session{}, err
	}
	return symbol, snap, nil
}

// Leave removes the connection's player from the session. A session left
// without players is deleted in the same critical section, so no join can
// slip in between.
func (m *Manager) Leave(id, connID string) (LeaveResult, error) {
	var res LeaveResult
	err := m.withEntry(id, func(e *entry) error {
		res.Removed = e.session.RemovePlayer(connID)
		res.Remaining = len(e.session.Players)
		if res.Removed {
			e.session.UpdatedAt = m.clock.Now()
		}
		res.Session = e.session.Snapshot()

		if res.Removed && res.Remaining == 0 {
			m.remove(e.session.ID, e)
			res.Deleted = true
		}
		return nil
	})
	return res, err
}

// Delete removes a session regardless of its state.
func (m *Manager) Delete(id string) error {
	key := NormalizeID(id)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.sessions[key]
	if !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	e.removed.Store(true)
	return nil
}

// SweepExpired removes every session created more than maxAge ago,
// whatever its status, and returns how many were removed.
func (m *Manager) SweepExpired(maxAge time.Duration) int {
	cutoff := m.clock.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if e.createdAt.Before(cutoff) {
			delete(m.sessions, id)
			e.removed.Store(true)
			removed++
		}
	}
	return removed
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if removed := m.SweepExpired(maxAge); removed > 0 {
				slog.InfoContext(ctx, "Removed expired games", "removed", removed, "remaining", m.Count())
			}
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// withEntry locks the entry for id and runs fn, treating entries removed
// while we waited as missing.
func (m *Manager) withEntry(id string, fn func(*entry) error) error {
	m.mu.RLock()
	e, exists := m.sessions[NormalizeID(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.removed.Load() {
		return ErrSessionNotFound
	}
	return fn(e)
}

// remove drops e from the map if it is still the entry stored under id.
// Callers hold e.mu; lock order is always entry then map.
func (m *Manager) remove(id string, e *entry) {
	m.mu.Lock()
	if m.sessions[id] == e {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	e.removed.Store(true)
}

// NormalizeID returns the canonical form of a session id; lookups are
// case-insensitive.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// generateSessionID returns a short, human-enterable id drawn from
// [0-9A-Z] using crypto/rand.
func generateSessionID() string {
	out := make([]byte, 0, idLength)
	var buf [16]byte
	for len(out) < idLength {
		if _, err := rand.Read(buf[:]); err != nil {
			return ""
		}
		for _, b := range buf {
			if int(b) >= idRejectFrom {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == idLength {
				break
			}
		}
	}
	return string(out)
}
