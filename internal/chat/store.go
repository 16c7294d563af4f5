package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/motilal0/plcc-cortex-analyst/internal/observability"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
)

// AcquireFunc opens the warehouse connection a new session will pin.
type AcquireFunc func(ctx context.Context) (SessionConn, error)

// Store is the per-process session registry. Sessions are isolated from
// each other; the registry itself is the only shared structure.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	acquire     AcquireFunc
	maxSessions int
}

func NewStore(acquire AcquireFunc, maxSessions int) *Store {
	return &Store{
		sessions:    map[string]*Session{},
		acquire:     acquire,
		maxSessions: maxSessions,
	}
}

// Create initializes a session, opening its warehouse connection. Creating
// an already-initialized session is a no-op returning the existing one, so
// re-entry never resets a transcript. An empty id gets a generated one.
// The second return reports whether a new session was created.
func (s *Store) Create(ctx context.Context, id string) (*Session, bool, error) {
	s.mu.Lock()
	if id != "" {
		if existing, ok := s.sessions[id]; ok {
			s.mu.Unlock()
			return existing, false, nil
		}
	} else {
		id = uuid.NewString()
	}
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return nil, false, ErrSessionLimit
	}
	s.mu.Unlock()

	var conn SessionConn
	if s.acquire != nil {
		acquired, err := s.acquire(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("open session connection: %w", err)
		}
		conn = acquired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		// lost the race; keep the first session
		if conn != nil {
			_ = conn.Close()
		}
		return existing, false, nil
	}
	session := NewSession(id, conn)
	s.sessions[id] = session
	observability.SetActiveSessions(len(s.sessions))
	return session, true, nil
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Remove ends a session and releases its warehouse connection.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		observability.SetActiveSessions(len(s.sessions))
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return session.close()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close releases every live session. Called on server shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = map[string]*Session{}
	observability.SetActiveSessions(0)
	s.mu.Unlock()

	var firstErr error
	for _, session := range sessions {
		if err := session.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
