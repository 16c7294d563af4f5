package chat

import (
	"sync"
	"time"

	"github.com/motilal0/plcc-cortex-analyst/internal/warehouse"
)

// SessionConn is the warehouse connection a session pins for its lifetime.
type SessionConn interface {
	warehouse.Executor
	Close() error
}

// Session owns one conversation: the transcript, the single pending
// active-suggestion slot, and the pinned warehouse connection. All state
// access goes through the session's own lock; cycleMu additionally
// serializes whole dispatch cycles so a session only ever has one flow of
// control mutating it.
type Session struct {
	id        string
	createdAt time.Time
	conn      SessionConn

	cycleMu sync.Mutex

	mu               sync.Mutex
	transcript       Transcript
	activeSuggestion string
	hasSuggestion    bool
}

func NewSession(id string, conn SessionConn) *Session {
	return &Session{id: id, createdAt: time.Now().UTC(), conn: conn}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) Executor() warehouse.Executor {
	return s.conn
}

func (s *Session) Append(message Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript.Append(message)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Len()
}

func (s *Session) MessageAt(index int) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.At(index)
}

// Messages returns an immutable snapshot of the transcript in insertion
// order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Message, 0, s.transcript.Len())
	for _, message := range s.transcript.All() {
		snapshot = append(snapshot, message)
	}
	return snapshot
}

// SetActiveSuggestion stages one auto-continuation prompt. A later click
// replaces an unconsumed one; there is never more than one pending.
func (s *Session) SetActiveSuggestion(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSuggestion = prompt
	s.hasSuggestion = true
}

// TakeActiveSuggestion consumes the pending suggestion, clearing the slot.
func (s *Session) TakeActiveSuggestion() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSuggestion {
		return "", false
	}
	prompt := s.activeSuggestion
	s.activeSuggestion = ""
	s.hasSuggestion = false
	return prompt, true
}

func (s *Session) HasActiveSuggestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSuggestion
}

func (s *Session) lockCycle()   { s.cycleMu.Lock() }
func (s *Session) unlockCycle() { s.cycleMu.Unlock() }

func (s *Session) close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
