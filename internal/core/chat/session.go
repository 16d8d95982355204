package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps conversations in memory, one per session ID. Nothing is
// persisted; restarting the process discards all history.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a new session and returns it.
func (s *SessionStore) Create() *Session {
	session := &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session

	return &Session{ID: session.ID, CreatedAt: session.CreatedAt}
}

// Append records a finished turn on a session.
func (s *SessionStore) Append(sessionID uuid.UUID, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	session.Turns = append(session.Turns, turn)
	return nil
}

// History returns a copy of a session's turns in order.
func (s *SessionStore) History(sessionID uuid.UUID) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	turns := make([]Turn, len(session.Turns))
	copy(turns, session.Turns)
	return turns, nil
}
