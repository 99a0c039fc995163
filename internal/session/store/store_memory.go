package store

import (
	"context"
	"sync"

	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
)

// InMemorySessionStore keeps sessions in process. Suitable for a single instance.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.CallID]session.Session
}

func NewInMemory() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[id.CallID]session.Session)}
}

func (s *InMemorySessionStore) Get(_ context.Context, callID id.CallID) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[callID]
	if !ok {
		return session.Session{}, sentinel.ErrNotFound
	}
	return sess, nil
}

func (s *InMemorySessionStore) Put(_ context.Context, sess session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.CallID] = sess
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, callID id.CallID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, callID)
	return nil
}
