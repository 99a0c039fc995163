package store

import (
	"context"
	"sync"

	"voicedesk/internal/journal"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.CallID][]journal.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.CallID][]journal.Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.entries[entry.CallID]
	if n := len(existing); n > 0 && existing[n-1].Seq >= entry.Seq {
		return sentinel.ErrConflict
	}
	s.entries[entry.CallID] = append(existing, entry)
	return nil
}

func (s *InMemoryStore) EntriesFor(_ context.Context, callID id.CallID) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]journal.Entry{}, s.entries[callID]...), nil
}

func (s *InMemoryStore) LastSeq(_ context.Context, callID id.CallID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := s.entries[callID]
	if len(existing) == 0 {
		return 0, nil
	}
	return existing[len(existing)-1].Seq, nil
}
