package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
)

// InMemoryStore is a directory backed by a map, for tests and local runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	subjects    map[id.SubjectID]identity.Subject
	contracts   map[string]id.SubjectID
	phoneDigits int
}

func New(phoneDigits int) *InMemoryStore {
	return &InMemoryStore{
		subjects:    make(map[id.SubjectID]identity.Subject),
		contracts:   make(map[string]id.SubjectID),
		phoneDigits: phoneDigits,
	}
}

// Seed inserts or replaces subjects.
func (s *InMemoryStore) Seed(subjects ...identity.Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, subject := range subjects {
		s.subjects[subject.ID] = subject
	}
}

// LinkContract records subjectID as the main holder of a contract number.
func (s *InMemoryStore) LinkContract(number string, subjectID id.SubjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[strings.ToUpper(strings.TrimSpace(number))] = subjectID
}

func (s *InMemoryStore) FindByPhone(_ context.Context, number string) ([]identity.Subject, error) {
	suffix := identity.PhoneSuffix(number, s.phoneDigits)
	if suffix == "" {
		return nil, nil
	}
	// Same rule as the SQL directory: the stored digits end with the suffix.
	return s.filter(func(subject identity.Subject) bool {
		return strings.HasSuffix(identity.Digits(subject.Phone), suffix)
	}), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) ([]identity.Subject, error) {
	email = strings.TrimSpace(email)
	return s.filter(func(subject identity.Subject) bool {
		return strings.EqualFold(subject.Email, email)
	}), nil
}

func (s *InMemoryStore) FindByFullName(_ context.Context, surname, givenName string) ([]identity.Subject, error) {
	surname, givenName = strings.TrimSpace(surname), strings.TrimSpace(givenName)
	return s.filter(func(subject identity.Subject) bool {
		return strings.EqualFold(subject.Surname, surname) && strings.EqualFold(subject.GivenName, givenName)
	}), nil
}

func (s *InMemoryStore) FindByContractNumber(_ context.Context, number string) ([]identity.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holder, ok := s.contracts[strings.ToUpper(strings.TrimSpace(number))]
	if !ok {
		return nil, nil
	}
	subject, ok := s.subjects[holder]
	if !ok {
		return nil, nil
	}
	return []identity.Subject{subject}, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, subjectID id.SubjectID) (*identity.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.subjects[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &subject, nil
}

func (s *InMemoryStore) UpdateContact(_ context.Context, subjectID id.SubjectID, update identity.ContactUpdate) (bool, error) {
	if update.IsEmpty() {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[subjectID]
	if !ok {
		return false, nil
	}
	update.Apply(&subject)
	s.subjects[subjectID] = subject
	return true, nil
}

// filter returns matches ordered by id so results are stable.
func (s *InMemoryStore) filter(match func(identity.Subject) bool) []identity.Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []identity.Subject
	for _, subject := range s.subjects {
		if match(subject) {
			out = append(out, subject)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
