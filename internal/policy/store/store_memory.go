package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"voicedesk/internal/policy"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
)

// InMemoryStore is the policy store used in tests and local runs.
type InMemoryStore struct {
	mu         sync.RWMutex
	contracts  map[id.ContractID]policy.Contract
	guarantees map[int64][]policy.Guarantee
	claims     map[id.ClaimID]policy.Claim
	nextClaim  id.ClaimID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		contracts:  make(map[id.ContractID]policy.Contract),
		guarantees: make(map[int64][]policy.Guarantee),
		claims:     make(map[id.ClaimID]policy.Claim),
	}
}

func (s *InMemoryStore) SeedContracts(contracts ...policy.Contract) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range contracts {
		s.contracts[c.ID] = c
	}
}

func (s *InMemoryStore) SeedGuarantees(formulaID int64, guarantees ...policy.Guarantee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guarantees[formulaID] = append(s.guarantees[formulaID], guarantees...)
}

func (s *InMemoryStore) SeedClaims(claims ...policy.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range claims {
		s.claims[c.ID] = c
		s.nextClaim = max(s.nextClaim, c.ID)
	}
}

func (s *InMemoryStore) ContractsFor(_ context.Context, subjectID id.SubjectID) ([]policy.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []policy.Contract
	for _, c := range s.contracts {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b policy.Contract) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemoryStore) ContractByID(_ context.Context, contractID id.ContractID) (*policy.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) GuaranteesFor(_ context.Context, formulaID int64) ([]policy.Guarantee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.guarantees[formulaID]), nil
}

func (s *InMemoryStore) GuaranteeByLabel(_ context.Context, formulaID int64, label string) (*policy.Guarantee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guarantees[formulaID] {
		if strings.EqualFold(g.Label, label) {
			return &g, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ClaimsFor(_ context.Context, subjectID id.SubjectID) ([]policy.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []policy.Claim
	for _, c := range s.claims {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b policy.Claim) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *InMemoryStore) ClaimByID(_ context.Context, claimID id.ClaimID) (*policy.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) CreateClaim(_ context.Context, claim policy.Claim) (policy.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[claim.ContractID]; !ok {
		return policy.Claim{}, sentinel.ErrNotFound
	}
	s.nextClaim++
	claim.ID = s.nextClaim
	s.claims[claim.ID] = claim
	return claim, nil
}
