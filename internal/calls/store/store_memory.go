package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"voicedesk/internal/calls"
	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"
)

// InMemoryStore implements both calls.SummaryStore and calls.ErrorStore.
type InMemoryStore struct {
	mu        sync.RWMutex
	summaries map[id.CallID]calls.Summary
	errors    map[id.CallID][]calls.ErrorRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		summaries: make(map[id.CallID]calls.Summary),
		errors:    make(map[id.CallID][]calls.ErrorRecord),
	}
}

func (s *InMemoryStore) Create(_ context.Context, summary calls.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.summaries[summary.CallID]; exists {
		return sentinel.ErrConflict
	}
	s.summaries[summary.CallID] = summary
	return nil
}

func (s *InMemoryStore) SetResolvedSubject(_ context.Context, callID id.CallID, subjectID id.SubjectID) error {
	return s.update(callID, func(summary *calls.Summary) {
		resolved := subjectID
		summary.ResolvedSubjectID = &resolved
	})
}

func (s *InMemoryStore) SetEnded(_ context.Context, callID id.CallID, endedAt time.Time, resolutionSummary string) error {
	return s.update(callID, func(summary *calls.Summary) {
		summary.EndedAt = &endedAt
		summary.ResolutionSummary = resolutionSummary
	})
}

func (s *InMemoryStore) SetEvaluation(_ context.Context, callID id.CallID, eval calls.Evaluation, evaluatedAt time.Time) error {
	return s.update(callID, func(summary *calls.Summary) {
		summary.PromptEvaluation = eval.PromptEvaluation
		summary.ResolutionEvaluation = eval.ResolutionEvaluation
		summary.EvaluatedAt = &evaluatedAt
	})
}

func (s *InMemoryStore) Get(_ context.Context, callID id.CallID) (*calls.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[callID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &summary, nil
}

// ListPendingEvaluation returns ended, unevaluated calls, oldest end first.
func (s *InMemoryStore) ListPendingEvaluation(_ context.Context, limit int) ([]id.CallID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []calls.Summary
	for _, summary := range s.summaries {
		if summary.EndedAt != nil && summary.EvaluatedAt == nil {
			pending = append(pending, summary)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].EndedAt.Before(*pending[j].EndedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]id.CallID, 0, len(pending))
	for _, summary := range pending {
		out = append(out, summary.CallID)
	}
	return out, nil
}

func (s *InMemoryStore) Record(_ context.Context, rec calls.ErrorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[rec.CallID] = append(s.errors[rec.CallID], rec)
	return nil
}

func (s *InMemoryStore) CountForCall(_ context.Context, callID id.CallID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errors[callID]), nil
}

// ListSummaries returns one page of matching calls, most recent first, and
// the number of matches.
func (s *InMemoryStore) ListSummaries(_ context.Context, filter calls.SummaryFilter) ([]calls.Summary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	digits := identity.Digits(filter.CallerNumber)
	var matches []calls.Summary
	for _, summary := range s.summaries {
		if !inWindow(summary.StartedAt, filter.From, filter.To) {
			continue
		}
		if filter.SubjectID != 0 && (summary.ResolvedSubjectID == nil || *summary.ResolvedSubjectID != filter.SubjectID) {
			continue
		}
		if digits != "" && !strings.Contains(identity.Digits(summary.CallerNumber), digits) {
			continue
		}
		matches = append(matches, summary)
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].StartedAt.Equal(matches[j].StartedAt) {
			return matches[i].StartedAt.After(matches[j].StartedAt)
		}
		return matches[i].CallID.String() < matches[j].CallID.String()
	})
	return paginate(matches, filter.Limit, filter.Offset), len(matches), nil
}

// ListErrors returns one page of matching error records, most recent first,
// and the number of matches.
func (s *InMemoryStore) ListErrors(_ context.Context, filter calls.ErrorFilter) ([]calls.ErrorRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source := strings.ToLower(strings.TrimSpace(filter.Source))
	var matches []calls.ErrorRecord
	for callID, records := range s.errors {
		if !filter.CallID.IsNil() && callID != filter.CallID {
			continue
		}
		for _, rec := range records {
			if !inWindow(rec.OccurredAt, filter.From, filter.To) {
				continue
			}
			if source != "" && !strings.Contains(strings.ToLower(rec.Source), source) {
				continue
			}
			matches = append(matches, rec)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].OccurredAt.Equal(matches[j].OccurredAt) {
			return matches[i].OccurredAt.After(matches[j].OccurredAt)
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	return paginate(matches, filter.Limit, filter.Offset), len(matches), nil
}

// KPIs aggregates the calls started and the errors raised in [from, to).
// Zero bounds are open.
func (s *InMemoryStore) KPIs(_ context.Context, from, to time.Time) (calls.KPIs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		kpis     calls.KPIs
		ended    int
		duration time.Duration
	)
	for _, summary := range s.summaries {
		if !inWindow(summary.StartedAt, from, to) {
			continue
		}
		kpis.TotalCalls++
		if summary.ResolvedSubjectID != nil {
			kpis.ConfirmedCalls++
		}
		if summary.EndedAt != nil {
			ended++
			duration += summary.EndedAt.Sub(summary.StartedAt)
		}
	}
	if ended > 0 {
		kpis.AverageDurationSeconds = duration.Seconds() / float64(ended)
	}
	for _, records := range s.errors {
		for _, rec := range records {
			if inWindow(rec.OccurredAt, from, to) {
				kpis.ErrorCount++
			}
		}
	}
	return kpis.WithRate(), nil
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (s *InMemoryStore) update(callID id.CallID, mutate func(*calls.Summary)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[callID]
	if !ok {
		return sentinel.ErrNotFound
	}
	mutate(&summary)
	s.summaries[callID] = summary
	return nil
}
