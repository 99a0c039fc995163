package store

import (
	"context"
	"testing"
	"time"

	"voicedesk/internal/calls"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type MemoryCallStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	start time.Time
}

func TestMemoryCallStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryCallStoreSuite))
}

func (s *MemoryCallStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.start = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *MemoryCallStoreSuite) create() id.CallID {
	callID := id.NewCallID()
	s.Require().NoError(s.store.Create(s.ctx, calls.Summary{CallID: callID, StartedAt: s.start}))
	return callID
}

func (s *MemoryCallStoreSuite) TestCreateRejectsDuplicates() {
	callID := s.create()
	err := s.store.Create(s.ctx, calls.Summary{CallID: callID})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *MemoryCallStoreSuite) TestSettersOnUnknownCall() {
	unknown := id.NewCallID()
	s.ErrorIs(s.store.SetResolvedSubject(s.ctx, unknown, 1), sentinel.ErrNotFound)
	s.ErrorIs(s.store.SetEnded(s.ctx, unknown, s.start, ""), sentinel.ErrNotFound)
	s.ErrorIs(s.store.SetEvaluation(s.ctx, unknown, calls.Evaluation{}, s.start), sentinel.ErrNotFound)
}

func (s *MemoryCallStoreSuite) TestLifecycleAndPending() {
	first := s.create()
	second := s.create()
	third := s.create()

	s.Require().NoError(s.store.SetResolvedSubject(s.ctx, first, 9))
	s.Require().NoError(s.store.SetEnded(s.ctx, second, s.start.Add(2*time.Minute), "done"))
	s.Require().NoError(s.store.SetEnded(s.ctx, first, s.start.Add(time.Minute), "done"))

	pending, err := s.store.ListPendingEvaluation(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal([]id.CallID{first, second}, pending)

	s.Require().NoError(s.store.SetEvaluation(s.ctx, first, calls.Evaluation{PromptEvaluation: "p"}, s.start))
	pending, err = s.store.ListPendingEvaluation(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal([]id.CallID{second}, pending)

	summary, err := s.store.Get(s.ctx, first)
	s.Require().NoError(err)
	s.Require().NotNil(summary.ResolvedSubjectID)
	s.Equal(id.SubjectID(9), *summary.ResolvedSubjectID)
	s.Equal("p", summary.PromptEvaluation)

	_, err = s.store.Get(s.ctx, third)
	s.Require().NoError(err)
}

func (s *MemoryCallStoreSuite) TestErrorRecords() {
	callID := s.create()
	s.Require().NoError(s.store.Record(s.ctx, calls.ErrorRecord{ID: uuid.New(), CallID: callID, Source: "create_claim"}))
	s.Require().NoError(s.store.Record(s.ctx, calls.ErrorRecord{ID: uuid.New(), CallID: callID, Source: "journal"}))

	n, err := s.store.CountForCall(s.ctx, callID)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.store.CountForCall(s.ctx, id.NewCallID())
	s.Require().NoError(err)
	s.Zero(n)
}

// seedHistory creates three calls an hour apart: a confirmed 2-minute call
// for subject 2, an unconfirmed 4-minute call, and one still running.
func (s *MemoryCallStoreSuite) seedHistory() []id.CallID {
	numbers := []string{"+33 6 12 34 56 78", "06 98 76 54 32", "+33612345678"}
	out := make([]id.CallID, len(numbers))
	for i, number := range numbers {
		out[i] = id.NewCallID()
		started := s.start.Add(time.Duration(i) * time.Hour)
		s.Require().NoError(s.store.Create(s.ctx, calls.Summary{CallID: out[i], CallerNumber: number, StartedAt: started}))
	}
	s.Require().NoError(s.store.SetResolvedSubject(s.ctx, out[0], 2))
	s.Require().NoError(s.store.SetEnded(s.ctx, out[0], s.start.Add(2*time.Minute), ""))
	s.Require().NoError(s.store.SetEnded(s.ctx, out[1], s.start.Add(time.Hour+4*time.Minute), ""))
	return out
}

func (s *MemoryCallStoreSuite) TestListSummaries() {
	ids := s.seedHistory()

	s.Run("most recent first with total", func() {
		got, total, err := s.store.ListSummaries(s.ctx, calls.SummaryFilter{Limit: 2})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(got, 2)
		s.Equal(ids[2], got[0].CallID)
		s.Equal(ids[1], got[1].CallID)
	})

	s.Run("offset past the end", func() {
		got, total, err := s.store.ListSummaries(s.ctx, calls.SummaryFilter{Offset: 5})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(got)
	})

	s.Run("caller digits and window", func() {
		got, total, err := s.store.ListSummaries(s.ctx, calls.SummaryFilter{
			CallerNumber: "12 34 56",
			From:         s.start,
			To:           s.start.Add(2 * time.Hour),
		})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal(ids[0], got[0].CallID)
	})

	s.Run("resolved subject", func() {
		got, _, err := s.store.ListSummaries(s.ctx, calls.SummaryFilter{SubjectID: 2})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(ids[0], got[0].CallID)
	})
}

func (s *MemoryCallStoreSuite) TestListErrors() {
	callID := s.create()
	for i, source := range []string{"create_claim", "journal", "Create_Claim"} {
		s.Require().NoError(s.store.Record(s.ctx, calls.ErrorRecord{
			ID: uuid.New(), CallID: callID, Source: source, OccurredAt: s.start.Add(time.Duration(i) * time.Minute),
		}))
	}
	s.Require().NoError(s.store.Record(s.ctx, calls.ErrorRecord{ID: uuid.New(), Source: "evaluator", OccurredAt: s.start}))

	got, total, err := s.store.ListErrors(s.ctx, calls.ErrorFilter{Source: "claim"})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal("Create_Claim", got[0].Source)

	got, total, err = s.store.ListErrors(s.ctx, calls.ErrorFilter{CallID: callID, From: s.start.Add(time.Minute)})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(got, 2)

	_, total, err = s.store.ListErrors(s.ctx, calls.ErrorFilter{})
	s.Require().NoError(err)
	s.Equal(4, total)
}

func (s *MemoryCallStoreSuite) TestKPIs() {
	ids := s.seedHistory()
	s.Require().NoError(s.store.Record(s.ctx, calls.ErrorRecord{ID: uuid.New(), CallID: ids[1], Source: "journal", OccurredAt: s.start.Add(time.Hour)}))

	kpis, err := s.store.KPIs(s.ctx, time.Time{}, time.Time{})
	s.Require().NoError(err)
	s.Equal(calls.KPIs{
		TotalCalls:              3,
		AverageDurationSeconds:  180,
		ErrorCount:              1,
		ConfirmedCalls:          1,
		UnconfirmedCalls:        2,
		ConfirmationRatePercent: 100.0 / 3,
	}, kpis)

	empty, err := s.store.KPIs(s.ctx, s.start.AddDate(0, 0, 1), time.Time{})
	s.Require().NoError(err)
	s.Equal(calls.KPIs{}, empty)
}
