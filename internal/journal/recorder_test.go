package journal_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"voicedesk/internal/calls"
	"voicedesk/internal/journal"
	journalstore "voicedesk/internal/journal/store"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type RecorderSuite struct {
	suite.Suite
	store    *journalstore.InMemoryStore
	errors   *faultLog
	metrics  *counters
	recorder *journal.Recorder
	ctx      context.Context
	now      time.Time
}

func TestRecorderSuite(t *testing.T) {
	defer goleak.VerifyNone(t)
	suite.Run(t, new(RecorderSuite))
}

type faultLog struct {
	mu      sync.Mutex
	records []calls.ErrorRecord
}

func (f *faultLog) Record(_ context.Context, rec calls.ErrorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type counters struct {
	mu            sync.Mutex
	writeFailures int
	dropped       int
}

func (c *counters) IncJournalWriteFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeFailures++
}

func (c *counters) IncJournalPublishDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped++
}

func (s *RecorderSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.store = journalstore.NewInMemory()
	s.errors = &faultLog{}
	s.metrics = &counters{}
	s.recorder = s.newRecorder(s.store)
}

func (s *RecorderSuite) newRecorder(store journal.Store, opts ...journal.Option) *journal.Recorder {
	base := []journal.Option{
		journal.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		journal.WithErrorLog(s.errors),
		journal.WithMetrics(s.metrics),
		journal.WithTimeouts(50*time.Millisecond, 50*time.Millisecond),
		journal.WithClock(func() time.Time { return s.now }),
	}
	return journal.NewRecorder(store, append(base, opts...)...)
}

var ignoreGenerated = cmpopts.IgnoreFields(journal.Entry{}, "ID", "CallID", "Timestamp", "Params")

func (s *RecorderSuite) entries(callID id.CallID) []journal.Entry {
	entries, err := s.recorder.EntriesFor(s.ctx, callID)
	s.Require().NoError(err)
	return entries
}

func (s *RecorderSuite) TestBracketWritesCallThenResult() {
	callID := id.NewCallID()
	res, err := s.recorder.Bracket(s.ctx, callID, "lookup_by_email", map[string]string{"email": "a@b.c"},
		func(context.Context) (journal.Result, error) {
			return journal.Result{Message: "found", Outcome: journal.OutcomeSucceeded}, nil
		})
	s.Require().NoError(err)
	s.Equal("found", res.Message)

	want := []journal.Entry{
		{Seq: 1, Kind: journal.KindToolCall, Operation: "lookup_by_email"},
		{Seq: 2, Kind: journal.KindToolResult, Operation: "lookup_by_email", Result: "found", Outcome: journal.OutcomeSucceeded},
	}
	got := s.entries(callID)
	if diff := cmp.Diff(want, got, ignoreGenerated); diff != "" {
		s.Failf("journal mismatch", "(-want +got):\n%s", diff)
	}
	s.JSONEq(`{"email":"a@b.c"}`, string(got[0].Params))
}

func (s *RecorderSuite) TestBracketRecordsResultWhenOperationPanics() {
	callID := id.NewCallID()
	res, err := s.recorder.Bracket(s.ctx, callID, "create_claim", nil,
		func(context.Context) (journal.Result, error) {
			panic("nil map")
		})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.Equal(journal.OutcomeStoreError, res.Outcome)
	s.Equal(journal.FallbackMessage, res.Message)

	got := s.entries(callID)
	s.Require().Len(got, 2)
	s.Equal(journal.KindToolCall, got[0].Kind)
	s.Equal(journal.KindToolResult, got[1].Kind)
	s.Equal(journal.OutcomeStoreError, got[1].Outcome)

	s.Require().Len(s.errors.records, 1)
	s.Equal("create_claim", s.errors.records[0].Source)
	s.Equal(callID, s.errors.records[0].CallID)
}

func (s *RecorderSuite) TestBracketBoundsSlowOperations() {
	callID := id.NewCallID()
	res, err := s.recorder.Bracket(s.ctx, callID, "list_claims", nil,
		func(ctx context.Context) (journal.Result, error) {
			<-ctx.Done()
			return journal.Result{}, ctx.Err()
		})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(journal.OutcomeStoreError, res.Outcome)
	s.Len(s.entries(callID), 2)
}

func (s *RecorderSuite) TestCallerCancellationDoesNotDropResult() {
	callID := id.NewCallID()
	ctx, cancel := context.WithCancel(s.ctx)
	_, err := s.recorder.Bracket(ctx, callID, "list_contracts", nil,
		func(context.Context) (journal.Result, error) {
			cancel()
			return journal.Result{Message: "ok", Outcome: journal.OutcomeSucceeded}, nil
		})
	s.Require().NoError(err)
	got := s.entries(callID)
	s.Require().Len(got, 2)
	s.Equal(journal.KindToolResult, got[1].Kind)
}

type failingStore struct {
	journal.Store
}

func (failingStore) Append(context.Context, journal.Entry) error {
	return errors.New("disk full")
}

func (failingStore) LastSeq(context.Context, id.CallID) (int64, error) {
	return 0, nil
}

func (s *RecorderSuite) TestJournalFailureDoesNotAbortOperation() {
	recorder := s.newRecorder(failingStore{})
	ran := false
	res, err := recorder.Bracket(s.ctx, id.NewCallID(), "get_claim_status", nil,
		func(context.Context) (journal.Result, error) {
			ran = true
			return journal.Result{Message: "Submitted", Outcome: journal.OutcomeSucceeded}, nil
		})
	s.Require().NoError(err)
	s.True(ran)
	s.Equal("Submitted", res.Message)
	s.Equal(2, s.metrics.writeFailures)
}

type conflictOnce struct {
	*journalstore.InMemoryStore
	once sync.Once
}

func (c *conflictOnce) Append(ctx context.Context, entry journal.Entry) error {
	c.once.Do(func() {
		// another instance takes the first slot
		_ = c.InMemoryStore.Append(ctx, journal.Entry{CallID: entry.CallID, Seq: entry.Seq, Kind: journal.KindCallStarted})
	})
	return c.InMemoryStore.Append(ctx, entry)
}

func (s *RecorderSuite) TestResyncsSequenceOnConflict() {
	store := &conflictOnce{InMemoryStore: journalstore.NewInMemory()}
	recorder := s.newRecorder(store)
	callID := id.NewCallID()

	s.Require().NoError(recorder.Record(s.ctx, callID, journal.KindToolCall, "clear_context", nil, "", journal.OutcomeNone))
	got, err := store.EntriesFor(s.ctx, callID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(int64(1), got[0].Seq)
	s.Equal(int64(2), got[1].Seq)
}

func (s *RecorderSuite) TestConcurrentCallsKeepContiguousSequences() {
	const (
		numCalls = 8
		perCall  = 25
	)
	callIDs := make([]id.CallID, numCalls)
	for i := range callIDs {
		callIDs[i] = id.NewCallID()
	}

	var wg sync.WaitGroup
	for _, callID := range callIDs {
		for j := 0; j < perCall; j++ {
			wg.Add(1)
			go func(callID id.CallID, j int) {
				defer wg.Done()
				_, _ = s.recorder.Bracket(s.ctx, callID, fmt.Sprintf("op_%d", j), nil,
					func(context.Context) (journal.Result, error) {
						return journal.Result{Outcome: journal.OutcomeSucceeded}, nil
					})
			}(callID, j)
		}
	}
	wg.Wait()

	for _, callID := range callIDs {
		got := s.entries(callID)
		s.Require().Len(got, 2*perCall)
		for i, entry := range got {
			s.Equal(int64(i+1), entry.Seq)
		}
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	seqs []int64
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, entry journal.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seqs = append(p.seqs, entry.Seq)
	return p.err
}

func (s *RecorderSuite) TestPublishesCommittedEntries() {
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	recorder := s.newRecorder(s.store, journal.WithPublisher(publisher))
	callID := id.NewCallID()

	s.Require().NoError(recorder.Record(s.ctx, callID, journal.KindCallStarted, "", nil, "", journal.OutcomeNone))
	s.Require().NoError(recorder.Record(s.ctx, callID, journal.KindCallEnded, "", nil, "", journal.OutcomeNone))

	s.Equal([]int64{1, 2}, publisher.seqs)
	s.Equal(2, s.metrics.dropped)
	s.Len(s.entries(callID), 2)
}

func (s *RecorderSuite) TestAbandonedCallsAreEvictedAndResume() {
	recorder := s.newRecorder(s.store, journal.WithIdleTimeout(time.Hour))
	abandoned := make([]id.CallID, 1000)
	for i := range abandoned {
		abandoned[i] = id.NewCallID()
		s.Require().NoError(recorder.Record(s.ctx, abandoned[i], journal.KindCallStarted, "", nil, "", journal.OutcomeNone))
	}
	s.Equal(1000, recorder.Tracked())

	s.now = s.now.Add(30 * time.Minute)
	active := id.NewCallID()
	s.Require().NoError(recorder.Record(s.ctx, active, journal.KindCallStarted, "", nil, "", journal.OutcomeNone))
	s.Equal(0, recorder.Evict())

	s.now = s.now.Add(45 * time.Minute)
	s.Equal(1000, recorder.Evict())
	s.Equal(1, recorder.Tracked())

	// a late write on an evicted call continues its sequence from the store
	s.Require().NoError(recorder.Record(s.ctx, abandoned[0], journal.KindCallEnded, "", nil, "", journal.OutcomeNone))
	got := s.entries(abandoned[0])
	s.Require().Len(got, 2)
	s.Equal(int64(2), got[1].Seq)
	s.Equal(1, recorder.Tracked())
}

func (s *RecorderSuite) TestRunEvictionStopsWithContext() {
	recorder := s.newRecorder(s.store, journal.WithIdleTimeout(time.Minute))
	s.Require().NoError(recorder.Record(s.ctx, id.NewCallID(), journal.KindCallStarted, "", nil, "", journal.OutcomeNone))
	s.now = s.now.Add(2 * time.Minute)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- recorder.RunEviction(ctx, time.Millisecond) }()

	s.Eventually(func() bool { return recorder.Tracked() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)
}
