// Package service runs the call lifecycle: it opens the call record, keeps
// each call's session between runtime turns, dispatches actions one at a time
// per call and closes the call for evaluation.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"voicedesk/internal/actions"
	"voicedesk/internal/calls"
	"voicedesk/internal/journal"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/privacy"
	"voicedesk/pkg/platform/sentinel"
	"voicedesk/pkg/platform/tx"
	"voicedesk/pkg/requestcontext"
)

// WelcomeMessage greets a caller whose number did not identify them.
const WelcomeMessage = "Hello, welcome to the member service. How can I help you?"

var errAlreadyEnded = errors.New("call already ended")

// Dispatcher runs one named action against a session.
type Dispatcher interface {
	Dispatch(ctx context.Context, sess session.Session, name string, args json.RawMessage) (session.Session, actions.Reply, error)
}

// Journal records lifecycle entries and reads a call's journal back.
type Journal interface {
	Record(ctx context.Context, callID id.CallID, kind journal.Kind, operation string, params any, result string, outcome journal.Outcome) error
	EntriesFor(ctx context.Context, callID id.CallID) ([]journal.Entry, error)
}

// Enqueuer schedules the evaluation of an ended call.
type Enqueuer interface {
	Enqueue(ctx context.Context, callID id.CallID) error
}

type Metrics interface {
	IncCallsStarted()
	IncCallsEnded()
}

// Started is returned when a call opens.
type Started struct {
	CallID   id.CallID     `json:"call_id"`
	Greeting string        `json:"greeting"`
	State    session.State `json:"state"`
}

type Service struct {
	summaries   calls.SummaryStore
	sessions    session.Store
	dispatcher  Dispatcher
	journal     Journal
	tx          tx.Runner
	evaluations Enqueuer
	metrics     Metrics
	logger      *slog.Logger
	locks       *callLocks
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTxRunner makes the end-of-call check and update atomic.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// WithEvaluations enqueues ended calls for evaluation in process.
func WithEvaluations(e Enqueuer) Option {
	return func(s *Service) { s.evaluations = e }
}

func New(summaries calls.SummaryStore, sessions session.Store, dispatcher Dispatcher, j Journal, opts ...Option) (*Service, error) {
	if summaries == nil {
		return nil, fmt.Errorf("summary store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if j == nil {
		return nil, fmt.Errorf("journal is required")
	}
	svc := &Service{
		summaries:  summaries,
		sessions:   sessions,
		dispatcher: dispatcher,
		journal:    j,
		tx:         tx.Direct{},
		logger:     slog.Default(),
		locks:      newCallLocks(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Start opens a call. When the caller's number is known it is looked up
// through the regular lookup action, so the attempt is journaled like any
// other.
func (s *Service) Start(ctx context.Context, callerNumber string) (*Started, error) {
	callID := id.NewCallID()
	ctx = requestcontext.WithCallID(ctx, callID)
	callerNumber = strings.TrimSpace(callerNumber)

	if err := s.summaries.Create(ctx, calls.Summary{
		CallID:       callID,
		CallerNumber: callerNumber,
		StartedAt:    requestcontext.Now(ctx),
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to open call")
	}
	_ = s.journal.Record(ctx, callID, journal.KindCallStarted, "", nil, "", journal.OutcomeNone)
	if s.metrics != nil {
		s.metrics.IncCallsStarted()
	}

	sess := session.New(callID)
	greeting := WelcomeMessage
	if callerNumber != "" {
		args, _ := json.Marshal(map[string]string{"phone": callerNumber})
		next, reply, err := s.dispatcher.Dispatch(ctx, sess, actions.LookupByPhone, args)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "caller number lookup failed",
				"call_id", callID,
				"error", err,
			)
		case reply.Outcome == journal.OutcomeSucceeded:
			sess, greeting = next, reply.Message
		default:
			sess = next
		}
	}

	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store session")
	}
	s.logger.InfoContext(ctx, "call started",
		"call_id", callID,
		"state", sess.State,
		privacy.Attr("caller_number", callerNumber),
	)
	return &Started{CallID: callID, Greeting: greeting, State: sess.State}, nil
}

// Invoke runs one action for a live call. Invocations for the same call
// are serialised.
func (s *Service) Invoke(ctx context.Context, callID id.CallID, action string, args json.RawMessage) (actions.Reply, error) {
	unlock := s.locks.lock(callID)
	defer unlock()
	ctx = requestcontext.WithCallID(ctx, callID)

	sess, err := s.sessions.Get(ctx, callID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return actions.Reply{}, dErrors.New(dErrors.CodeNotFound, "call not found or already ended")
	}
	if err != nil {
		return actions.Reply{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load session")
	}

	next, reply, dispatchErr := s.dispatcher.Dispatch(ctx, sess, action, args)
	if dispatchErr != nil && !dErrors.IsFault(dispatchErr) {
		return reply, dispatchErr
	}
	// written back even when unchanged to extend the session TTL
	if err := s.sessions.Put(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "failed to store session",
			"call_id", callID,
			"action", action,
			"error", err,
		)
		return reply, dErrors.Wrap(err, dErrors.CodeUnavailable, journal.FallbackMessage)
	}
	return reply, dispatchErr
}

// End closes a call, discards its session and schedules its evaluation.
// Ending an already ended call is a no-op.
func (s *Service) End(ctx context.Context, callID id.CallID, resolutionSummary string) error {
	unlock := s.locks.lock(callID)
	defer unlock()
	ctx = requestcontext.WithCallID(ctx, callID)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		summary, err := s.summaries.Get(ctx, callID)
		if err != nil {
			return err
		}
		if summary.HasEnded() {
			return errAlreadyEnded
		}
		return s.summaries.SetEnded(ctx, callID, requestcontext.Now(ctx), strings.TrimSpace(resolutionSummary))
	})
	switch {
	case errors.Is(err, errAlreadyEnded):
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "call not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to end call")
	}

	_ = s.journal.Record(ctx, callID, journal.KindCallEnded, "", nil, "", journal.OutcomeNone)
	if err := s.sessions.Delete(ctx, callID); err != nil {
		s.logger.WarnContext(ctx, "failed to discard session",
			"call_id", callID,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.IncCallsEnded()
	}
	if s.evaluations != nil {
		if err := s.evaluations.Enqueue(ctx, callID); err != nil {
			// the sweep picks up ended calls that were never evaluated
			s.logger.WarnContext(ctx, "evaluation not enqueued",
				"call_id", callID,
				"error", err,
			)
		}
	}
	s.logger.InfoContext(ctx, "call ended", "call_id", callID)
	return nil
}

// Summary returns the persisted call record.
func (s *Service) Summary(ctx context.Context, callID id.CallID) (*calls.Summary, error) {
	summary, err := s.summaries.Get(ctx, callID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "call not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load call")
	}
	return summary, nil
}

// Journal returns the call's journal in order.
func (s *Service) Journal(ctx context.Context, callID id.CallID) ([]journal.Entry, error) {
	if _, err := s.Summary(ctx, callID); err != nil {
		return nil, err
	}
	entries, err := s.journal.EntriesFor(ctx, callID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load journal")
	}
	return entries, nil
}
