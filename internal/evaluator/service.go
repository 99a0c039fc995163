package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"voicedesk/internal/calls"
	"voicedesk/internal/journal"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/sentinel"
	"voicedesk/pkg/requestcontext"
)

var tracer = otel.Tracer("voicedesk/internal/evaluator")

// Entries reads a call's journal in order.
type Entries interface {
	EntriesFor(ctx context.Context, callID id.CallID) ([]journal.Entry, error)
}

// ErrorCounter counts error-log rows correlated to a call.
type ErrorCounter interface {
	CountForCall(ctx context.Context, callID id.CallID) (int, error)
}

type Metrics interface {
	IncEvaluation(result string)
}

type Service struct {
	summaries calls.SummaryStore
	entries   Entries
	errors    ErrorCounter
	metrics   Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(summaries calls.SummaryStore, entries Entries, errorLog ErrorCounter, opts ...Option) (*Service, error) {
	if summaries == nil {
		return nil, fmt.Errorf("summary store is required")
	}
	if entries == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if errorLog == nil {
		return nil, fmt.Errorf("error log is required")
	}
	svc := &Service{
		summaries: summaries,
		entries:   entries,
		errors:    errorLog,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate scores a call and overwrites its evaluation fields. It needs only
// the call id, so it can be re-run at any time after the call ends.
func (s *Service) Evaluate(ctx context.Context, callID id.CallID) (calls.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "evaluator.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.String("call.id", callID.String()))
	ctx = requestcontext.WithCallID(ctx, callID)

	eval, err := s.evaluate(ctx, callID)
	result := "succeeded"
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		result = "not_found"
	case err != nil:
		result = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
	}
	if s.metrics != nil {
		s.metrics.IncEvaluation(result)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "call evaluation failed",
			"call_id", callID,
			"error", err,
		)
		return calls.Evaluation{}, err
	}
	s.logger.InfoContext(ctx, "call evaluated",
		"call_id", callID,
		"prompt_evaluation", eval.PromptEvaluation,
		"resolution_evaluation", eval.ResolutionEvaluation,
	)
	return eval, nil
}

func (s *Service) evaluate(ctx context.Context, callID id.CallID) (calls.Evaluation, error) {
	var (
		summary    *calls.Summary
		entries    []journal.Entry
		errorCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.summaries.Get(gctx, callID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "call not found")
		}
		if err != nil {
			return fmt.Errorf("load summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.entries.EntriesFor(gctx, callID)
		if err != nil {
			return fmt.Errorf("load journal: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		errorCount, err = s.errors.CountForCall(gctx, callID)
		if err != nil {
			return fmt.Errorf("count errors: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return calls.Evaluation{}, err
		}
		return calls.Evaluation{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read call data")
	}

	eval := Assess(*summary, entries, errorCount)
	if err := s.summaries.SetEvaluation(ctx, callID, eval, requestcontext.Now(ctx)); err != nil {
		return calls.Evaluation{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store evaluation")
	}
	return eval, nil
}
