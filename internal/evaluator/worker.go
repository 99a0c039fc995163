package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voicedesk/internal/calls"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
)

// ErrQueueFull is returned by Enqueue when the inbox has no room. The call
// stays pending and is picked up by the next sweep.
var ErrQueueFull = errors.New("evaluation queue full")

type Evaluator interface {
	Evaluate(ctx context.Context, callID id.CallID) (calls.Evaluation, error)
}

// PendingLister finds ended calls that were never evaluated.
type PendingLister interface {
	ListPendingEvaluation(ctx context.Context, limit int) ([]id.CallID, error)
}

// Worker evaluates ended calls off the request path. Call ids arrive through
// Enqueue; a periodic sweep recovers calls whose evaluation was lost.
type Worker struct {
	evaluator     Evaluator
	pending       PendingLister
	inbox         chan id.CallID
	maxAttempts   int
	backoff       time.Duration
	sweepInterval time.Duration
	sweepBatch    int
	logger        *slog.Logger
}

type WorkerOption func(*Worker)

func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.inbox = make(chan id.CallID, n)
		}
	}
}

// WithRetry bounds attempts per call; the wait grows linearly with each attempt.
func WithRetry(maxAttempts int, backoff time.Duration) WorkerOption {
	return func(w *Worker) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
		w.backoff = backoff
	}
}

// WithSweep enables the periodic recovery sweep. A zero interval disables it.
func WithSweep(interval time.Duration, batch int) WorkerOption {
	return func(w *Worker) {
		w.sweepInterval = interval
		if batch > 0 {
			w.sweepBatch = batch
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func NewWorker(evaluator Evaluator, pending PendingLister, opts ...WorkerOption) *Worker {
	w := &Worker{
		evaluator:   evaluator,
		pending:     pending,
		inbox:       make(chan id.CallID, 256),
		maxAttempts: 3,
		backoff:     2 * time.Second,
		sweepBatch:  100,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enqueue schedules a call for evaluation without blocking.
func (w *Worker) Enqueue(ctx context.Context, callID id.CallID) error {
	select {
	case w.inbox <- callID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Submit is Enqueue that waits for room instead of failing. Stream consumers
// use it so a burst of ended calls applies back-pressure to the partition.
func (w *Worker) Submit(ctx context.Context, callID id.CallID) error {
	select {
	case w.inbox <- callID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var sweep <-chan time.Time
	if w.sweepInterval > 0 && w.pending != nil {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case callID := <-w.inbox:
			w.process(ctx, callID)
		case <-sweep:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "evaluation sweep failed", "error", err)
			}
		}
	}
}

// Sweep evaluates one batch of ended, unevaluated calls and returns how many
// were evaluated.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	if w.pending == nil {
		return 0, nil
	}
	ids, err := w.pending.ListPendingEvaluation(ctx, w.sweepBatch)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, callID := range ids {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if w.process(ctx, callID) {
			done++
		}
	}
	return done, nil
}

func (w *Worker) process(ctx context.Context, callID id.CallID) bool {
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		_, err := w.evaluator.Evaluate(ctx, callID)
		if err == nil {
			return true
		}
		if !dErrors.IsFault(err) {
			return false
		}
		if attempt == w.maxAttempts {
			w.logger.ErrorContext(ctx, "evaluation abandoned",
				"call_id", callID,
				"attempts", attempt,
				"error", err,
			)
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return false
}
