package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicedesk/internal/calls"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/sentinel"
)

// FallbackMessage is shown to the caller when an operation faults.
const FallbackMessage = "A technical problem prevented me from completing this request. Please try again in a moment."

const (
	defaultOperationTimeout = 5 * time.Second
	defaultWriteTimeout     = 3 * time.Second
	defaultIdleTimeout      = 2 * time.Hour
)

// ErrorLog persists faults correlated to a call.
type ErrorLog interface {
	Record(ctx context.Context, rec calls.ErrorRecord) error
}

// Metrics is the subset of platform metrics the recorder reports to.
type Metrics interface {
	IncJournalWriteFailure()
	IncJournalPublishDropped()
}

// Recorder writes journal entries and brackets operations.
//
// Writes for one call are serialised and numbered; different calls proceed
// independently. A failed write is logged and counted but never changes the
// result of the operation being recorded.
//
// Sequence state is cached per call and dropped on CALL_ENDED or, for calls
// that never end, by Evict once idle for longer than the idle timeout.
type Recorder struct {
	store        Store
	errorLog     ErrorLog
	publisher    Publisher
	metrics      Metrics
	logger       *slog.Logger
	opTimeout    time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
	now          func() time.Time

	mu    sync.Mutex
	calls map[id.CallID]*callLog
}

type callLog struct {
	mu       sync.Mutex
	seq      int64
	loaded   bool
	lastUsed time.Time
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

func WithErrorLog(log ErrorLog) Option {
	return func(r *Recorder) { r.errorLog = log }
}

// WithPublisher streams each committed entry.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// WithTimeouts bounds each bracketed operation and each journal write.
func WithTimeouts(operation, write time.Duration) Option {
	return func(r *Recorder) {
		if operation > 0 {
			r.opTimeout = operation
		}
		if write > 0 {
			r.writeTimeout = write
		}
	}
}

// WithIdleTimeout sets how long a call may stay silent before its sequence
// state is evicted. Evicted calls resume from the store's last sequence.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

// WithClock overrides time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:        store,
		logger:       slog.Default(),
		opTimeout:    defaultOperationTimeout,
		writeTimeout: defaultWriteTimeout,
		idleTimeout:  defaultIdleTimeout,
		now:          time.Now,
		calls:        make(map[id.CallID]*callLog),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry. The write runs on a context detached from the
// caller's cancellation but bounded by the write timeout. A CALL_ENDED entry
// releases the call's sequence state.
func (r *Recorder) Record(ctx context.Context, callID id.CallID, kind Kind, operation string, params any, result string, outcome Outcome) error {
	rawParams, err := encodeParams(params)
	if err != nil {
		r.logger.WarnContext(ctx, "journal params not encodable",
			"call_id", callID,
			"operation", operation,
			"error", err,
		)
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()

	entry := Entry{
		ID:        uuid.New(),
		CallID:    callID,
		Timestamp: r.now(),
		Kind:      kind,
		Operation: operation,
		Params:    rawParams,
		Result:    result,
		Outcome:   outcome,
	}
	if err := r.append(wctx, entry); err != nil {
		if r.metrics != nil {
			r.metrics.IncJournalWriteFailure()
		}
		r.logger.ErrorContext(ctx, "journal write failed",
			"call_id", callID,
			"kind", kind,
			"operation", operation,
			"error", err,
		)
		return err
	}
	if kind == KindCallEnded {
		r.forget(callID)
	}
	return nil
}

// Bracket journals a TOOL_CALL, runs fn under the operation timeout and
// journals exactly one TOOL_RESULT, whatever fn does. A panic or error from fn
// is reported as a store_error outcome with the fallback message and logged
// to the error log. The returned error is fn's fault, if any.
func (r *Recorder) Bracket(ctx context.Context, callID id.CallID, operation string, params any, fn func(ctx context.Context) (Result, error)) (Result, error) {
	_ = r.Record(ctx, callID, KindToolCall, operation, params, "", OutcomeNone)

	res, err := r.run(ctx, fn)
	if err != nil {
		res = Result{Message: dErrors.MessageOf(err, FallbackMessage), Outcome: OutcomeStoreError}
		r.recordFault(ctx, callID, operation, params, err)
	}

	_ = r.Record(ctx, callID, KindToolResult, operation, nil, res.Message, res.Outcome)
	return res, err
}

// EntriesFor reads a call's journal in order.
func (r *Recorder) EntriesFor(ctx context.Context, callID id.CallID) ([]Entry, error) {
	return r.store.EntriesFor(ctx, callID)
}

func (r *Recorder) run(ctx context.Context, fn func(ctx context.Context) (Result, error)) (res Result, err error) {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res = Result{}
			err = dErrors.Wrap(fmt.Errorf("panic: %v", p), dErrors.CodeInternal, FallbackMessage)
		}
	}()

	res, err = fn(opCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = dErrors.Wrap(err, dErrors.CodeUnavailable, "The request took too long. Please try again.")
	}
	return res, err
}

func (r *Recorder) append(ctx context.Context, entry Entry) error {
	log := r.logFor(entry.CallID)
	log.mu.Lock()
	defer log.mu.Unlock()

	if !log.loaded {
		last, err := r.store.LastSeq(ctx, entry.CallID)
		if err != nil {
			return err
		}
		log.seq, log.loaded = last, true
	}

	entry.Seq = log.seq + 1
	err := r.store.Append(ctx, entry)
	if errors.Is(err, sentinel.ErrConflict) {
		// another writer took the slot; resync once
		last, lerr := r.store.LastSeq(ctx, entry.CallID)
		if lerr != nil {
			return lerr
		}
		log.seq = last
		entry.Seq = last + 1
		err = r.store.Append(ctx, entry)
	}
	if err != nil {
		return err
	}
	log.seq = entry.Seq
	log.lastUsed = r.now()
	r.publish(ctx, entry)
	return nil
}

func (r *Recorder) publish(ctx context.Context, entry Entry) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, entry); err != nil {
		if r.metrics != nil {
			r.metrics.IncJournalPublishDropped()
		}
		r.logger.WarnContext(ctx, "journal entry not streamed",
			"call_id", entry.CallID,
			"seq", entry.Seq,
			"error", err,
		)
	}
}

func (r *Recorder) recordFault(ctx context.Context, callID id.CallID, operation string, params any, fault error) {
	r.logger.ErrorContext(ctx, "operation failed",
		"call_id", callID,
		"operation", operation,
		"error", fault,
	)
	if r.errorLog == nil {
		return
	}
	rawParams, _ := encodeParams(params)
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
	defer cancel()
	err := r.errorLog.Record(wctx, calls.ErrorRecord{
		ID:         uuid.New(),
		CallID:     callID,
		Source:     operation,
		Message:    fault.Error(),
		Context:    rawParams,
		OccurredAt: r.now(),
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "error log write failed",
			"call_id", callID,
			"operation", operation,
			"error", err,
		)
	}
}

func (r *Recorder) logFor(callID id.CallID) *callLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.calls[callID]
	if !ok {
		log = &callLog{lastUsed: r.now()}
		r.calls[callID] = log
	}
	return log
}

// Evict drops the sequence state of calls idle for longer than the idle
// timeout and returns how many were dropped. Calls with a write in flight are
// kept.
func (r *Recorder) Evict() int {
	cutoff := r.now().Add(-r.idleTimeout)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for callID, log := range r.calls {
		if !log.mu.TryLock() {
			continue
		}
		if log.lastUsed.Before(cutoff) {
			delete(r.calls, callID)
			evicted++
		}
		log.mu.Unlock()
	}
	return evicted
}

// RunEviction calls Evict every interval until ctx is done.
func (r *Recorder) RunEviction(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.DebugContext(ctx, "evicted idle journal state", "calls", n)
			}
		}
	}
}

// Tracked reports how many calls currently hold cached sequence state.
func (r *Recorder) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *Recorder) forget(callID id.CallID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, callID)
}

func encodeParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(p) == 0 {
			return nil, nil
		}
		return p, nil
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
}
