// Package journal is the append-only per-call record of every operation the
// runtime invokes. Each invocation is bracketed by a TOOL_CALL entry written
// before it runs and a TOOL_RESULT entry written after, carrying an explicit
// Outcome tag. Result text is for display only.
package journal

import (
	"context"
	"encoding/json"
	"time"

	id "voicedesk/pkg/domain"

	"github.com/google/uuid"
)

type Kind string

const (
	KindCallStarted Kind = "CALL_STARTED"
	KindToolCall    Kind = "TOOL_CALL"
	KindToolResult  Kind = "TOOL_RESULT"
	KindCallEnded   Kind = "CALL_ENDED"
)

// Outcome classifies a TOOL_RESULT. The evaluator reads outcomes, never text.
type Outcome string

const (
	OutcomeNone         Outcome = ""
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeAmbiguous    Outcome = "ambiguous"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomePrecondition Outcome = "precondition_failed"
	OutcomeNotConfirmed Outcome = "not_confirmed"
	OutcomeMismatch     Outcome = "mismatch"
	OutcomeForbidden    Outcome = "forbidden"
	OutcomeStoreError   Outcome = "store_error"
)

// IsFailure reports whether the outcome denotes anything but success.
func (o Outcome) IsFailure() bool {
	return o != OutcomeSucceeded && o != OutcomeNone
}

// Entry is one journal row. Seq increases by one per entry within a call.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	CallID    id.CallID       `json:"call_id"`
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      Kind            `json:"kind"`
	Operation string          `json:"operation,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    string          `json:"result,omitempty"`
	Outcome   Outcome         `json:"outcome,omitempty"`
}

// Store is the append-only persistence of entries.
//
// Append returns sentinel.ErrConflict when (CallID, Seq) is already taken.
// EntriesFor returns entries in Seq order.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	EntriesFor(ctx context.Context, callID id.CallID) ([]Entry, error)
	LastSeq(ctx context.Context, callID id.CallID) (int64, error)
}

// Publisher receives entries after they are committed.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// Result is what a bracketed operation reports back.
type Result struct {
	Message string
	Outcome Outcome
}
