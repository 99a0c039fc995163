// Package calls models the persisted per-call records: the summary row that
// carries the resolved identity and the evaluator's notes, and the error log.
package calls

import (
	"context"
	"encoding/json"
	"time"

	id "voicedesk/pkg/domain"

	"github.com/google/uuid"
)

// Summary is the persisted record of one call. ResolvedSubjectID is the
// source of truth for "identity was confirmed".
type Summary struct {
	CallID               id.CallID     `json:"call_id"`
	CallerNumber         string        `json:"caller_number,omitempty"`
	StartedAt            time.Time     `json:"started_at"`
	EndedAt              *time.Time    `json:"ended_at,omitempty"`
	ResolvedSubjectID    *id.SubjectID `json:"resolved_subject_id,omitempty"`
	ResolutionSummary    string        `json:"resolution_summary,omitempty"`
	PromptEvaluation     string        `json:"prompt_evaluation,omitempty"`
	ResolutionEvaluation string        `json:"resolution_evaluation,omitempty"`
	EvaluatedAt          *time.Time    `json:"evaluated_at,omitempty"`
}

func (s Summary) HasEnded() bool { return s.EndedAt != nil }

// Evaluation is the pair of notes written back by the evaluator.
type Evaluation struct {
	PromptEvaluation     string `json:"prompt_evaluation"`
	ResolutionEvaluation string `json:"resolution_evaluation"`
}

// ErrorRecord is a system fault correlated to a call.
type ErrorRecord struct {
	ID         uuid.UUID       `json:"id"`
	CallID     id.CallID       `json:"call_id"`
	Source     string          `json:"source"`
	Message    string          `json:"message"`
	Context    json.RawMessage `json:"context,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// SummaryStore persists call summaries. Get returns sentinel.ErrNotFound for
// unknown calls; setters on unknown calls do the same.
type SummaryStore interface {
	Create(ctx context.Context, summary Summary) error
	SetResolvedSubject(ctx context.Context, callID id.CallID, subjectID id.SubjectID) error
	SetEnded(ctx context.Context, callID id.CallID, endedAt time.Time, resolutionSummary string) error
	SetEvaluation(ctx context.Context, callID id.CallID, eval Evaluation, evaluatedAt time.Time) error
	Get(ctx context.Context, callID id.CallID) (*Summary, error)
	ListPendingEvaluation(ctx context.Context, limit int) ([]id.CallID, error)
}

// ErrorStore persists error records.
type ErrorStore interface {
	Record(ctx context.Context, rec ErrorRecord) error
	CountForCall(ctx context.Context, callID id.CallID) (int, error)
}

// SummaryFilter narrows the call history. Zero fields do not filter. From is
// inclusive and To exclusive, both on StartedAt. CallerNumber matches any
// caller number whose digits contain its digits.
type SummaryFilter struct {
	From         time.Time
	To           time.Time
	SubjectID    id.SubjectID
	CallerNumber string
	Limit        int
	Offset       int
}

// ErrorFilter narrows the error log. Source matches case-insensitively as a
// substring. A zero Limit returns every match.
type ErrorFilter struct {
	From   time.Time
	To     time.Time
	CallID id.CallID
	Source string
	Limit  int
	Offset int
}

// KPIs aggregates the calls started, and the errors raised, in a window.
// AverageDurationSeconds covers ended calls only.
type KPIs struct {
	TotalCalls              int     `json:"total_calls"`
	AverageDurationSeconds  float64 `json:"average_duration_seconds"`
	ErrorCount              int     `json:"error_count"`
	ConfirmedCalls          int     `json:"confirmed_calls"`
	UnconfirmedCalls        int     `json:"unconfirmed_calls"`
	ConfirmationRatePercent float64 `json:"confirmation_rate_percent"`
}

// WithRate fills the derived confirmation figures from the counts.
func (k KPIs) WithRate() KPIs {
	k.UnconfirmedCalls = k.TotalCalls - k.ConfirmedCalls
	if k.TotalCalls > 0 {
		k.ConfirmationRatePercent = float64(k.ConfirmedCalls) * 100 / float64(k.TotalCalls)
	}
	return k
}
