// Package dashboard serves the operator read models: call history, call
// detail, the system-error log and the headline KPIs.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"voicedesk/internal/calls"
	"voicedesk/internal/identity"
	"voicedesk/internal/journal"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/sentinel"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// CallReader reads call summaries and their aggregates.
type CallReader interface {
	Get(ctx context.Context, callID id.CallID) (*calls.Summary, error)
	ListSummaries(ctx context.Context, filter calls.SummaryFilter) ([]calls.Summary, int, error)
	KPIs(ctx context.Context, from, to time.Time) (calls.KPIs, error)
}

type ErrorReader interface {
	ListErrors(ctx context.Context, filter calls.ErrorFilter) ([]calls.ErrorRecord, int, error)
}

type JournalReader interface {
	EntriesFor(ctx context.Context, callID id.CallID) ([]journal.Entry, error)
}

// Directory names the member a call was resolved to.
type Directory interface {
	FindByID(ctx context.Context, subjectID id.SubjectID) (*identity.Subject, error)
}

// Window bounds a query on a timestamp: From inclusive, To exclusive. Zero
// bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Validate() error {
	if !w.From.IsZero() && !w.To.IsZero() && !w.To.After(w.From) {
		return dErrors.New(dErrors.CodeInvalidInput, "the end of the period must be after its start")
	}
	return nil
}

// PageRequest is 1-based. Zero values take the defaults.
type PageRequest struct {
	Page    int
	PerPage int
}

func (p PageRequest) normalize() (PageRequest, error) {
	if p.Page < 0 || p.PerPage < 0 {
		return p, dErrors.New(dErrors.CodeInvalidInput, "page and per_page must be positive")
	}
	if p.Page == 0 {
		p.Page = 1
	}
	switch {
	case p.PerPage == 0:
		p.PerPage = DefaultPerPage
	case p.PerPage > MaxPerPage:
		p.PerPage = MaxPerPage
	}
	return p, nil
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.PerPage }

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

func paginationFor(p PageRequest, total int) Pagination {
	return Pagination{
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalItems: total,
		TotalPages: (total + p.PerPage - 1) / p.PerPage,
	}
}

type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type CallQuery struct {
	Window
	PageRequest
	SubjectID    id.SubjectID
	CallerNumber string
}

type ErrorQuery struct {
	Window
	PageRequest
	Source string
}

// CallRow is one line of the call history.
type CallRow struct {
	calls.Summary
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

func rowFor(summary calls.Summary) CallRow {
	row := CallRow{Summary: summary}
	if summary.EndedAt != nil {
		d := summary.EndedAt.Sub(summary.StartedAt).Seconds()
		row.DurationSeconds = &d
	}
	return row
}

type SubjectRef struct {
	ID       id.SubjectID `json:"id"`
	FullName string       `json:"full_name"`
}

// CallDetail is everything recorded about one call.
type CallDetail struct {
	CallRow
	Subject *SubjectRef         `json:"subject,omitempty"`
	Journal []journal.Entry     `json:"journal"`
	Errors  []calls.ErrorRecord `json:"errors"`
}

type Service struct {
	calls     CallReader
	errors    ErrorReader
	journal   JournalReader
	directory Directory
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(callReader CallReader, errorReader ErrorReader, journalReader JournalReader, directory Directory, opts ...Option) (*Service, error) {
	if callReader == nil || errorReader == nil {
		return nil, fmt.Errorf("call and error readers are required")
	}
	if journalReader == nil {
		return nil, fmt.Errorf("journal reader is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	svc := &Service{
		calls:     callReader,
		errors:    errorReader,
		journal:   journalReader,
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Calls lists the call history, most recent first.
func (s *Service) Calls(ctx context.Context, q CallQuery) (Page[CallRow], error) {
	if err := q.Window.Validate(); err != nil {
		return Page[CallRow]{}, err
	}
	if q.CallerNumber != "" && identity.Digits(q.CallerNumber) == "" {
		return Page[CallRow]{}, dErrors.New(dErrors.CodeInvalidInput, "caller_number must contain digits")
	}
	page, err := q.PageRequest.normalize()
	if err != nil {
		return Page[CallRow]{}, err
	}

	summaries, total, err := s.calls.ListSummaries(ctx, calls.SummaryFilter{
		From:         q.From,
		To:           q.To,
		SubjectID:    q.SubjectID,
		CallerNumber: q.CallerNumber,
		Limit:        page.PerPage,
		Offset:       page.offset(),
	})
	if err != nil {
		return Page[CallRow]{}, s.fault(ctx, "list calls", err)
	}
	rows := make([]CallRow, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, rowFor(summary))
	}
	return Page[CallRow]{Items: rows, Pagination: paginationFor(page, total)}, nil
}

// Call returns one call with its journal, its errors and the member it was
// resolved to.
func (s *Service) Call(ctx context.Context, callID id.CallID) (*CallDetail, error) {
	summary, err := s.calls.Get(ctx, callID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "call not found")
	}
	if err != nil {
		return nil, s.fault(ctx, "load call", err)
	}

	entries, err := s.journal.EntriesFor(ctx, callID)
	if err != nil {
		return nil, s.fault(ctx, "load journal", err)
	}
	faults, _, err := s.errors.ListErrors(ctx, calls.ErrorFilter{CallID: callID})
	if err != nil {
		return nil, s.fault(ctx, "load call errors", err)
	}

	detail := &CallDetail{
		CallRow: rowFor(*summary),
		Journal: entries,
		Errors:  faults,
	}
	if detail.Journal == nil {
		detail.Journal = []journal.Entry{}
	}
	if detail.Errors == nil {
		detail.Errors = []calls.ErrorRecord{}
	}
	if summary.ResolvedSubjectID != nil {
		subject, err := s.directory.FindByID(ctx, *summary.ResolvedSubjectID)
		switch {
		case err == nil:
			detail.Subject = &SubjectRef{ID: subject.ID, FullName: subject.FullName()}
		case errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "resolved subject no longer in directory",
				"call_id", callID,
				"subject_id", *summary.ResolvedSubjectID,
			)
		default:
			return nil, s.fault(ctx, "load resolved subject", err)
		}
	}
	return detail, nil
}

// Errors lists the system-error log, most recent first.
func (s *Service) Errors(ctx context.Context, q ErrorQuery) (Page[calls.ErrorRecord], error) {
	if err := q.Window.Validate(); err != nil {
		return Page[calls.ErrorRecord]{}, err
	}
	page, err := q.PageRequest.normalize()
	if err != nil {
		return Page[calls.ErrorRecord]{}, err
	}
	records, total, err := s.errors.ListErrors(ctx, calls.ErrorFilter{
		From:   q.From,
		To:     q.To,
		Source: q.Source,
		Limit:  page.PerPage,
		Offset: page.offset(),
	})
	if err != nil {
		return Page[calls.ErrorRecord]{}, s.fault(ctx, "list errors", err)
	}
	if records == nil {
		records = []calls.ErrorRecord{}
	}
	return Page[calls.ErrorRecord]{Items: records, Pagination: paginationFor(page, total)}, nil
}

// KPIs aggregates the calls started in the window.
func (s *Service) KPIs(ctx context.Context, w Window) (calls.KPIs, error) {
	if err := w.Validate(); err != nil {
		return calls.KPIs{}, err
	}
	kpis, err := s.calls.KPIs(ctx, w.From, w.To)
	if err != nil {
		return calls.KPIs{}, s.fault(ctx, "aggregate kpis", err)
	}
	return kpis, nil
}

func (s *Service) fault(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "dashboard read failed",
		"operation", op,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to "+op)
}
