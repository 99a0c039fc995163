// Package resolution implements the caller identity-resolution state machine.
//
// Every operation takes the call's current session and returns the next one
// together with the sentence to say to the caller. Modeled failures (no match,
// ambiguity, bad input, missing candidate, mismatch) come back as
// *domainerrors.Error values carrying that sentence as their message.
package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicedesk/internal/identity"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/privacy"
)

const (
	maxListedCandidates = 3

	msgNotFound       = "Sorry, I could not find a member matching that information. Could you check it and try again?"
	msgDirectoryDown  = "I cannot reach the member records right now. Please try again in a moment."
	msgSummaryDown    = "I could not record the confirmation right now. Please try again in a moment."
	msgMismatch       = "The information does not match. For your security, I cannot open this record."
	msgBadDateOfBirth = "Invalid date of birth. Please use the format YYYY-MM-DD, for example 2001-05-28."
	msgVerbalNotPhone = "This record was not found from your phone number. Please confirm your date of birth and postal code."
	msgCleared        = "The context has been reset. How can I help you?"
	msgNoPending      = "No identity is pending confirmation. Please look up the caller first."
)

// dateOfBirthLayouts are tried in order.
var dateOfBirthLayouts = []string{identity.DateLayout, "02/01/2006"}

// Directory is the subset of the identity directory the state machine reads.
type Directory interface {
	FindByPhone(ctx context.Context, number string) ([]identity.Subject, error)
	FindByEmail(ctx context.Context, email string) ([]identity.Subject, error)
	FindByFullName(ctx context.Context, surname, givenName string) ([]identity.Subject, error)
	FindByContractNumber(ctx context.Context, number string) ([]identity.Subject, error)
	FindByID(ctx context.Context, subjectID id.SubjectID) (*identity.Subject, error)
}

// SummaryWriter records the confirmed subject on the call summary.
type SummaryWriter interface {
	SetResolvedSubject(ctx context.Context, callID id.CallID, subjectID id.SubjectID) error
}

// Metrics counts confirmation attempts.
type Metrics interface {
	IncConfirmation(method, result string)
}

// Criteria selects the directory lookup. Only the fields of Kind are read.
type Criteria struct {
	Kind           id.LookupKind `json:"kind"`
	Phone          string        `json:"phone,omitempty"`
	Email          string        `json:"email,omitempty"`
	Surname        string        `json:"surname,omitempty"`
	GivenName      string        `json:"given_name,omitempty"`
	ContractNumber string        `json:"contract_number,omitempty"`
}

// Validate trims the fields used by Kind and rejects blanks.
func (c *Criteria) Validate() error {
	switch c.Kind {
	case id.LookupByPhone:
		c.Phone = strings.TrimSpace(c.Phone)
		if identity.Digits(c.Phone) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "Please give me a phone number to search for.")
		}
	case id.LookupByEmail:
		c.Email = strings.TrimSpace(c.Email)
		if c.Email == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "Please give me an email address to search for.")
		}
	case id.LookupByFullName:
		c.Surname = strings.TrimSpace(c.Surname)
		c.GivenName = strings.TrimSpace(c.GivenName)
		if c.Surname == "" || c.GivenName == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "Please give me both your surname and your given name.")
		}
	case id.LookupByContractNumber:
		c.ContractNumber = strings.TrimSpace(c.ContractNumber)
		if c.ContractNumber == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "Please give me your contract number.")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "Unknown lookup kind.")
	}
	return nil
}

type Service struct {
	directory Directory
	summaries SummaryWriter
	metrics   Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(directory Directory, summaries SummaryWriter, opts ...Option) (*Service, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory is required")
	}
	if summaries == nil {
		return nil, fmt.Errorf("summary writer is required")
	}
	svc := &Service{
		directory: directory,
		summaries: summaries,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Lookup searches the directory.
//
// No match resets the session to NoCandidate. Several matches leave it as it
// was and ask for a disambiguating field. A single match becomes the
// unconfirmed candidate.
func (s *Service) Lookup(ctx context.Context, sess session.Session, criteria Criteria) (session.Session, string, error) {
	if err := criteria.Validate(); err != nil {
		return sess, dErrors.MessageOf(err, ""), err
	}

	matches, err := s.find(ctx, criteria)
	if err != nil {
		s.logger.ErrorContext(ctx, "directory lookup failed",
			"call_id", sess.CallID,
			"kind", criteria.Kind,
			"error", err,
		)
		return sess, msgDirectoryDown, dErrors.Wrap(err, dErrors.CodeUnavailable, msgDirectoryDown)
	}

	switch len(matches) {
	case 0:
		s.logger.InfoContext(ctx, "lookup found no match",
			"call_id", sess.CallID,
			"kind", criteria.Kind,
		)
		return sess.Reset(), msgNotFound, dErrors.New(dErrors.CodeNotFound, msgNotFound)
	case 1:
		subject := matches[0]
		next := sess.WithCandidate(subject, criteria.Kind)
		s.logger.InfoContext(ctx, "lookup found candidate",
			"call_id", sess.CallID,
			"kind", criteria.Kind,
			"subject_id", subject.ID,
		)
		if criteria.Kind == id.LookupByPhone {
			return next, fmt.Sprintf("Am I speaking with %s?", subject.FullName()), nil
		}
		return next, fmt.Sprintf("I found a record under the name %s. To secure access, could you confirm your date of birth and your postal code?", subject.FullName()), nil
	default:
		msg := ambiguousMessage(matches)
		s.logger.InfoContext(ctx, "lookup ambiguous",
			"call_id", sess.CallID,
			"kind", criteria.Kind,
			"matches", len(matches),
		)
		return sess, msg, dErrors.New(dErrors.CodeAmbiguous, msg)
	}
}

// ConfirmVerbal confirms a phone-originated candidate on the caller's "yes".
func (s *Service) ConfirmVerbal(ctx context.Context, sess session.Session) (session.Session, string, error) {
	const method = "verbal"
	if sess.State != session.StateUnconfirmedCandidate {
		s.countConfirmation(method, "precondition")
		return sess, msgNoPending, dErrors.New(dErrors.CodePrecondition, msgNoPending)
	}
	if sess.FoundVia != id.LookupByPhone {
		s.countConfirmation(method, "precondition")
		return sess, msgVerbalNotPhone, dErrors.New(dErrors.CodePrecondition, msgVerbalNotPhone)
	}
	return s.confirm(ctx, sess, method)
}

// ConfirmTwoFactor checks date of birth and postal code against the
// candidate. Any mismatch drops the candidate without saying which field was
// wrong.
func (s *Service) ConfirmTwoFactor(ctx context.Context, sess session.Session, dateOfBirth, postalCode string) (session.Session, string, error) {
	const method = "two_factor"
	if sess.State != session.StateUnconfirmedCandidate {
		s.countConfirmation(method, "precondition")
		return sess, msgNoPending, dErrors.New(dErrors.CodePrecondition, msgNoPending)
	}

	dob, ok := parseDateOfBirth(dateOfBirth)
	if !ok {
		s.countConfirmation(method, "invalid_input")
		return sess, msgBadDateOfBirth, dErrors.New(dErrors.CodeInvalidInput, msgBadDateOfBirth)
	}

	candidate := sess.Candidate
	if !sameDay(candidate.DateOfBirth, dob) || strings.TrimSpace(postalCode) != candidate.PostalCode {
		s.countConfirmation(method, "mismatch")
		s.logger.WarnContext(ctx, "two-factor confirmation mismatch",
			"call_id", sess.CallID,
			"subject_id", candidate.ID,
			privacy.Attr("date_of_birth", dateOfBirth),
		)
		return sess.Reset(), msgMismatch, dErrors.New(dErrors.CodeMismatch, msgMismatch)
	}
	return s.confirm(ctx, sess, method)
}

// Clear drops any candidate or confirmed identity.
func (s *Service) Clear(ctx context.Context, sess session.Session) (session.Session, string, error) {
	s.logger.InfoContext(ctx, "session cleared",
		"call_id", sess.CallID,
		"previous_state", sess.State,
	)
	return sess.Reset(), msgCleared, nil
}

// Refresh re-reads the confirmed subject, typically after a contact update.
// Sessions that are not confirmed are returned as is.
func (s *Service) Refresh(ctx context.Context, sess session.Session) (session.Session, error) {
	subject, ok := sess.ConfirmedSubject()
	if !ok {
		return sess, nil
	}
	fresh, err := s.directory.FindByID(ctx, subject.ID)
	if err != nil {
		return sess, dErrors.Wrap(err, dErrors.CodeUnavailable, msgDirectoryDown)
	}
	return sess.WithRefreshedSubject(*fresh), nil
}

func (s *Service) confirm(ctx context.Context, sess session.Session, method string) (session.Session, string, error) {
	next, err := sess.Confirm()
	if err != nil {
		s.countConfirmation(method, "precondition")
		return sess, dErrors.MessageOf(err, ""), err
	}
	subject := *next.Candidate
	if err := s.summaries.SetResolvedSubject(ctx, sess.CallID, subject.ID); err != nil {
		s.countConfirmation(method, "store_error")
		s.logger.ErrorContext(ctx, "failed to record resolved subject",
			"call_id", sess.CallID,
			"subject_id", subject.ID,
			"error", err,
		)
		return sess, msgSummaryDown, dErrors.Wrap(err, dErrors.CodeUnavailable, msgSummaryDown)
	}
	s.countConfirmation(method, "confirmed")
	s.logger.InfoContext(ctx, "identity confirmed",
		"call_id", sess.CallID,
		"subject_id", subject.ID,
		"method", method,
	)
	return next, fmt.Sprintf("Thank you, your identity is confirmed. The record of %s is now open. How can I help you?", subject.FullName()), nil
}

func (s *Service) find(ctx context.Context, c Criteria) ([]identity.Subject, error) {
	switch c.Kind {
	case id.LookupByPhone:
		return s.directory.FindByPhone(ctx, c.Phone)
	case id.LookupByEmail:
		return s.directory.FindByEmail(ctx, c.Email)
	case id.LookupByContractNumber:
		return s.directory.FindByContractNumber(ctx, c.ContractNumber)
	default:
		return s.directory.FindByFullName(ctx, c.Surname, c.GivenName)
	}
}

func (s *Service) countConfirmation(method, result string) {
	if s.metrics != nil {
		s.metrics.IncConfirmation(method, result)
	}
}

func ambiguousMessage(matches []identity.Subject) string {
	names := make([]string, 0, maxListedCandidates)
	for _, m := range matches {
		if len(names) == maxListedCandidates {
			break
		}
		names = append(names, m.FullName())
	}
	return fmt.Sprintf("I found several members matching: %s. To identify you precisely, could you give me your email address or your contract number?",
		strings.Join(names, ", "))
}

func parseDateOfBirth(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateOfBirthLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func sameDay(recorded *time.Time, given time.Time) bool {
	if recorded == nil {
		return false
	}
	ry, rm, rd := recorded.Date()
	gy, gm, gd := given.Date()
	return ry == gy && rm == gm && rd == gd
}
