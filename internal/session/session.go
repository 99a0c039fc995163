// Package session holds the per-call identity-resolution state.
//
// A Session is a value. It is created when a call starts, replaced on every
// transition and discarded when the call ends. Transitions are only available
// as methods returning a new value, so a Confirmed session can never be built
// from NoCandidate directly.
package session

import (
	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/sentinel"
)

// State is the identity-resolution position of a call.
type State string

const (
	StateNoCandidate          State = "no_candidate"
	StateUnconfirmedCandidate State = "unconfirmed_candidate"
	StateConfirmed            State = "confirmed"
)

// Session is the identity-resolution state for one call.
// Candidate is nil exactly when State is StateNoCandidate. FoundVia records
// how the candidate was found and is retained once confirmed.
type Session struct {
	CallID    id.CallID         `json:"call_id"`
	State     State             `json:"state"`
	Candidate *identity.Subject `json:"candidate,omitempty"`
	FoundVia  id.LookupKind     `json:"found_via,omitempty"`
}

// New returns the initial NoCandidate session for a call.
func New(callID id.CallID) Session {
	return Session{CallID: callID, State: StateNoCandidate}
}

// WithCandidate moves to UnconfirmedCandidate from any state.
func (s Session) WithCandidate(subject identity.Subject, via id.LookupKind) Session {
	candidate := subject
	return Session{
		CallID:    s.CallID,
		State:     StateUnconfirmedCandidate,
		Candidate: &candidate,
		FoundVia:  via,
	}
}

// Confirm moves UnconfirmedCandidate to Confirmed. Any other source state is
// a precondition failure and s is returned unchanged.
func (s Session) Confirm() (Session, error) {
	if s.State != StateUnconfirmedCandidate || s.Candidate == nil {
		return s, dErrors.New(dErrors.CodePrecondition, "No identity is pending confirmation. Please look up the caller first.")
	}
	candidate := *s.Candidate
	return Session{
		CallID:    s.CallID,
		State:     StateConfirmed,
		Candidate: &candidate,
		FoundVia:  s.FoundVia,
	}, nil
}

// Reset returns to NoCandidate from any state.
func (s Session) Reset() Session {
	return New(s.CallID)
}

// WithRefreshedSubject replaces the confirmed subject's data without changing state.
func (s Session) WithRefreshedSubject(subject identity.Subject) Session {
	if s.State != StateConfirmed || s.Candidate == nil || s.Candidate.ID != subject.ID {
		return s
	}
	refreshed := subject
	s.Candidate = &refreshed
	return s
}

func (s Session) IsConfirmed() bool {
	return s.State == StateConfirmed && s.Candidate != nil
}

// ConfirmedSubject returns the subject when the session is confirmed.
func (s Session) ConfirmedSubject() (identity.Subject, bool) {
	if !s.IsConfirmed() {
		return identity.Subject{}, false
	}
	return *s.Candidate, true
}

// CandidateID returns the candidate id, or 0 when there is none.
func (s Session) CandidateID() id.SubjectID {
	if s.Candidate == nil {
		return 0
	}
	return s.Candidate.ID
}

// Validate checks the state invariants. Stores call it on load.
func (s Session) Validate() error {
	if s.CallID.IsNil() {
		return sentinel.ErrInvalidState
	}
	switch s.State {
	case StateNoCandidate:
		if s.Candidate != nil || s.FoundVia != "" {
			return sentinel.ErrInvalidState
		}
	case StateUnconfirmedCandidate, StateConfirmed:
		if s.Candidate == nil || !s.FoundVia.IsValid() {
			return sentinel.ErrInvalidState
		}
	default:
		return sentinel.ErrInvalidState
	}
	return nil
}
