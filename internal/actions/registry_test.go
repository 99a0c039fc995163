package actions_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"voicedesk/internal/actions"
	"voicedesk/internal/calls"
	callstore "voicedesk/internal/calls/store"
	"voicedesk/internal/gate"
	"voicedesk/internal/identity"
	identitystore "voicedesk/internal/identity/store"
	"voicedesk/internal/journal"
	journalstore "voicedesk/internal/journal/store"
	"voicedesk/internal/policy"
	policystore "voicedesk/internal/policy/store"
	"voicedesk/internal/resolution"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/requestcontext"
)

type fakeMetrics struct {
	mu       sync.Mutex
	observed map[string]string
	denials  []string
}

func (m *fakeMetrics) ObserveAction(action, outcome string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed[action] = outcome
}

func (m *fakeMetrics) IncGateDenial(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denials = append(m.denials, action)
}

type brokenDirectory struct{ resolution.Directory }

func (brokenDirectory) FindByPhone(context.Context, string) ([]identity.Subject, error) {
	return nil, errors.New("connection refused")
}

type RegistrySuite struct {
	suite.Suite
	ctx       context.Context
	callID    id.CallID
	calls     *callstore.InMemoryStore
	entries   *journalstore.InMemoryStore
	policies  *policystore.InMemoryStore
	directory *identitystore.InMemoryStore
	metrics   *fakeMetrics
	recorder  *journal.Recorder
	registry  *actions.Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	s.callID = id.NewCallID()

	s.calls = callstore.NewInMemory()
	s.Require().NoError(s.calls.Create(s.ctx, calls.Summary{CallID: s.callID, StartedAt: requestcontext.Now(s.ctx)}))
	s.entries = journalstore.NewInMemory()
	s.recorder = journal.NewRecorder(s.entries, journal.WithLogger(logger), journal.WithErrorLog(s.calls))

	dob := time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC)
	s.directory = identitystore.New(9)
	s.directory.Seed(identity.Subject{ID: 2, Surname: "Martin", GivenName: "Marie", PostalCode: "75010", DateOfBirth: &dob, Email: "marie@example.com"})

	s.policies = policystore.NewInMemory()
	s.policies.SeedContracts(policy.Contract{ID: 100, SubjectID: 2, Number: "CT-100", FormulaID: 5, Status: "Active"})
	s.directory.LinkContract("CT-100", 2)

	s.metrics = &fakeMetrics{observed: map[string]string{}}
	s.registry = s.newRegistry(s.directory, logger)
}

func (s *RegistrySuite) newRegistry(directory resolution.Directory, logger *slog.Logger) *actions.Registry {
	res, err := resolution.New(directory, s.calls, resolution.WithLogger(logger))
	s.Require().NoError(err)
	pol, err := policy.New(s.policies, s.directory, policy.WithLogger(logger))
	s.Require().NoError(err)
	registry, err := actions.NewRegistry(res, pol, s.recorder, actions.WithLogger(logger), actions.WithMetrics(s.metrics))
	s.Require().NoError(err)
	return registry
}

func (s *RegistrySuite) dispatch(sess session.Session, name string, args string) (session.Session, actions.Reply, error) {
	return s.registry.Dispatch(s.ctx, sess, name, json.RawMessage(args))
}

func (s *RegistrySuite) journal() []journal.Entry {
	entries, err := s.entries.EntriesFor(s.ctx, s.callID)
	s.Require().NoError(err)
	return entries
}

func (s *RegistrySuite) confirmedSession() session.Session {
	sess, reply, err := s.dispatch(session.New(s.callID), actions.LookupByFullName, `{"surname":"Martin","given_name":"Marie"}`)
	s.Require().NoError(err)
	s.Require().Equal(journal.OutcomeSucceeded, reply.Outcome)
	sess, reply, err = s.dispatch(sess, actions.ConfirmIdentity, `{"date_of_birth":"1985-03-02","postal_code":"75010"}`)
	s.Require().NoError(err)
	s.Require().Equal(session.StateConfirmed, reply.State)
	return sess
}

func (s *RegistrySuite) TestActionsDescribeEveryGuardedOperation() {
	var guarded []string
	for _, d := range s.registry.Actions() {
		s.Equal("object", d.Parameters.Type, d.Name)
		if d.Guarded {
			guarded = append(guarded, d.Name)
		}
	}
	s.ElementsMatch(gate.Protected, guarded)
	s.Len(s.registry.Actions(), len(gate.Protected)+7)
	s.True(s.registry.Has(actions.ConfirmIdentity))
}

func (s *RegistrySuite) TestGuardedClaimCreationWithoutConfirmation() {
	sess := session.New(s.callID)
	next, reply, err := s.dispatch(sess, gate.OpCreateClaim, `{"contract_id":100,"claim_type":"Dental","incident_date":"2025-05-20"}`)
	s.Require().NoError(err)
	s.Equal(sess, next)
	s.Equal(journal.OutcomeNotConfirmed, reply.Outcome)
	s.Equal(gate.NotConfirmedMessage, reply.Message)

	claims, err := s.policies.ClaimsFor(s.ctx, 2)
	s.Require().NoError(err)
	s.Empty(claims)

	entries := s.journal()
	s.Require().Len(entries, 2)
	s.Equal(journal.KindToolCall, entries[0].Kind)
	s.Equal(gate.OpCreateClaim, entries[0].Operation)
	s.Equal(journal.KindToolResult, entries[1].Kind)
	s.Equal(gate.NotConfirmedMessage, entries[1].Result)
	s.Equal([]string{gate.OpCreateClaim}, s.metrics.denials)
}

func (s *RegistrySuite) TestConfirmedCallerCreatesClaim() {
	sess := s.confirmedSession()
	_, reply, err := s.dispatch(sess, gate.OpCreateClaim, `{"contract_id":100,"claim_type":"Dental","description":"Crown","incident_date":"2025-05-20"}`)
	s.Require().NoError(err)
	s.Equal(journal.OutcomeSucceeded, reply.Outcome)
	s.Contains(reply.Message, "Claim number: 1")

	summary, err := s.calls.Get(s.ctx, s.callID)
	s.Require().NoError(err)
	s.Require().NotNil(summary.ResolvedSubjectID)
	s.Equal(id.SubjectID(2), *summary.ResolvedSubjectID)

	s.Len(s.journal(), 6)
	s.Equal(string(journal.OutcomeSucceeded), s.metrics.observed[gate.OpCreateClaim])
}

func (s *RegistrySuite) TestContractNumberLookupNeedsTwoFactor() {
	sess, reply, err := s.dispatch(session.New(s.callID), actions.LookupByContractNumber, `{"contract_number":"ct-100"}`)
	s.Require().NoError(err)
	s.Equal(journal.OutcomeSucceeded, reply.Outcome)
	s.Equal(session.StateUnconfirmedCandidate, reply.State)
	s.Equal(id.LookupByContractNumber, sess.FoundVia)

	_, reply, err = s.dispatch(sess, actions.ConfirmVerbal, `{}`)
	s.Require().NoError(err)
	s.Equal(journal.OutcomePrecondition, reply.Outcome)
}

func (s *RegistrySuite) TestContactUpdateRefreshesSession() {
	sess := s.confirmedSession()
	next, reply, err := s.dispatch(sess, gate.OpUpdateContact, `{"email":"marie.martin@example.com"}`)
	s.Require().NoError(err)
	s.Equal(journal.OutcomeSucceeded, reply.Outcome)
	s.Equal("marie.martin@example.com", next.Candidate.Email)
	s.Equal(session.StateConfirmed, next.State)
}

func (s *RegistrySuite) TestModeledFailuresAreOutcomesNotErrors() {
	s.Run("malformed arguments", func() {
		sess := session.New(s.callID)
		next, reply, err := s.dispatch(sess, actions.LookupByEmail, `{"mail":"x"}`)
		s.Require().NoError(err)
		s.Equal(journal.OutcomeInvalidInput, reply.Outcome)
		s.Equal(sess, next)
	})

	s.Run("two-factor mismatch resets the session", func() {
		sess, _, err := s.dispatch(session.New(s.callID), actions.LookupByEmail, `{"email":"MARIE@example.com"}`)
		s.Require().NoError(err)
		next, reply, err := s.dispatch(sess, actions.ConfirmIdentity, `{"date_of_birth":"1985-03-03","postal_code":"75010"}`)
		s.Require().NoError(err)
		s.Equal(journal.OutcomeMismatch, reply.Outcome)
		s.Equal(session.StateNoCandidate, next.State)
	})

	s.Run("expense beyond any sane amount", func() {
		_, reply, err := s.dispatch(s.confirmedSession(), gate.OpSimulateReimbursement,
			`{"contract_id":100,"guarantee_name":"Optique","expense_amount":1e300}`)
		s.Require().NoError(err)
		s.Equal(journal.OutcomeInvalidInput, reply.Outcome)
		s.Contains(reply.Message, "cannot exceed")
	})

	s.Run("foreign contract", func() {
		s.policies.SeedContracts(policy.Contract{ID: 200, SubjectID: 9, Number: "CT-200"})
		_, reply, err := s.dispatch(s.confirmedSession(), gate.OpGetContractDetails, `{"contract_id":200}`)
		s.Require().NoError(err)
		s.Equal(journal.OutcomeForbidden, reply.Outcome)
	})
}

func (s *RegistrySuite) TestFaultKeepsSessionAndLogsError() {
	registry := s.newRegistry(brokenDirectory{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sess := session.New(s.callID)
	next, reply, err := registry.Dispatch(s.ctx, sess, actions.LookupByPhone, json.RawMessage(`{"phone":"0612345678"}`))
	s.Require().Error(err)
	s.True(dErrors.IsFault(err))
	s.Equal(sess, next)
	s.Equal(journal.OutcomeStoreError, reply.Outcome)
	s.NotEmpty(reply.Message)

	count, err := s.calls.CountForCall(s.ctx, s.callID)
	s.Require().NoError(err)
	s.Equal(1, count)
	s.Len(s.journal(), 2)
}

func (s *RegistrySuite) TestUnknownActionIsNotJournaled() {
	_, _, err := s.dispatch(session.New(s.callID), "transfer_funds", `{}`)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Empty(s.journal())
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want journal.Outcome
	}{
		{nil, journal.OutcomeSucceeded},
		{dErrors.New(dErrors.CodeNotFound, ""), journal.OutcomeNotFound},
		{dErrors.New(dErrors.CodeAmbiguous, ""), journal.OutcomeAmbiguous},
		{dErrors.New(dErrors.CodeInvalidInput, ""), journal.OutcomeInvalidInput},
		{dErrors.New(dErrors.CodePrecondition, ""), journal.OutcomePrecondition},
		{dErrors.Wrap(gate.ErrNotConfirmed, dErrors.CodePrecondition, ""), journal.OutcomeNotConfirmed},
		{dErrors.New(dErrors.CodeMismatch, ""), journal.OutcomeMismatch},
		{dErrors.New(dErrors.CodeForbidden, ""), journal.OutcomeForbidden},
		{errors.New("boom"), journal.OutcomeStoreError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, actions.OutcomeFor(tt.err), "%v", tt.err)
	}
}
