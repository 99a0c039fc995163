package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"voicedesk/internal/actions"
	"voicedesk/internal/calls"
	"voicedesk/internal/calls/handler/mocks"
	callservice "voicedesk/internal/calls/service"
	"voicedesk/internal/journal"
	jwttoken "voicedesk/internal/jwt_token"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	authmw "voicedesk/pkg/platform/middleware/auth"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks CallService,Evaluator,Catalog

type staticValidator struct {
	scopes []string
}

func (v staticValidator) ValidateToken(token string) (*authmw.JWTClaims, error) {
	if token != "good" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &authmw.JWTClaims{ClientID: "runtime-1", Scopes: v.scopes}, nil
}

type CallHandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	calls     *mocks.MockCallService
	evaluator *mocks.MockEvaluator
	catalog   *mocks.MockCatalog
	router    chi.Router
}

func TestCallHandlerSuite(t *testing.T) {
	suite.Run(t, new(CallHandlerSuite))
}

func (s *CallHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.calls = mocks.NewMockCallService(s.ctrl)
	s.evaluator = mocks.NewMockEvaluator(s.ctrl)
	s.catalog = mocks.NewMockCatalog(s.ctrl)
	s.router = s.newRouter(jwttoken.ScopeCalls, jwttoken.ScopeEvaluations)
}

func (s *CallHandlerSuite) newRouter(scopes ...string) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.calls, s.evaluator, s.catalog, logger)
	r := chi.NewRouter()
	r.Use(authmw.RequireAuth(staticValidator{scopes: scopes}, logger))
	h.Register(r)
	return r
}

func (s *CallHandlerSuite) do(router http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func (s *CallHandlerSuite) TestStartCall() {
	callID := id.NewCallID()
	s.calls.EXPECT().Start(gomock.Any(), "+33612345678").Return(&callservice.Started{
		CallID:   callID,
		Greeting: "Am I speaking with Jean Dupont?",
		State:    session.StateUnconfirmedCandidate,
	}, nil)

	rec := s.do(s.router, http.MethodPost, "/calls", []byte(`{"caller_number":"+33612345678"}`))
	s.Require().Equal(http.StatusCreated, rec.Code)

	var got callservice.Started
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&got))
	s.Equal(callID, got.CallID)
	s.Equal(session.StateUnconfirmedCandidate, got.State)
}

func (s *CallHandlerSuite) TestStartCallRejectsUnknownFields() {
	rec := s.do(s.router, http.MethodPost, "/calls", []byte(`{"number":"1"}`))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *CallHandlerSuite) TestInvokeModeledRefusalIsOK() {
	callID := id.NewCallID()
	args := []byte(`{"contract_id":3,"claim_type":"dental","description":"crown","incident_date":"2025-05-01"}`)
	s.calls.EXPECT().
		Invoke(gomock.Any(), callID, "create_claim", json.RawMessage(args)).
		Return(actions.Reply{
			Message: "I can't do that yet. The member's identity must be confirmed first.",
			Outcome: journal.OutcomeNotConfirmed,
			State:   session.StateNoCandidate,
		}, nil)

	rec := s.do(s.router, http.MethodPost, "/calls/"+callID.String()+"/actions/create_claim", args)
	s.Require().Equal(http.StatusOK, rec.Code)

	var reply actions.Reply
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&reply))
	s.Equal(journal.OutcomeNotConfirmed, reply.Outcome)
}

func (s *CallHandlerSuite) TestInvokeFaultIsUnavailable() {
	callID := id.NewCallID()
	s.calls.EXPECT().Invoke(gomock.Any(), callID, "list_claims", gomock.Any()).
		Return(actions.Reply{Message: journal.FallbackMessage, Outcome: journal.OutcomeStoreError},
			dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeUnavailable, journal.FallbackMessage))

	rec := s.do(s.router, http.MethodPost, "/calls/"+callID.String()+"/actions/list_claims", nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
	s.Contains(rec.Body.String(), "technical problem")
}

func (s *CallHandlerSuite) TestInvalidCallID() {
	rec := s.do(s.router, http.MethodPost, "/calls/not-a-uuid/end", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *CallHandlerSuite) TestEndCall() {
	callID := id.NewCallID()
	s.calls.EXPECT().End(gomock.Any(), callID, "claim filed").Return(nil)

	rec := s.do(s.router, http.MethodPost, "/calls/"+callID.String()+"/end", []byte(`{"resolution_summary":"claim filed"}`))
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *CallHandlerSuite) TestEndUnknownCall() {
	callID := id.NewCallID()
	s.calls.EXPECT().End(gomock.Any(), callID, "").Return(dErrors.New(dErrors.CodeNotFound, "call not found"))

	rec := s.do(s.router, http.MethodPost, "/calls/"+callID.String()+"/end", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *CallHandlerSuite) TestEvaluate() {
	callID := id.NewCallID()
	s.evaluator.EXPECT().Evaluate(gomock.Any(), callID).Return(calls.Evaluation{
		PromptEvaluation:     "Member identity was confirmed during the call.",
		ResolutionEvaluation: "Positive resolution indicator (a key action succeeded).",
	}, nil)

	rec := s.do(s.router, http.MethodPost, "/calls/"+callID.String()+"/evaluate", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "identity was confirmed")
}

func (s *CallHandlerSuite) TestJournalNeverNull() {
	callID := id.NewCallID()
	s.calls.EXPECT().Journal(gomock.Any(), callID).Return(nil, nil)

	rec := s.do(s.router, http.MethodGet, "/calls/"+callID.String()+"/journal", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"entries":[]`)
}

func (s *CallHandlerSuite) TestListActions() {
	s.catalog.EXPECT().Actions().Return([]actions.Descriptor{{Name: "lookup_by_phone"}})

	rec := s.do(s.router, http.MethodGet, "/actions", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "lookup_by_phone")
}

func (s *CallHandlerSuite) TestScopesAreEnforced() {
	callsOnly := s.newRouter(jwttoken.ScopeCalls)
	rec := s.do(callsOnly, http.MethodGet, "/calls/"+id.NewCallID().String()+"/summary", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	evaluationsOnly := s.newRouter(jwttoken.ScopeEvaluations)
	rec = s.do(evaluationsOnly, http.MethodPost, "/calls", nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *CallHandlerSuite) TestMissingToken() {
	req := httptest.NewRequest(http.MethodGet, "/actions", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
