// Package actions exposes the identity and guarded operations to the driving
// runtime as a fixed table of named actions with typed arguments.
//
// Dispatch journals every invocation, routes guarded actions through the
// gate and converts the result into an explicit outcome tag.
package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"voicedesk/internal/gate"
	"voicedesk/internal/identity"
	"voicedesk/internal/journal"
	"voicedesk/internal/policy"
	"voicedesk/internal/resolution"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
)

// Identity action names.
const (
	LookupByPhone          = "lookup_by_phone"
	LookupByEmail          = "lookup_by_email"
	LookupByFullName       = "lookup_by_fullname"
	LookupByContractNumber = "lookup_by_contract_number"
	ConfirmVerbal          = "confirm_verbal"
	ConfirmIdentity        = "confirm_identity"
	ClearContext           = "clear_context"
)

var tracer = otel.Tracer("voicedesk/internal/actions")

// Resolver is the identity-resolution state machine.
type Resolver interface {
	Lookup(ctx context.Context, sess session.Session, criteria resolution.Criteria) (session.Session, string, error)
	ConfirmVerbal(ctx context.Context, sess session.Session) (session.Session, string, error)
	ConfirmTwoFactor(ctx context.Context, sess session.Session, dateOfBirth, postalCode string) (session.Session, string, error)
	Clear(ctx context.Context, sess session.Session) (session.Session, string, error)
	Refresh(ctx context.Context, sess session.Session) (session.Session, error)
}

// Policy serves the guarded operations.
type Policy interface {
	SubjectDetails(ctx context.Context, subject identity.Subject) (string, error)
	UpdateContact(ctx context.Context, subject identity.Subject, update identity.ContactUpdate) (string, error)
	ListContracts(ctx context.Context, subject identity.Subject) (string, error)
	ContractDetails(ctx context.Context, subject identity.Subject, contractID id.ContractID) (string, error)
	ListGuarantees(ctx context.Context, subject identity.Subject, contractID id.ContractID) (string, error)
	CoverageDetails(ctx context.Context, subject identity.Subject, contractID id.ContractID, label string) (string, error)
	SimulateReimbursement(ctx context.Context, subject identity.Subject, contractID id.ContractID, label string, expenseCents int64) (string, error)
	ListClaims(ctx context.Context, subject identity.Subject) (string, error)
	CreateClaim(ctx context.Context, subject identity.Subject, req policy.ClaimRequest) (string, error)
	ClaimStatus(ctx context.Context, subject identity.Subject, claimID id.ClaimID) (string, error)
}

// Journal brackets each invocation.
type Journal interface {
	Bracket(ctx context.Context, callID id.CallID, op string, params any, fn func(ctx context.Context) (journal.Result, error)) (journal.Result, error)
}

// Metrics records dispatch outcomes.
type Metrics interface {
	ObserveAction(action, outcome string, seconds float64)
	IncGateDenial(action string)
}

// Reply is what the runtime receives for one invocation.
type Reply struct {
	Message string          `json:"message"`
	Outcome journal.Outcome `json:"outcome"`
	State   session.State   `json:"state"`
}

type handler func(ctx context.Context, sess session.Session, args json.RawMessage) (session.Session, string, error)

type action struct {
	Descriptor
	run handler
	// refresh re-reads the confirmed subject after success
	refresh bool
}

// Registry maps action names to handlers. It is built once and never changes.
type Registry struct {
	resolver Resolver
	policy   Policy
	journal  Journal
	metrics  Metrics
	logger   *slog.Logger

	byName map[string]*action
	order  []*action
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func NewRegistry(resolver Resolver, pol Policy, j Journal, opts ...Option) (*Registry, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if pol == nil {
		return nil, fmt.Errorf("policy service is required")
	}
	if j == nil {
		return nil, fmt.Errorf("journal is required")
	}
	r := &Registry{
		resolver: resolver,
		policy:   pol,
		journal:  j,
		logger:   slog.Default(),
		byName:   make(map[string]*action),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, a := range r.table() {
		if _, dup := r.byName[a.Name]; dup {
			return nil, fmt.Errorf("duplicate action %q", a.Name)
		}
		r.byName[a.Name] = a
		r.order = append(r.order, a)
	}
	return r, nil
}

// Actions describes every action in registration order.
func (r *Registry) Actions() []Descriptor {
	out := make([]Descriptor, len(r.order))
	for i, a := range r.order {
		out[i] = a.Descriptor
	}
	return out
}

// Has reports whether name is a registered action.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Dispatch runs one action for the call owning sess and returns the next
// session. Modeled failures are carried in Reply.Outcome with a nil error.
// A non-nil error means the operation faulted; the reply then holds the
// fallback message and the session is unchanged.
func (r *Registry) Dispatch(ctx context.Context, sess session.Session, name string, args json.RawMessage) (session.Session, Reply, error) {
	a, ok := r.byName[name]
	if !ok {
		return sess, Reply{}, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown action %q", name))
	}

	ctx, span := tracer.Start(ctx, "actions.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("action", name),
		attribute.String("call_id", sess.CallID.String()),
		attribute.Bool("guarded", a.Guarded),
	)

	var params any = args
	if len(bytes.TrimSpace(args)) > 0 && !json.Valid(args) {
		params = map[string]string{"raw": string(args)}
	}

	start := time.Now()
	next := sess
	res, err := r.journal.Bracket(ctx, sess.CallID, name, params, func(ctx context.Context) (journal.Result, error) {
		updated, msg, err := a.run(ctx, sess, args)
		if err != nil && dErrors.IsFault(err) {
			return journal.Result{}, err
		}
		next = updated
		if err != nil {
			return journal.Result{Message: dErrors.MessageOf(err, msg), Outcome: OutcomeFor(err)}, nil
		}
		if a.refresh {
			next = r.refresh(ctx, next)
		}
		return journal.Result{Message: msg, Outcome: journal.OutcomeSucceeded}, nil
	})
	if err != nil {
		next = sess
		span.RecordError(err)
		span.SetStatus(codes.Error, "action faulted")
	}

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	if res.Outcome == journal.OutcomeNotConfirmed && r.metrics != nil {
		r.metrics.IncGateDenial(name)
	}
	if r.metrics != nil {
		r.metrics.ObserveAction(name, string(res.Outcome), time.Since(start).Seconds())
	}
	r.logger.InfoContext(ctx, "action dispatched",
		"call_id", sess.CallID,
		"action", name,
		"outcome", res.Outcome,
		"state", next.State,
	)
	return next, Reply{Message: res.Message, Outcome: res.Outcome, State: next.State}, err
}

func (r *Registry) refresh(ctx context.Context, sess session.Session) session.Session {
	fresh, err := r.resolver.Refresh(ctx, sess)
	if err != nil {
		r.logger.WarnContext(ctx, "session refresh failed",
			"call_id", sess.CallID,
			"error", err,
		)
		return sess
	}
	return fresh
}

// OutcomeFor maps a modeled error to its outcome tag.
func OutcomeFor(err error) journal.Outcome {
	if err == nil {
		return journal.OutcomeSucceeded
	}
	if errors.Is(err, gate.ErrNotConfirmed) {
		return journal.OutcomeNotConfirmed
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return journal.OutcomeNotFound
	case dErrors.CodeAmbiguous:
		return journal.OutcomeAmbiguous
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return journal.OutcomeInvalidInput
	case dErrors.CodePrecondition:
		return journal.OutcomePrecondition
	case dErrors.CodeMismatch:
		return journal.OutcomeMismatch
	case dErrors.CodeForbidden, dErrors.CodeUnauthorized:
		return journal.OutcomeForbidden
	default:
		return journal.OutcomeStoreError
	}
}

// decode reads args strictly into T. Empty args decode as {}.
func decode[T any](name string, raw json.RawMessage) (T, error) {
	var v T
	if len(bytes.TrimSpace(raw)) == 0 {
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("I could not read the parameters for %s.", name))
	}
	return v, nil
}

// identityAction builds an ungated action working on the session.
func identityAction[A any](name, desc string, params Schema, fn func(ctx context.Context, sess session.Session, args A) (session.Session, string, error)) *action {
	return &action{
		Descriptor: Descriptor{Name: name, Description: desc, Parameters: params},
		run: func(ctx context.Context, sess session.Session, raw json.RawMessage) (session.Session, string, error) {
			args, err := decode[A](name, raw)
			if err != nil {
				return sess, "", err
			}
			return fn(ctx, sess, args)
		},
	}
}

// guardedAction builds an action that only runs for a confirmed subject.
// Arguments are read after the gate so a refused call reveals nothing.
func guardedAction[A any](name, desc string, params Schema, fn func(ctx context.Context, subject identity.Subject, args A) (string, error)) *action {
	return &action{
		Descriptor: Descriptor{Name: name, Description: desc, Guarded: true, Parameters: params},
		run: func(ctx context.Context, sess session.Session, raw json.RawMessage) (session.Session, string, error) {
			msg, err := gate.Guard(ctx, sess, name, func(ctx context.Context, subject identity.Subject) (string, error) {
				args, err := decode[A](name, raw)
				if err != nil {
					return "", err
				}
				return fn(ctx, subject, args)
			})
			return sess, msg, err
		},
	}
}

type (
	noArgs    struct{}
	phoneArgs struct {
		Phone string `json:"phone"`
	}
	emailArgs struct {
		Email string `json:"email"`
	}
	fullNameArgs struct {
		Surname   string `json:"surname"`
		GivenName string `json:"given_name"`
	}
	contractNumberArgs struct {
		ContractNumber string `json:"contract_number"`
	}
	twoFactorArgs struct {
		DateOfBirth string `json:"date_of_birth"`
		PostalCode  string `json:"postal_code"`
	}
	contractArgs struct {
		ContractID id.ContractID `json:"contract_id"`
	}
	coverageArgs struct {
		ContractID    id.ContractID `json:"contract_id"`
		GuaranteeName string        `json:"guarantee_name"`
	}
	simulationArgs struct {
		ContractID    id.ContractID `json:"contract_id"`
		GuaranteeName string        `json:"guarantee_name"`
		ExpenseAmount float64       `json:"expense_amount"`
	}
	claimArgs struct {
		ClaimID id.ClaimID `json:"claim_id"`
	}
)

// toCents converts a euro amount to integer cents, saturating at the int64
// range so out-of-range amounts reach the bound check instead of wrapping.
func toCents(amount float64) int64 {
	cents := math.Round(amount * 100)
	switch {
	case math.IsNaN(cents):
		return 0
	case cents >= math.MaxInt64:
		return math.MaxInt64
	case cents <= math.MinInt64:
		return math.MinInt64
	}
	return int64(cents)
}

func (r *Registry) table() []*action {
	res, pol := r.resolver, r.policy
	contractProp := integer("Contract identifier.")
	guaranteeProp := str("Name of the guarantee, for example Optique.")

	return []*action{
		identityAction(LookupByPhone, "Look up the caller by phone number.",
			object([]string{"phone"}, map[string]Property{"phone": str("Phone number in any format.")}),
			func(ctx context.Context, sess session.Session, a phoneArgs) (session.Session, string, error) {
				return res.Lookup(ctx, sess, resolution.Criteria{Kind: id.LookupByPhone, Phone: a.Phone})
			}),
		identityAction(LookupByEmail, "Look up the caller by email address to start identification.",
			object([]string{"email"}, map[string]Property{"email": str("Email address.")}),
			func(ctx context.Context, sess session.Session, a emailArgs) (session.Session, string, error) {
				return res.Lookup(ctx, sess, resolution.Criteria{Kind: id.LookupByEmail, Email: a.Email})
			}),
		identityAction(LookupByFullName, "Look up the caller by surname and given name.",
			object([]string{"surname", "given_name"}, map[string]Property{
				"surname":    str("Surname."),
				"given_name": str("Given name."),
			}),
			func(ctx context.Context, sess session.Session, a fullNameArgs) (session.Session, string, error) {
				return res.Lookup(ctx, sess, resolution.Criteria{Kind: id.LookupByFullName, Surname: a.Surname, GivenName: a.GivenName})
			}),
		identityAction(LookupByContractNumber, "Look up the caller by the number printed on their contract.",
			object([]string{"contract_number"}, map[string]Property{"contract_number": str("Contract number, for example CTR-2019-0020.")}),
			func(ctx context.Context, sess session.Session, a contractNumberArgs) (session.Session, string, error) {
				return res.Lookup(ctx, sess, resolution.Criteria{Kind: id.LookupByContractNumber, ContractNumber: a.ContractNumber})
			}),
		identityAction(ConfirmVerbal, "Confirm a caller found by phone after they said yes.",
			object(nil, nil),
			func(ctx context.Context, sess session.Session, _ noArgs) (session.Session, string, error) {
				return res.ConfirmVerbal(ctx, sess)
			}),
		identityAction(ConfirmIdentity, "Confirm the pending member with date of birth and postal code.",
			object([]string{"date_of_birth", "postal_code"}, map[string]Property{
				"date_of_birth": date("Date of birth, YYYY-MM-DD."),
				"postal_code":   str("Postal code."),
			}),
			func(ctx context.Context, sess session.Session, a twoFactorArgs) (session.Session, string, error) {
				return res.ConfirmTwoFactor(ctx, sess, a.DateOfBirth, a.PostalCode)
			}),
		identityAction(ClearContext, "Forget the current member, for a wrong match or a new request.",
			object(nil, nil),
			func(ctx context.Context, sess session.Session, _ noArgs) (session.Session, string, error) {
				return res.Clear(ctx, sess)
			}),

		guardedAction(gate.OpGetSubjectDetails, "Read the confirmed member's personal details.",
			object(nil, nil),
			func(ctx context.Context, subject identity.Subject, _ noArgs) (string, error) {
				return pol.SubjectDetails(ctx, subject)
			}),
		withRefresh(guardedAction(gate.OpUpdateContact, "Update the confirmed member's contact information.",
			object(nil, map[string]Property{
				"address":     str("Street address."),
				"postal_code": str("Postal code."),
				"city":        str("City."),
				"phone":       str("Phone number."),
				"email":       str("Email address."),
			}),
			func(ctx context.Context, subject identity.Subject, update identity.ContactUpdate) (string, error) {
				return pol.UpdateContact(ctx, subject, update)
			})),
		guardedAction(gate.OpListContracts, "List the confirmed member's contracts.",
			object(nil, nil),
			func(ctx context.Context, subject identity.Subject, _ noArgs) (string, error) {
				return pol.ListContracts(ctx, subject)
			}),
		guardedAction(gate.OpGetContractDetails, "Describe one contract: plan, monthly rate, status and period.",
			object([]string{"contract_id"}, map[string]Property{"contract_id": contractProp}),
			func(ctx context.Context, subject identity.Subject, a contractArgs) (string, error) {
				return pol.ContractDetails(ctx, subject, a.ContractID)
			}),
		guardedAction(gate.OpListPlanGuarantees, "List the guarantees included in a contract's plan.",
			object([]string{"contract_id"}, map[string]Property{"contract_id": contractProp}),
			func(ctx context.Context, subject identity.Subject, a contractArgs) (string, error) {
				return pol.ListGuarantees(ctx, subject, a.ContractID)
			}),
		guardedAction(gate.OpGetCoverageDetails, "Give rate, ceiling and deductible for one guarantee of a contract.",
			object([]string{"contract_id", "guarantee_name"}, map[string]Property{
				"contract_id":    contractProp,
				"guarantee_name": guaranteeProp,
			}),
			func(ctx context.Context, subject identity.Subject, a coverageArgs) (string, error) {
				return pol.CoverageDetails(ctx, subject, a.ContractID, a.GuaranteeName)
			}),
		guardedAction(gate.OpSimulateReimbursement, "Estimate the reimbursement of an expense under one guarantee.",
			object([]string{"contract_id", "guarantee_name", "expense_amount"}, map[string]Property{
				"contract_id":    contractProp,
				"guarantee_name": guaranteeProp,
				"expense_amount": number("Expense in euros."),
			}),
			func(ctx context.Context, subject identity.Subject, a simulationArgs) (string, error) {
				return pol.SimulateReimbursement(ctx, subject, a.ContractID, a.GuaranteeName, toCents(a.ExpenseAmount))
			}),
		guardedAction(gate.OpListClaims, "List the confirmed member's claims.",
			object(nil, nil),
			func(ctx context.Context, subject identity.Subject, _ noArgs) (string, error) {
				return pol.ListClaims(ctx, subject)
			}),
		guardedAction(gate.OpCreateClaim, "Declare a new claim on one of the member's contracts.",
			object([]string{"contract_id", "claim_type", "incident_date"}, map[string]Property{
				"contract_id":   contractProp,
				"claim_type":    str("Kind of claim, for example Dental."),
				"description":   str("What happened."),
				"incident_date": date("Incident date, YYYY-MM-DD."),
			}),
			func(ctx context.Context, subject identity.Subject, req policy.ClaimRequest) (string, error) {
				return pol.CreateClaim(ctx, subject, req)
			}),
		guardedAction(gate.OpGetClaimStatus, "Give the status of one claim.",
			object([]string{"claim_id"}, map[string]Property{"claim_id": integer("Claim identifier.")}),
			func(ctx context.Context, subject identity.Subject, a claimArgs) (string, error) {
				return pol.ClaimStatus(ctx, subject, a.ClaimID)
			}),
	}
}

func withRefresh(a *action) *action {
	a.refresh = true
	return a
}
