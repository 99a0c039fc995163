// Package gate is the single enforcement point for operations that read
// sensitive member data or change member, contract or claim records.
//
// Guarded handlers receive the confirmed subject rather than the session, so
// the only way to reach one is through Guard.
package gate

import (
	"context"
	"errors"
	"slices"

	"voicedesk/internal/identity"
	"voicedesk/internal/session"
	dErrors "voicedesk/pkg/domain-errors"
)

// Names of the guarded operations.
const (
	OpGetSubjectDetails     = "get_subject_details"
	OpUpdateContact         = "update_contact_information"
	OpListContracts         = "list_contracts"
	OpGetContractDetails    = "get_contract_details"
	OpListPlanGuarantees    = "list_plan_guarantees"
	OpGetCoverageDetails    = "get_coverage_details"
	OpSimulateReimbursement = "simulate_reimbursement"
	OpListClaims            = "list_claims"
	OpCreateClaim           = "create_claim"
	OpGetClaimStatus        = "get_claim_status"
)

// NotConfirmedMessage is said to the caller when a guarded operation is refused.
const NotConfirmedMessage = "I can't do that yet. The member's identity must be confirmed first."

// ErrNotConfirmed is wrapped by Guard's refusal.
var ErrNotConfirmed = errors.New("identity not confirmed")

// ErrNotGuarded is returned when Guard is asked to run an operation missing
// from Protected.
var ErrNotGuarded = errors.New("operation is not in the guarded list")

var (
	// Protected is the closed list of guarded operations.
	Protected = []string{
		OpGetSubjectDetails,
		OpUpdateContact,
		OpListContracts,
		OpGetContractDetails,
		OpListPlanGuarantees,
		OpGetCoverageDetails,
		OpSimulateReimbursement,
		OpListClaims,
		OpCreateClaim,
		OpGetClaimStatus,
	}

	// Mutating are the guarded operations that write member data.
	Mutating = []string{OpUpdateContact, OpCreateClaim}

	// Key are the operations whose success signals a resolved call.
	Key = []string{OpCreateClaim, OpUpdateContact}
)

func IsProtected(op string) bool { return slices.Contains(Protected, op) }

func IsMutating(op string) bool { return slices.Contains(Mutating, op) }

func IsKey(op string) bool { return slices.Contains(Key, op) }

// Guard runs fn with the confirmed subject. Any other session state is a
// precondition failure wrapping ErrNotConfirmed, and fn is not called.
func Guard[T any](ctx context.Context, sess session.Session, op string, fn func(ctx context.Context, subject identity.Subject) (T, error)) (T, error) {
	var zero T
	if !IsProtected(op) {
		return zero, dErrors.Wrap(ErrNotGuarded, dErrors.CodeInternal, op)
	}
	subject, ok := sess.ConfirmedSubject()
	if !ok {
		return zero, dErrors.Wrap(ErrNotConfirmed, dErrors.CodePrecondition, NotConfirmedMessage)
	}
	return fn(ctx, subject)
}
