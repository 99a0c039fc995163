package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
	"voicedesk/pkg/platform/sentinel"
	"voicedesk/pkg/platform/tx"
	"voicedesk/pkg/requestcontext"
)

const msgUnavailable = "I cannot reach the member records right now. Please try again in a moment."

// Store reads contracts and guarantees and records claims.
// Lookups by id return sentinel.ErrNotFound when absent.
type Store interface {
	ContractsFor(ctx context.Context, subjectID id.SubjectID) ([]Contract, error)
	ContractByID(ctx context.Context, contractID id.ContractID) (*Contract, error)
	GuaranteesFor(ctx context.Context, formulaID int64) ([]Guarantee, error)
	GuaranteeByLabel(ctx context.Context, formulaID int64, label string) (*Guarantee, error)
	ClaimsFor(ctx context.Context, subjectID id.SubjectID) ([]Claim, error)
	ClaimByID(ctx context.Context, claimID id.ClaimID) (*Claim, error)
	CreateClaim(ctx context.Context, claim Claim) (Claim, error)
}

// ContactUpdater writes contact fields to the directory.
type ContactUpdater interface {
	UpdateContact(ctx context.Context, subjectID id.SubjectID, update identity.ContactUpdate) (bool, error)
}

// Service answers the guarded operations for an already confirmed subject.
// Every method returns the sentence to say to the caller.
type Service struct {
	store    Store
	contacts ContactUpdater
	tx       tx.Runner
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTxRunner makes claim creation atomic with its ownership check.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func New(store Store, contacts ContactUpdater, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("policy store is required")
	}
	if contacts == nil {
		return nil, fmt.Errorf("contact updater is required")
	}
	svc := &Service{
		store:    store,
		contacts: contacts,
		tx:       tx.Direct{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) SubjectDetails(_ context.Context, subject identity.Subject) (string, error) {
	return fmt.Sprintf("Details for %s (member %s): email %s, phone %s, address %s, %s %s.",
		subject.FullName(), subject.ID, subject.Email, subject.Phone,
		subject.Address, subject.PostalCode, subject.City), nil
}

func (s *Service) UpdateContact(ctx context.Context, subject identity.Subject, update identity.ContactUpdate) (string, error) {
	if err := update.Validate(); err != nil {
		return "", err
	}
	ok, err := s.contacts.UpdateContact(ctx, subject.ID, update)
	if err != nil {
		return "", s.fault(ctx, "update contact", subject.ID, err)
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "No contact information was updated.")
	}
	s.logger.InfoContext(ctx, "contact information updated",
		"subject_id", subject.ID,
	)
	return "Your contact information has been updated.", nil
}

func (s *Service) ListContracts(ctx context.Context, subject identity.Subject) (string, error) {
	contracts, err := s.store.ContractsFor(ctx, subject.ID)
	if err != nil {
		return "", s.fault(ctx, "list contracts", subject.ID, err)
	}
	if len(contracts) == 0 {
		return "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("No contract found for %s.", subject.FullName()))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contracts of %s:", subject.FullName())
	for _, c := range contracts {
		fmt.Fprintf(&b, "\n- Contract %s (ID %s), status %s", c.Number, c.ID, c.Status)
	}
	return b.String(), nil
}

func (s *Service) ContractDetails(ctx context.Context, subject identity.Subject, contractID id.ContractID) (string, error) {
	contract, err := s.ownedContract(ctx, subject, contractID)
	if err != nil {
		return "", err
	}
	end := "ongoing"
	if contract.EndDate != nil {
		end = contract.EndDate.Format(identity.DateLayout)
	}
	return fmt.Sprintf("Contract %s: plan %s, %s per month, status %s, from %s to %s.",
		contract.Number, contract.FormulaName, FormatCents(contract.MonthlyRateCents), contract.Status,
		contract.StartDate.Format(identity.DateLayout), end), nil
}

func (s *Service) ListGuarantees(ctx context.Context, subject identity.Subject, contractID id.ContractID) (string, error) {
	contract, err := s.ownedContract(ctx, subject, contractID)
	if err != nil {
		return "", err
	}
	guarantees, err := s.store.GuaranteesFor(ctx, contract.FormulaID)
	if err != nil {
		return "", s.fault(ctx, "list guarantees", subject.ID, err)
	}
	if len(guarantees) == 0 {
		return "", dErrors.New(dErrors.CodeNotFound, "No guarantee was found for this plan.")
	}
	labels := make([]string, len(guarantees))
	for i, g := range guarantees {
		labels[i] = g.Label
	}
	return fmt.Sprintf("Guarantees of contract %s: %s.", contract.Number, strings.Join(labels, ", ")), nil
}

func (s *Service) CoverageDetails(ctx context.Context, subject identity.Subject, contractID id.ContractID, label string) (string, error) {
	g, err := s.guarantee(ctx, subject, contractID, label)
	if err != nil {
		return "", err
	}
	rate, ceiling := "not covered", "none"
	if g.RateBasisPoints != nil {
		rate = formatRate(*g.RateBasisPoints)
	}
	if g.CeilingCents != nil {
		ceiling = FormatCents(*g.CeilingCents)
	}
	msg := fmt.Sprintf("Coverage for %s: rate %s, ceiling %s, deductible %s.",
		g.Label, rate, ceiling, FormatCents(g.DeductibleCents))
	if g.Conditions != "" {
		msg += " Conditions: " + g.Conditions
	}
	return msg, nil
}

func (s *Service) SimulateReimbursement(ctx context.Context, subject identity.Subject, contractID id.ContractID, label string, expenseCents int64) (string, error) {
	if expenseCents <= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "The expense amount must be positive.")
	}
	if expenseCents > MaxExpenseCents {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("The expense amount cannot exceed %s.", FormatCents(MaxExpenseCents)))
	}
	g, err := s.guarantee(ctx, subject, contractID, label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("For an expense of %s under %s, the estimated reimbursement is %s.",
		FormatCents(expenseCents), g.Label, FormatCents(g.Reimbursement(expenseCents))), nil
}

func (s *Service) ListClaims(ctx context.Context, subject identity.Subject) (string, error) {
	claims, err := s.store.ClaimsFor(ctx, subject.ID)
	if err != nil {
		return "", s.fault(ctx, "list claims", subject.ID, err)
	}
	if len(claims) == 0 {
		return "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("No claim found for %s.", subject.FullName()))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Claims of %s:", subject.FullName())
	for _, c := range claims {
		fmt.Fprintf(&b, "\n- Claim %s, type %s, status %s", c.ID, c.Type, c.Status)
	}
	return b.String(), nil
}

// CreateClaim declares a claim on one of the subject's contracts. The
// ownership check and the insert share a transaction.
func (s *Service) CreateClaim(ctx context.Context, subject identity.Subject, req ClaimRequest) (string, error) {
	claimType := strings.TrimSpace(req.Type)
	if claimType == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "Please tell me the type of claim.")
	}
	incident, err := time.Parse(identity.DateLayout, strings.TrimSpace(req.IncidentDate))
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "The incident date must use the format YYYY-MM-DD, for example 2024-06-23.")
	}
	now := requestcontext.Now(ctx)
	if incident.After(now) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "The incident date cannot be in the future.")
	}

	var created Claim
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.ownedContract(ctx, subject, req.ContractID); err != nil {
			return err
		}
		claim, err := s.store.CreateClaim(ctx, Claim{
			ContractID:   req.ContractID,
			SubjectID:    subject.ID,
			Type:         claimType,
			Description:  strings.TrimSpace(req.Description),
			IncidentDate: incident,
			DeclaredAt:   now,
			Status:       ClaimStatusSubmitted,
		})
		if err != nil {
			return s.fault(ctx, "create claim", subject.ID, err)
		}
		created = claim
		return nil
	})
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return "", err
		}
		// commit failures surface here
		return "", s.fault(ctx, "create claim", subject.ID, err)
	}
	s.logger.InfoContext(ctx, "claim created",
		"subject_id", subject.ID,
		"contract_id", req.ContractID,
		"claim_id", created.ID,
	)
	return fmt.Sprintf("Your claim has been created. Claim number: %s.", created.ID), nil
}

func (s *Service) ClaimStatus(ctx context.Context, subject identity.Subject, claimID id.ClaimID) (string, error) {
	claim, err := s.store.ClaimByID(ctx, claimID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("No claim found with ID %s.", claimID))
	}
	if err != nil {
		return "", s.fault(ctx, "get claim", subject.ID, err)
	}
	if claim.SubjectID != subject.ID {
		s.logger.WarnContext(ctx, "claim ownership mismatch",
			"subject_id", subject.ID,
			"claim_id", claimID,
		)
		return "", dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("You are not allowed to view claim %s.", claimID))
	}
	return fmt.Sprintf("Claim %s (%s, incident on %s) is %s.",
		claim.ID, claim.Type, claim.IncidentDate.Format(identity.DateLayout), claim.Status), nil
}

// ownedContract loads a contract of the subject. Unknown and foreign contracts
// get the same refusal.
func (s *Service) ownedContract(ctx context.Context, subject identity.Subject, contractID id.ContractID) (*Contract, error) {
	contract, err := s.store.ContractByID(ctx, contractID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.fault(ctx, "get contract", subject.ID, err)
	}
	if contract == nil || !contract.OwnedBy(subject.ID) {
		s.logger.WarnContext(ctx, "contract ownership check failed",
			"subject_id", subject.ID,
			"contract_id", contractID,
		)
		return nil, dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("Contract %s is invalid or does not belong to you.", contractID))
	}
	return contract, nil
}

func (s *Service) guarantee(ctx context.Context, subject identity.Subject, contractID id.ContractID, label string) (*Guarantee, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "Please tell me which guarantee you are asking about.")
	}
	contract, err := s.ownedContract(ctx, subject, contractID)
	if err != nil {
		return nil, err
	}
	g, err := s.store.GuaranteeByLabel(ctx, contract.FormulaID, label)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("I could not find a guarantee named %q in your plan.", label))
	}
	if err != nil {
		return nil, s.fault(ctx, "get guarantee", subject.ID, err)
	}
	return g, nil
}

func (s *Service) fault(ctx context.Context, op string, subjectID id.SubjectID, err error) error {
	s.logger.ErrorContext(ctx, "policy store failed",
		"operation", op,
		"subject_id", subjectID,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msgUnavailable)
}
