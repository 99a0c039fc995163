// Package policy serves the guarded member operations: contracts, plan
// guarantees, reimbursement simulation and claims.
//
// Amounts are integer cents and rates are basis points (1% = 100).
package policy

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"

	id "voicedesk/pkg/domain"
)

// ClaimStatusSubmitted is the status of a newly declared claim.
const ClaimStatusSubmitted = "Submitted"

// MaxExpenseCents bounds the expense accepted for a simulation (10 million EUR).
const MaxExpenseCents int64 = 1_000_000_000

type Contract struct {
	ID               id.ContractID `json:"id"`
	SubjectID        id.SubjectID  `json:"subject_id"`
	Number           string        `json:"number"`
	FormulaID        int64         `json:"formula_id"`
	FormulaName      string        `json:"formula_name"`
	MonthlyRateCents int64         `json:"monthly_rate_cents"`
	Status           string        `json:"status"`
	StartDate        time.Time     `json:"start_date"`
	EndDate          *time.Time    `json:"end_date,omitempty"`
}

// OwnedBy reports whether the contract's main holder is subjectID.
func (c Contract) OwnedBy(subjectID id.SubjectID) bool {
	return c.SubjectID == subjectID
}

// Guarantee is one coverage line of a formula. Nil ceiling means uncapped;
// nil rate means not reimbursed.
type Guarantee struct {
	Label           string `json:"label"`
	Description     string `json:"description"`
	CeilingCents    *int64 `json:"ceiling_cents,omitempty"`
	RateBasisPoints *int64 `json:"rate_basis_points,omitempty"`
	DeductibleCents int64  `json:"deductible_cents"`
	Conditions      string `json:"conditions,omitempty"`
}

// Reimbursement estimates the refund for an expense:
// (expense - deductible) * rate, floored at zero and capped by the ceiling.
// Products beyond int64 saturate instead of wrapping.
func (g Guarantee) Reimbursement(expenseCents int64) int64 {
	base := expenseCents - g.DeductibleCents
	if base <= 0 || g.RateBasisPoints == nil || *g.RateBasisPoints <= 0 {
		return 0
	}
	amount := int64(math.MaxInt64)
	hi, lo := bits.Mul64(uint64(base), uint64(*g.RateBasisPoints))
	if hi < 10_000 {
		if q, _ := bits.Div64(hi, lo, 10_000); q <= math.MaxInt64 {
			amount = int64(q)
		}
	}
	if g.CeilingCents != nil && amount > *g.CeilingCents {
		amount = *g.CeilingCents
	}
	return amount
}

type Claim struct {
	ID           id.ClaimID    `json:"id"`
	ContractID   id.ContractID `json:"contract_id"`
	SubjectID    id.SubjectID  `json:"subject_id"`
	Type         string        `json:"type"`
	Description  string        `json:"description"`
	IncidentDate time.Time     `json:"incident_date"`
	DeclaredAt   time.Time     `json:"declared_at"`
	Status       string        `json:"status"`
}

// ClaimRequest is the caller-provided part of a new claim.
type ClaimRequest struct {
	ContractID   id.ContractID `json:"contract_id"`
	Type         string        `json:"claim_type"`
	Description  string        `json:"description"`
	IncidentDate string        `json:"incident_date"`
}

// FormatCents renders an amount as "1234.50 EUR".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d EUR", sign, cents/100, cents%100)
}

// formatRate renders basis points as a percentage, dropping a zero fraction.
func formatRate(bp int64) string {
	if bp%100 == 0 {
		return fmt.Sprintf("%d%%", bp/100)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%02d", bp/100, bp%100), "0") + "%"
}
