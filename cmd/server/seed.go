package main

import (
	"time"

	"voicedesk/internal/identity"
	identitystore "voicedesk/internal/identity/store"
	"voicedesk/internal/policy"
	policystore "voicedesk/internal/policy/store"
)

func date(s string) time.Time {
	t, err := time.Parse(identity.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func cents(n int64) *int64 { return &n }

// seedDemo loads a small directory so the in-memory mode can be driven end
// to end by a local runtime.
func seedDemo(directory *identitystore.InMemoryStore, policies *policystore.InMemoryStore) {
	directory.Seed(
		identity.Subject{
			ID: 1, Surname: "Dupont", GivenName: "Jean",
			DateOfBirth: datePtr("1978-11-23"), PostalCode: "69003", City: "Lyon",
			Address: "12 rue Garibaldi", Phone: "+33612345678", Email: "jean.dupont@example.com",
			MemberSince: datePtr("2015-04-01"),
		},
		identity.Subject{
			ID: 2, Surname: "Martin", GivenName: "Marie",
			DateOfBirth: datePtr("1985-03-02"), PostalCode: "75010", City: "Paris",
			Address: "4 rue de Paradis", Phone: "+33698765432", Email: "marie.martin@example.com",
			MemberSince: datePtr("2019-09-15"),
		},
	)
	policies.SeedContracts(
		policy.Contract{
			ID: 10, SubjectID: 1, Number: "CTR-2015-0010", FormulaID: 1, FormulaName: "Essential",
			MonthlyRateCents: 4590, Status: "Active", StartDate: date("2015-04-01"),
		},
		policy.Contract{
			ID: 20, SubjectID: 2, Number: "CTR-2019-0020", FormulaID: 2, FormulaName: "Comfort",
			MonthlyRateCents: 7250, Status: "Active", StartDate: date("2019-09-15"),
		},
	)
	directory.LinkContract("CTR-2015-0010", 1)
	directory.LinkContract("CTR-2019-0020", 2)
	policies.SeedGuarantees(1,
		policy.Guarantee{Label: "Dental care", Description: "Routine dental care", RateBasisPoints: cents(7000), CeilingCents: cents(50000), DeductibleCents: 1000},
		policy.Guarantee{Label: "Optical", Description: "Glasses and lenses", RateBasisPoints: cents(6000), CeilingCents: cents(20000)},
	)
	policies.SeedGuarantees(2,
		policy.Guarantee{Label: "Dental care", Description: "Dental care including prosthetics", RateBasisPoints: cents(9000), CeilingCents: cents(120000)},
		policy.Guarantee{Label: "Hospital stay", Description: "Room and board", RateBasisPoints: cents(10000), Conditions: "Prior approval over 5 nights"},
	)
	policies.SeedClaims(policy.Claim{
		ID: 100, ContractID: 20, SubjectID: 2, Type: "Optical", Description: "New glasses",
		IncidentDate: date("2025-02-10"), DeclaredAt: date("2025-02-12"), Status: "In review",
	})
}
