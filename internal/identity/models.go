// Package identity models directory subjects (insurance members) and the
// stores that find them by phone, email or full name.
package identity

import (
	"strings"
	"time"
	"unicode"

	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
)

// DateLayout is the canonical date format for directory dates.
const DateLayout = "2006-01-02"

// Subject is a directory member. ID is immutable; contact fields change only
// through a ContactUpdate.
type Subject struct {
	ID          id.SubjectID `json:"id"`
	Surname     string       `json:"surname"`
	GivenName   string       `json:"given_name"`
	DateOfBirth *time.Time   `json:"date_of_birth,omitempty"`
	PostalCode  string       `json:"postal_code"`
	City        string       `json:"city"`
	Address     string       `json:"address"`
	Phone       string       `json:"phone"`
	Email       string       `json:"email"`
	MemberSince *time.Time   `json:"member_since,omitempty"`
}

// FullName renders "Given Surname" as used in caller-facing messages.
func (s Subject) FullName() string {
	return strings.TrimSpace(s.GivenName + " " + s.Surname)
}

// ContactUpdate carries the contact fields to change. Nil fields are left as is.
type ContactUpdate struct {
	Address    *string `json:"address,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
	City       *string `json:"city,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u ContactUpdate) IsEmpty() bool {
	return u.Address == nil && u.PostalCode == nil && u.City == nil && u.Phone == nil && u.Email == nil
}

// Validate trims set fields in place and rejects blank or malformed values.
func (u *ContactUpdate) Validate() error {
	if u.IsEmpty() {
		return dErrors.New(dErrors.CodeInvalidInput, "No information provided for the update.")
	}
	for _, f := range []**string{&u.Address, &u.PostalCode, &u.City, &u.Phone, &u.Email} {
		if *f == nil {
			continue
		}
		trimmed := strings.TrimSpace(**f)
		if trimmed == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "Contact fields cannot be blank.")
		}
		*f = &trimmed
	}
	if u.Email != nil && !strings.Contains(*u.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "The email address looks invalid.")
	}
	if u.Phone != nil && len(Digits(*u.Phone)) < 6 {
		return dErrors.New(dErrors.CodeInvalidInput, "The phone number looks invalid.")
	}
	return nil
}

// Apply writes the set fields onto s.
func (u ContactUpdate) Apply(s *Subject) {
	if u.Address != nil {
		s.Address = *u.Address
	}
	if u.PostalCode != nil {
		s.PostalCode = *u.PostalCode
	}
	if u.City != nil {
		s.City = *u.City
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneSuffix returns the last n digits of a phone number, so that "+33 6 12…"
// and "06 12…" compare equal. Shorter numbers are returned whole.
func PhoneSuffix(phone string, n int) string {
	d := Digits(phone)
	if n > 0 && len(d) > n {
		return d[len(d)-n:]
	}
	return d
}
