package domain

import dErrors "voicedesk/pkg/domain-errors"

// LookupKind records which directory key produced a candidate. It decides the
// confirmation path: phone matches may be confirmed verbally, every other kind
// requires date of birth and postal code.
//
// Usage: construct via ParseLookupKind at trust boundaries; direct casting
// bypasses validation.
type LookupKind string

const (
	LookupByPhone          LookupKind = "phone"
	LookupByEmail          LookupKind = "email"
	LookupByFullName       LookupKind = "fullname"
	LookupByContractNumber LookupKind = "contract_number"
)

var validLookupKinds = map[LookupKind]bool{
	LookupByPhone:          true,
	LookupByEmail:          true,
	LookupByFullName:       true,
	LookupByContractNumber: true,
}

// ParseLookupKind constructs a LookupKind from external input.
func ParseLookupKind(s string) (LookupKind, error) {
	kind := LookupKind(s)
	if !kind.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid lookup kind: "+s)
	}
	return kind, nil
}

// IsValid reports whether the kind is one of the supported lookups.
func (k LookupKind) IsValid() bool {
	return validLookupKinds[k]
}

func (k LookupKind) String() string { return string(k) }
