package domain

import (
	"strconv"
	"strings"

	dErrors "voicedesk/pkg/domain-errors"

	"github.com/google/uuid"
)

// CallID identifies one call from start to evaluation. Journal entries, the
// call summary and the in-flight session are all keyed by it.
type CallID uuid.UUID

// NewCallID returns a fresh random call identifier.
func NewCallID() CallID {
	return CallID(uuid.New())
}

// ParseCallID parses a call id at a trust boundary. Nil UUIDs are rejected.
func ParseCallID(s string) (CallID, error) {
	parsed, err := parseUUID(s, "call_id")
	if err != nil {
		return CallID{}, err
	}
	return CallID(parsed), nil
}

func (c CallID) String() string { return uuid.UUID(c).String() }

// IsNil reports whether the id is the zero value.
func (c CallID) IsNil() bool { return uuid.UUID(c) == uuid.Nil }

// MarshalText lets CallID be used directly in JSON payloads and map keys.
func (c CallID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CallID) UnmarshalText(b []byte) error {
	parsed, err := ParseCallID(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// SubjectID is the directory's immutable key for a member.
type SubjectID int64

// ContractID identifies an insurance contract.
type ContractID int64

// ClaimID identifies a declared claim.
type ClaimID int64

func (s SubjectID) String() string  { return strconv.FormatInt(int64(s), 10) }
func (c ContractID) String() string { return strconv.FormatInt(int64(c), 10) }
func (c ClaimID) String() string    { return strconv.FormatInt(int64(c), 10) }

// ParseSubjectID parses a positive subject id.
func ParseSubjectID(s string) (SubjectID, error) {
	n, err := parsePositive(s, "subject_id")
	return SubjectID(n), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return parsed, nil
}

func parsePositive(s, field string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, field+" must be positive")
	}
	return n, nil
}
