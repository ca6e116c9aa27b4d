// Package domain holds typed identifiers shared across features.
//
// IDs are distinct UUID types so the compiler rejects cross-type
// assignment (passing a TenantID where a VerificationID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "idswyft/pkg/domain-errors"
)

// TenantID identifies a developer tenant (API account).
type TenantID uuid.UUID

// VerificationID identifies a single verification attempt.
type VerificationID uuid.UUID

func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id VerificationID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id VerificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID form in JSON and logs.

func (id TenantID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id VerificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *VerificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseVerificationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewVerificationID allocates a fresh verification attempt identifier.
func NewVerificationID() VerificationID {
	return VerificationID(uuid.New())
}

// ParseTenantID validates and parses a tenant ID at a trust boundary.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant_id")
	if err != nil {
		return TenantID{}, err
	}
	return TenantID(u), nil
}

// ParseVerificationID validates and parses a verification ID at a trust boundary.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s, "verification_id")
	if err != nil {
		return VerificationID{}, err
	}
	return VerificationID(u), nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", field)
	}
	return u, nil
}
