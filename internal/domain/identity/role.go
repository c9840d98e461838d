package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared"
)

// Role is a named permission held by an account
type Role string

const (
	RoleSupplier     Role = "SUPPLIER"
	RoleManufacturer Role = "MANUFACTURER"
	RoleAdmin        Role = "ADMIN"
)

// AllRoles lists every role known to the system
func AllRoles() []Role {
	return []Role{RoleSupplier, RoleManufacturer, RoleAdmin}
}

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleSupplier, RoleManufacturer, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", shared.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown role: %s", s))
	}
	return r, nil
}

// AccessGate answers role membership questions
type AccessGate interface {
	HasRole(ctx context.Context, role Role, account uuid.UUID) (bool, error)
}

// RoleGrant records that an account holds a role
type RoleGrant struct {
	Role      Role
	Account   uuid.UUID
	GrantedBy uuid.UUID
	GrantedAt time.Time
}

// RoleGrantRepository persists role grants
type RoleGrantRepository interface {
	AccessGate

	// Grant adds the role to the account. Granting an existing role is a no-op.
	Grant(ctx context.Context, grant RoleGrant) error

	// Revoke removes the role from the account. Revoking a missing role is a no-op.
	Revoke(ctx context.Context, role Role, account uuid.UUID) error

	// ListByAccount returns every role grant held by the account
	ListByAccount(ctx context.Context, account uuid.UUID) ([]RoleGrant, error)
}

// Identity errors
var (
	ErrMissingRole    = shared.NewAuthorizationError("MISSING_ROLE", "Caller does not hold the required role")
	ErrInvalidAccount = shared.NewInvalidInputError("INVALID_ACCOUNT", "Account is required")
)

// RequireRole returns ErrMissingRole unless account holds role
func RequireRole(ctx context.Context, gate AccessGate, role Role, account uuid.UUID) error {
	ok, err := gate.HasRole(ctx, role, account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissingRole.WithMessage(fmt.Sprintf("account %s is not %s", account, role))
	}
	return nil
}
