package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/identity"
)

// RoleInput names a role and the account it applies to
type RoleInput struct {
	Role    string
	Account uuid.UUID
}

// RoleGrantDTO represents a role grant
type RoleGrantDTO struct {
	Role      string    `json:"role"`
	Account   uuid.UUID `json:"account"`
	GrantedBy uuid.UUID `json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`
}

func toRoleGrantDTO(g identity.RoleGrant) RoleGrantDTO {
	return RoleGrantDTO{
		Role:      g.Role.String(),
		Account:   g.Account,
		GrantedBy: g.GrantedBy,
		GrantedAt: g.GrantedAt,
	}
}
