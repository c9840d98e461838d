package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/identity"
)

// RoleGrantModel records that an account holds a role
type RoleGrantModel struct {
	Role      string    `gorm:"type:varchar(20);primaryKey"`
	Account   uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	GrantedBy uuid.UUID `gorm:"type:uuid"`
	GrantedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RoleGrantModel) TableName() string {
	return "role_grants"
}

// ToDomain converts the persistence model to a domain RoleGrant
func (m *RoleGrantModel) ToDomain() identity.RoleGrant {
	return identity.RoleGrant{
		Role:      identity.Role(m.Role),
		Account:   m.Account,
		GrantedBy: m.GrantedBy,
		GrantedAt: m.GrantedAt,
	}
}

// RoleGrantModelFromDomain creates a persistence model from a domain RoleGrant
func RoleGrantModelFromDomain(g identity.RoleGrant) *RoleGrantModel {
	return &RoleGrantModel{
		Role:      string(g.Role),
		Account:   g.Account,
		GrantedBy: g.GrantedBy,
		GrantedAt: g.GrantedAt,
	}
}
