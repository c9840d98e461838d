package models

import (
	"time"

	"github.com/supplytrace/backend/internal/domain/shared"
)

// AggregateModel holds the optimistic-lock version and timestamps of an aggregate root
type AggregateModel struct {
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainAggregateRoot populates AggregateModel from a domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.Version = a.Version
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// ToDomainAggregateRoot rebuilds the domain BaseAggregateRoot
func (m *AggregateModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		Timestamps: shared.Timestamps{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

// All returns every model, in dependency order, for AutoMigrate
func All() []interface{} {
	return []interface{}{
		&ShipmentModel{},
		&PollSetEntryModel{},
		&VerificationRequestModel{},
		&ProductModel{},
		&ConsumptionModel{},
		&EscrowModel{},
		&MaterialBalanceModel{},
		&PaymentBalanceModel{},
		&UniqueAssetModel{},
		&SequenceModel{},
		&RoleGrantModel{},
		&OutboxEntryModel{},
	}
}
