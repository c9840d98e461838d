package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/escrow"
)

// EscrowModel is the persistence model for a payment escrow
type EscrowModel struct {
	AggregateModel
	ShipmentID   uint64          `gorm:"primaryKey;autoIncrement:false"`
	Manufacturer uuid.UUID       `gorm:"type:uuid;not null;index"`
	Supplier     uuid.UUID       `gorm:"type:uuid;not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(38,18);not null"`
	Funded       bool            `gorm:"not null"`
	Released     bool            `gorm:"not null;default:false"`
	Refunded     bool            `gorm:"not null;default:false"`
	SettledAt    *time.Time
}

// TableName returns the table name for GORM
func (EscrowModel) TableName() string {
	return "escrows"
}

// ToDomain converts the persistence model to a domain Escrow
func (m *EscrowModel) ToDomain() *escrow.Escrow {
	return &escrow.Escrow{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ShipmentID:        m.ShipmentID,
		Manufacturer:      m.Manufacturer,
		Supplier:          m.Supplier,
		Amount:            m.Amount,
		Funded:            m.Funded,
		Released:          m.Released,
		Refunded:          m.Refunded,
		SettledAt:         m.SettledAt,
	}
}

// EscrowModelFromDomain creates a persistence model from a domain Escrow
func EscrowModelFromDomain(e *escrow.Escrow) *EscrowModel {
	m := &EscrowModel{
		ShipmentID:   e.ShipmentID,
		Manufacturer: e.Manufacturer,
		Supplier:     e.Supplier,
		Amount:       e.Amount,
		Funded:       e.Funded,
		Released:     e.Released,
		Refunded:     e.Refunded,
		SettledAt:    e.SettledAt,
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	return m
}
