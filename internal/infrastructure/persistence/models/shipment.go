package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared/valueobject"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// ShipmentModel is the persistence model for the Shipment aggregate
type ShipmentModel struct {
	AggregateModel
	ID              uint64     `gorm:"primaryKey;autoIncrement:false"`
	Supplier        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Manufacturer    uuid.UUID  `gorm:"type:uuid;not null;index"`
	DestLat         int64      `gorm:"not null"`
	DestLong        int64      `gorm:"not null"`
	RadiusMeters    int64      `gorm:"not null"`
	MaterialID      uint64     `gorm:"not null"`
	Quantity        int64      `gorm:"not null"`
	Status          string     `gorm:"type:varchar(20);not null;index"`
	ExpectedArrival time.Time  `gorm:"not null"`
	PollsPerformed  int        `gorm:"not null;default:0"`
	LastPolledAt    *time.Time
	ArrivedAt       *time.Time
	ArrivalMode     string `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ToDomain converts the persistence model to a domain Shipment
func (m *ShipmentModel) ToDomain() (*shipment.Shipment, error) {
	dest, err := valueobject.NewCoordinates(m.DestLat, m.DestLong)
	if err != nil {
		return nil, fmt.Errorf("shipment %d: %w", m.ID, err)
	}
	return &shipment.Shipment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ID:                m.ID,
		Supplier:          m.Supplier,
		Manufacturer:      m.Manufacturer,
		Destination:       dest,
		RadiusMeters:      m.RadiusMeters,
		MaterialID:        m.MaterialID,
		Quantity:          m.Quantity,
		Status:            shipment.Status(m.Status),
		ExpectedArrival:   m.ExpectedArrival,
		PollsPerformed:    m.PollsPerformed,
		LastPolledAt:      m.LastPolledAt,
		ArrivedAt:         m.ArrivedAt,
		ArrivalMode:       shipment.ArrivalMode(m.ArrivalMode),
	}, nil
}

// ShipmentModelFromDomain creates a persistence model from a domain Shipment
func ShipmentModelFromDomain(s *shipment.Shipment) *ShipmentModel {
	m := &ShipmentModel{
		ID:              s.ID,
		Supplier:        s.Supplier,
		Manufacturer:    s.Manufacturer,
		DestLat:         s.Destination.Lat(),
		DestLong:        s.Destination.Long(),
		RadiusMeters:    s.RadiusMeters,
		MaterialID:      s.MaterialID,
		Quantity:        s.Quantity,
		Status:          string(s.Status),
		ExpectedArrival: s.ExpectedArrival,
		PollsPerformed:  s.PollsPerformed,
		LastPolledAt:    s.LastPolledAt,
		ArrivedAt:       s.ArrivedAt,
		ArrivalMode:     string(s.ArrivalMode),
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}

// PollSetEntryModel marks a shipment as eligible for arrival polling
type PollSetEntryModel struct {
	ShipmentID uint64    `gorm:"primaryKey;autoIncrement:false"`
	AddedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PollSetEntryModel) TableName() string {
	return "active_poll_set"
}

// VerificationRequestModel is an outstanding oracle request
type VerificationRequestModel struct {
	RequestID  string    `gorm:"type:varchar(128);primaryKey"`
	ShipmentID uint64    `gorm:"not null;index"`
	IssuedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VerificationRequestModel) TableName() string {
	return "verification_requests"
}

// ToDomain converts the persistence model to a domain VerificationRequest
func (m *VerificationRequestModel) ToDomain() *shipment.VerificationRequest {
	return &shipment.VerificationRequest{
		RequestID:  m.RequestID,
		ShipmentID: m.ShipmentID,
		IssuedAt:   m.IssuedAt,
	}
}
