package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/product"
)

// ProductModel is the persistence model for a finished product unit
type ProductModel struct {
	AggregateModel
	ID          uint64    `gorm:"primaryKey;autoIncrement:false"`
	ShipmentID  uint64    `gorm:"not null;index"`
	Owner       uuid.UUID `gorm:"type:uuid;not null;index"`
	MaterialIDs []uint64  `gorm:"type:text;not null;serializer:json"`
	Descriptor  string    `gorm:"type:text;not null"`
	AssembledAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *product.Product {
	return &product.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ID:                m.ID,
		ShipmentID:        m.ShipmentID,
		Owner:             m.Owner,
		MaterialIDs:       m.MaterialIDs,
		Descriptor:        m.Descriptor,
		AssembledAt:       m.AssembledAt,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *product.Product) *ProductModel {
	m := &ProductModel{
		ID:          p.ID,
		ShipmentID:  p.ShipmentID,
		Owner:       p.Owner,
		MaterialIDs: p.MaterialIDs,
		Descriptor:  p.Descriptor,
		AssembledAt: p.AssembledAt,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// ConsumptionModel records that a shipment was turned into products
type ConsumptionModel struct {
	ShipmentID uint64    `gorm:"primaryKey;autoIncrement:false"`
	ConsumedBy uuid.UUID `gorm:"type:uuid;not null"`
	Quantity   int64     `gorm:"not null"`
	ConsumedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConsumptionModel) TableName() string {
	return "shipment_consumptions"
}
