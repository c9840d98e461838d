package escrow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeEscrow = "Escrow"

// Event type constants
const (
	EventTypeEscrowFunded    = "EscrowFunded"
	EventTypePaymentReleased = "PaymentReleased"
	EventTypeEscrowRefunded  = "EscrowRefunded"
)

// EscrowFundedEvent is raised when a manufacturer locks funds for a shipment
type EscrowFundedEvent struct {
	shared.BaseDomainEvent
	ShipmentID   uint64          `json:"shipment_id"`
	Manufacturer uuid.UUID       `json:"manufacturer"`
	Supplier     uuid.UUID       `json:"supplier"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewEscrowFundedEvent creates a new EscrowFundedEvent
func NewEscrowFundedEvent(e *Escrow, now time.Time) *EscrowFundedEvent {
	return &EscrowFundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEscrowFunded, AggregateTypeEscrow, e.AggregateKey(), now),
		ShipmentID:      e.ShipmentID,
		Manufacturer:    e.Manufacturer,
		Supplier:        e.Supplier,
		Amount:          e.Amount,
	}
}

// EventType returns the event type name
func (e *EscrowFundedEvent) EventType() string {
	return EventTypeEscrowFunded
}

// PaymentReleasedEvent is raised when funds are paid to the supplier
type PaymentReleasedEvent struct {
	shared.BaseDomainEvent
	ShipmentID uint64          `json:"shipment_id"`
	Supplier   uuid.UUID       `json:"supplier"`
	Amount     decimal.Decimal `json:"amount"`
}

// NewPaymentReleasedEvent creates a new PaymentReleasedEvent
func NewPaymentReleasedEvent(e *Escrow, now time.Time) *PaymentReleasedEvent {
	return &PaymentReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentReleased, AggregateTypeEscrow, e.AggregateKey(), now),
		ShipmentID:      e.ShipmentID,
		Supplier:        e.Supplier,
		Amount:          e.Amount,
	}
}

// EventType returns the event type name
func (e *PaymentReleasedEvent) EventType() string {
	return EventTypePaymentReleased
}

// EscrowRefundedEvent is raised when funds are returned to the manufacturer
type EscrowRefundedEvent struct {
	shared.BaseDomainEvent
	ShipmentID   uint64          `json:"shipment_id"`
	Manufacturer uuid.UUID       `json:"manufacturer"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewEscrowRefundedEvent creates a new EscrowRefundedEvent
func NewEscrowRefundedEvent(e *Escrow, now time.Time) *EscrowRefundedEvent {
	return &EscrowRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEscrowRefunded, AggregateTypeEscrow, e.AggregateKey(), now),
		ShipmentID:      e.ShipmentID,
		Manufacturer:    e.Manufacturer,
		Amount:          e.Amount,
	}
}

// EventType returns the event type name
func (e *EscrowRefundedEvent) EventType() string {
	return EventTypeEscrowRefunded
}
