package escrow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// Escrow errors
var (
	ErrInvalidAmount            = shared.NewValidationError("INVALID_AMOUNT", "Escrow amount must be positive")
	ErrInvalidSupplier          = shared.NewInvalidInputError("INVALID_SUPPLIER", "Supplier account is required")
	ErrEscrowAlreadyFunded      = shared.NewDomainError("ESCROW_ALREADY_FUNDED", "Escrow for this shipment is already funded")
	ErrEscrowNotFunded          = shared.NewDomainError("ESCROW_NOT_FUNDED", "Escrow is not funded")
	ErrEscrowAlreadySettled     = shared.NewDomainError("ESCROW_ALREADY_SETTLED", "Escrow has already been released or refunded")
	ErrShipmentAlreadyArrived   = shared.NewDomainError("SHIPMENT_ALREADY_ARRIVED", "Shipment has arrived, refund is not possible")
	ErrEscrowNotFound           = shared.NewNotFoundError("ESCROW_NOT_FOUND", "Escrow not found")
	ErrUnauthorizedManufacturer = shipment.ErrUnauthorizedManufacturer
)

// Disposition is the settlement state of an escrow
type Disposition string

const (
	DispositionFunded   Disposition = "FUNDED"
	DispositionReleased Disposition = "RELEASED"
	DispositionRefunded Disposition = "REFUNDED"
)

// Escrow locks manufacturer funds until the shipment outcome is known
type Escrow struct {
	shared.BaseAggregateRoot
	ShipmentID   uint64
	Manufacturer uuid.UUID
	Supplier     uuid.UUID
	Amount       decimal.Decimal
	Funded       bool
	Released     bool
	Refunded     bool
	SettledAt    *time.Time
}

// NewEscrow creates a funded escrow record.
// The caller is responsible for moving the funds into custody.
func NewEscrow(shipmentID uint64, manufacturer, supplier uuid.UUID, amount decimal.Decimal, now time.Time) (*Escrow, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if supplier == uuid.Nil {
		return nil, ErrInvalidSupplier
	}

	e := &Escrow{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ShipmentID:        shipmentID,
		Manufacturer:      manufacturer,
		Supplier:          supplier,
		Amount:            amount,
		Funded:            true,
	}
	e.AddDomainEvent(NewEscrowFundedEvent(e, now))
	return e, nil
}

// AggregateKey returns the shipment id keying the escrow
func (e *Escrow) AggregateKey() string {
	return strconv.FormatUint(e.ShipmentID, 10)
}

// Disposition returns the settlement state
func (e *Escrow) Disposition() Disposition {
	switch {
	case e.Released:
		return DispositionReleased
	case e.Refunded:
		return DispositionRefunded
	default:
		return DispositionFunded
	}
}

func (e *Escrow) checkSettleable(caller uuid.UUID) error {
	if caller != e.Manufacturer {
		return ErrUnauthorizedManufacturer.WithMessage(fmt.Sprintf("account %s did not fund escrow %d", caller, e.ShipmentID))
	}
	if !e.Funded {
		return ErrEscrowNotFunded
	}
	if e.Released || e.Refunded {
		return ErrEscrowAlreadySettled.WithMessage(fmt.Sprintf("escrow %d is %s", e.ShipmentID, e.Disposition()))
	}
	return nil
}

// Release marks the escrow released to the supplier.
// status is the live shipment status observed by the caller.
func (e *Escrow) Release(caller uuid.UUID, status shipment.Status, now time.Time) error {
	if err := e.checkSettleable(caller); err != nil {
		return err
	}
	if status != shipment.StatusArrived {
		return shipment.ErrShipmentNotArrived.WithMessage(fmt.Sprintf("shipment %d is %s", e.ShipmentID, status))
	}
	e.Released = true
	e.settle(now)
	e.AddDomainEvent(NewPaymentReleasedEvent(e, now))
	return nil
}

// Refund marks the escrow refunded to the manufacturer
func (e *Escrow) Refund(caller uuid.UUID, status shipment.Status, now time.Time) error {
	if err := e.checkSettleable(caller); err != nil {
		return err
	}
	if status == shipment.StatusArrived {
		return ErrShipmentAlreadyArrived
	}
	e.Refunded = true
	e.settle(now)
	e.AddDomainEvent(NewEscrowRefundedEvent(e, now))
	return nil
}

func (e *Escrow) settle(now time.Time) {
	settledAt := now
	e.SettledAt = &settledAt
	e.Touch(now)
}

// ShipmentStatusReader is the read-only view of the shipment registry
type ShipmentStatusReader interface {
	GetShipmentStatus(ctx context.Context, shipmentID uint64) (shipment.Status, error)
}

// Repository defines the interface for escrow persistence
type Repository interface {
	// Create persists a new escrow. Returns ErrEscrowAlreadyFunded if one exists.
	Create(ctx context.Context, e *Escrow) error

	// FindByShipment returns ErrEscrowNotFound when no escrow exists
	FindByShipment(ctx context.Context, shipmentID uint64) (*Escrow, error)

	// Update saves the disposition flags with optimistic locking
	Update(ctx context.Context, e *Escrow) error
}
