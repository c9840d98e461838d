package event

import (
	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// RegisterAllEvents registers every domain event so the outbox processor can decode payloads
func RegisterAllEvents(serializer *EventSerializer) {
	// Shipment lifecycle
	serializer.Register(shipment.EventTypeShipmentCreated, &shipment.ShipmentCreatedEvent{})
	serializer.Register(shipment.EventTypeShipmentInTransit, &shipment.ShipmentInTransitEvent{})
	serializer.Register(shipment.EventTypeVerificationRequested, &shipment.VerificationRequestedEvent{})
	serializer.Register(shipment.EventTypeVerificationFailed, &shipment.VerificationFailedEvent{})
	serializer.Register(shipment.EventTypeLocationMismatch, &shipment.LocationMismatchEvent{})
	serializer.Register(shipment.EventTypeShipmentArrived, &shipment.ShipmentArrivedEvent{})

	serializer.Register(product.EventTypeProductAssembled, &product.ProductAssembledEvent{})

	// Escrow
	serializer.Register(escrow.EventTypeEscrowFunded, &escrow.EscrowFundedEvent{})
	serializer.Register(escrow.EventTypePaymentReleased, &escrow.PaymentReleasedEvent{})
	serializer.Register(escrow.EventTypeEscrowRefunded, &escrow.EscrowRefundedEvent{})
}

// NewRegisteredSerializer returns a serializer with all domain events registered
func NewRegisteredSerializer() *EventSerializer {
	s := NewEventSerializer()
	RegisterAllEvents(s)
	return s
}
