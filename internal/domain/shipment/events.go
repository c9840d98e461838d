package shipment

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeShipment = "Shipment"

// Event type constants
const (
	EventTypeShipmentCreated       = "ShipmentCreated"
	EventTypeShipmentInTransit     = "ShipmentInTransit"
	EventTypeVerificationRequested = "VerificationRequested"
	EventTypeVerificationFailed    = "VerificationFailed"
	EventTypeLocationMismatch      = "LocationMismatch"
	EventTypeShipmentArrived       = "ShipmentArrived"
)

// ShipmentCreatedEvent is raised when a supplier locks a batch into custody
type ShipmentCreatedEvent struct {
	shared.BaseDomainEvent
	ShipmentID      uint64    `json:"shipment_id"`
	Supplier        uuid.UUID `json:"supplier"`
	Manufacturer    uuid.UUID `json:"manufacturer"`
	MaterialID      uint64    `json:"material_id"`
	Quantity        int64     `json:"quantity"`
	ExpectedArrival time.Time `json:"expected_arrival"`
}

// NewShipmentCreatedEvent creates a new ShipmentCreatedEvent
func NewShipmentCreatedEvent(s *Shipment, now time.Time) *ShipmentCreatedEvent {
	return &ShipmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentCreated, AggregateTypeShipment, s.AggregateKey(), now),
		ShipmentID:      s.ID,
		Supplier:        s.Supplier,
		Manufacturer:    s.Manufacturer,
		MaterialID:      s.MaterialID,
		Quantity:        s.Quantity,
		ExpectedArrival: s.ExpectedArrival,
	}
}

// EventType returns the event type name
func (e *ShipmentCreatedEvent) EventType() string {
	return EventTypeShipmentCreated
}

// ShipmentInTransitEvent is raised when delivery starts
type ShipmentInTransitEvent struct {
	shared.BaseDomainEvent
	ShipmentID uint64 `json:"shipment_id"`
}

// NewShipmentInTransitEvent creates a new ShipmentInTransitEvent
func NewShipmentInTransitEvent(s *Shipment, now time.Time) *ShipmentInTransitEvent {
	return &ShipmentInTransitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentInTransit, AggregateTypeShipment, s.AggregateKey(), now),
		ShipmentID:      s.ID,
	}
}

// EventType returns the event type name
func (e *ShipmentInTransitEvent) EventType() string {
	return EventTypeShipmentInTransit
}

// VerificationRequestedEvent is raised when a location query is dispatched
type VerificationRequestedEvent struct {
	shared.BaseDomainEvent
	ShipmentID uint64 `json:"shipment_id"`
	RequestID  string `json:"request_id"`
	PollNumber int    `json:"poll_number"`
}

// NewVerificationRequestedEvent creates a new VerificationRequestedEvent
func NewVerificationRequestedEvent(s *Shipment, requestID string, now time.Time) *VerificationRequestedEvent {
	return &VerificationRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVerificationRequested, AggregateTypeShipment, s.AggregateKey(), now),
		ShipmentID:      s.ID,
		RequestID:       requestID,
		PollNumber:      s.PollsPerformed,
	}
}

// EventType returns the event type name
func (e *VerificationRequestedEvent) EventType() string {
	return EventTypeVerificationRequested
}

// VerificationFailedEvent is raised when the verification service reports an
// error or returns a payload that cannot be decoded
type VerificationFailedEvent struct {
	shared.BaseDomainEvent
	ShipmentID uint64              `json:"shipment_id"`
	RequestID  string              `json:"request_id"`
	Outcome    VerificationOutcome `json:"outcome"`
	Detail     string              `json:"detail"`
}

// NewVerificationFailedEvent creates a new VerificationFailedEvent
func NewVerificationFailedEvent(shipmentID uint64, requestID string, outcome VerificationOutcome, detail string, now time.Time) *VerificationFailedEvent {
	return &VerificationFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVerificationFailed, AggregateTypeShipment, strconv.FormatUint(shipmentID, 10), now),
		ShipmentID:      shipmentID,
		RequestID:       requestID,
		Outcome:         outcome,
		Detail:          detail,
	}
}

// EventType returns the event type name
func (e *VerificationFailedEvent) EventType() string {
	return EventTypeVerificationFailed
}

// LocationMismatchEvent is raised when the reported position is outside the geofence
type LocationMismatchEvent struct {
	shared.BaseDomainEvent
	ShipmentID      uint64 `json:"shipment_id"`
	RequestID       string `json:"request_id"`
	ReportedLat     string `json:"reported_lat"`
	ReportedLong    string `json:"reported_long"`
	DistanceSquared string `json:"distance_squared"`
}

// NewLocationMismatchEvent creates a new LocationMismatchEvent
func NewLocationMismatchEvent(s *Shipment, requestID string, loc Location, distanceSquared string, now time.Time) *LocationMismatchEvent {
	return &LocationMismatchEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLocationMismatch, AggregateTypeShipment, s.AggregateKey(), now),
		ShipmentID:      s.ID,
		RequestID:       requestID,
		ReportedLat:     loc.Lat.String(),
		ReportedLong:    loc.Long.String(),
		DistanceSquared: distanceSquared,
	}
}

// EventType returns the event type name
func (e *LocationMismatchEvent) EventType() string {
	return EventTypeLocationMismatch
}

// ShipmentArrivedEvent is raised when custody is released to the manufacturer
type ShipmentArrivedEvent struct {
	shared.BaseDomainEvent
	ShipmentID   uint64      `json:"shipment_id"`
	Manufacturer uuid.UUID   `json:"manufacturer"`
	MaterialID   uint64      `json:"material_id"`
	Quantity     int64       `json:"quantity"`
	Mode         ArrivalMode `json:"mode"`
}

// NewShipmentArrivedEvent creates a new ShipmentArrivedEvent
func NewShipmentArrivedEvent(s *Shipment, now time.Time) *ShipmentArrivedEvent {
	return &ShipmentArrivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentArrived, AggregateTypeShipment, s.AggregateKey(), now),
		ShipmentID:      s.ID,
		Manufacturer:    s.Manufacturer,
		MaterialID:      s.MaterialID,
		Quantity:        s.Quantity,
		Mode:            s.ArrivalMode,
	}
}

// EventType returns the event type name
func (e *ShipmentArrivedEvent) EventType() string {
	return EventTypeShipmentArrived
}
