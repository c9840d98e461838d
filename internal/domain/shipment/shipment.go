package shipment

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shared/valueobject"
)

// Geofence and polling limits
const (
	MinRadiusMeters = 50
	MaxRadiusMeters = 10000

	MinArrivalLead = time.Hour
	MaxArrivalLead = 90 * 24 * time.Hour

	MaxPolls          = 5
	PollCooldown      = 15 * time.Minute
	ForceArrivalGrace = 24 * time.Hour
)

// SequenceName is the id sequence used for shipments
const SequenceName = "shipment"

// Status represents the lifecycle status of a shipment
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusArrived   Status = "ARRIVED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusInTransit, StatusArrived:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can advance to target.
// Status only moves forward one step at a time.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusCreated:
		return target == StatusInTransit
	case StatusInTransit:
		return target == StatusArrived
	default:
		return false
	}
}

// ArrivalMode records how arrival was established
type ArrivalMode string

const (
	ArrivalModeOracle               ArrivalMode = "ORACLE"
	ArrivalModeAdminOverride        ArrivalMode = "ADMIN_OVERRIDE"
	ArrivalModeManufacturerOverride ArrivalMode = "MANUFACTURER_OVERRIDE"
)

// Shipment is a batch of raw material held in custody while travelling
// from supplier to manufacturer
type Shipment struct {
	shared.BaseAggregateRoot
	ID              uint64
	Supplier        uuid.UUID
	Manufacturer    uuid.UUID
	Destination     valueobject.Coordinates
	RadiusMeters    int64
	MaterialID      uint64
	Quantity        int64
	Status          Status
	ExpectedArrival time.Time
	PollsPerformed  int
	LastPolledAt    *time.Time
	ArrivedAt       *time.Time
	ArrivalMode     ArrivalMode
}

// NewShipmentParams holds the caller supplied fields of a new shipment
type NewShipmentParams struct {
	Supplier        uuid.UUID
	Manufacturer    uuid.UUID
	Destination     valueobject.Coordinates
	RadiusMeters    int64
	MaterialID      uint64
	Quantity        int64
	ExpectedArrival time.Time
}

// ValidateNewShipment checks creation bounds relative to now
func ValidateNewShipment(p NewShipmentParams, now time.Time) error {
	if p.RadiusMeters < MinRadiusMeters || p.RadiusMeters > MaxRadiusMeters {
		return ErrInvalidRadius
	}
	if p.ExpectedArrival.Before(now.Add(MinArrivalLead)) || p.ExpectedArrival.After(now.Add(MaxArrivalLead)) {
		return ErrInvalidETA
	}
	if p.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Manufacturer == uuid.Nil {
		return ErrInvalidParty
	}
	return nil
}

// NewShipment creates a shipment in CREATED status.
// The caller is responsible for locking the quantity into custody.
func NewShipment(id uint64, p NewShipmentParams, now time.Time) (*Shipment, error) {
	if err := ValidateNewShipment(p, now); err != nil {
		return nil, err
	}

	s := &Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ID:                id,
		Supplier:          p.Supplier,
		Manufacturer:      p.Manufacturer,
		Destination:       p.Destination,
		RadiusMeters:      p.RadiusMeters,
		MaterialID:        p.MaterialID,
		Quantity:          p.Quantity,
		Status:            StatusCreated,
		ExpectedArrival:   p.ExpectedArrival,
	}
	s.AddDomainEvent(NewShipmentCreatedEvent(s, now))
	return s, nil
}

// AggregateKey returns the shipment id as used in events
func (s *Shipment) AggregateKey() string {
	return strconv.FormatUint(s.ID, 10)
}

// StartDelivery moves the shipment into transit
func (s *Shipment) StartDelivery(now time.Time) error {
	if s.Status != StatusCreated {
		return ErrShipmentNotCreated.WithMessage(fmt.Sprintf("shipment %d is %s, expected CREATED", s.ID, s.Status))
	}
	s.Status = StatusInTransit
	s.Touch(now)
	s.AddDomainEvent(NewShipmentInTransitEvent(s, now))
	return nil
}

// IsPollable reports whether the shipment may be polled for arrival at now
func (s *Shipment) IsPollable(now time.Time) bool {
	if s.Status != StatusInTransit {
		return false
	}
	if now.Before(s.ExpectedArrival) {
		return false
	}
	if s.PollsPerformed >= MaxPolls {
		return false
	}
	if s.LastPolledAt != nil && now.Before(s.LastPolledAt.Add(PollCooldown)) {
		return false
	}
	return true
}

// RecordPoll counts a verification request issued at now
func (s *Shipment) RecordPoll(now time.Time) error {
	if s.Status != StatusInTransit {
		return ErrShipmentNotInTransit.WithMessage(fmt.Sprintf("shipment %d is %s, expected IN_TRANSIT", s.ID, s.Status))
	}
	s.PollsPerformed++
	polledAt := now
	s.LastPolledAt = &polledAt
	s.Touch(now)
	return nil
}

// RevertPoll undoes the most recent RecordPoll, restoring the previous poll
// stamp. Used when the request of that poll never reached the gateway.
func (s *Shipment) RevertPoll(previous *time.Time, now time.Time) error {
	if s.Status != StatusInTransit {
		return ErrShipmentNotInTransit.WithMessage(fmt.Sprintf("shipment %d is %s, expected IN_TRANSIT", s.ID, s.Status))
	}
	if s.PollsPerformed > 0 {
		s.PollsPerformed--
	}
	s.LastPolledAt = previous
	s.Touch(now)
	return nil
}

// CanManufacturerForceArrive checks the manufacturer override window
func (s *Shipment) CanManufacturerForceArrive(now time.Time) bool {
	return !now.Before(s.ExpectedArrival.Add(ForceArrivalGrace))
}

// MarkArrived moves the shipment to its terminal ARRIVED status.
// Re-running on an arrived shipment fails.
func (s *Shipment) MarkArrived(mode ArrivalMode, now time.Time) error {
	if !s.Status.CanTransitionTo(StatusArrived) {
		return ErrShipmentNotInTransit.WithMessage(fmt.Sprintf("shipment %d is %s, expected IN_TRANSIT", s.ID, s.Status))
	}
	s.Status = StatusArrived
	arrivedAt := now
	s.ArrivedAt = &arrivedAt
	s.ArrivalMode = mode
	s.Touch(now)
	s.AddDomainEvent(NewShipmentArrivedEvent(s, now))
	return nil
}

// WithinGeofence reports whether the point is inside the destination radius
// together with the squared distance used for the decision
func (s *Shipment) WithinGeofence(loc Location) (bool, string) {
	d := s.Destination.DistanceSquared(loc.Lat, loc.Long)
	r := s.RadiusMeters * s.RadiusMeters
	return d.Cmp(bigFromInt64(r)) <= 0, d.String()
}
