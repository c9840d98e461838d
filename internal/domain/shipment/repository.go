package shipment

import (
	"context"

	"github.com/google/uuid"
)

// Filter defines the filter criteria for shipment queries
type Filter struct {
	Status       *Status
	Manufacturer *uuid.UUID
	Supplier     *uuid.UUID
	// Pagination
	Page     int
	PageSize int
}

// Repository defines the interface for shipment persistence
type Repository interface {
	// Create persists a new shipment
	Create(ctx context.Context, s *Shipment) error

	// FindByID returns ErrShipmentNotFound when the id is unknown
	FindByID(ctx context.Context, id uint64) (*Shipment, error)

	// Update saves the mutable fields of a shipment with optimistic locking.
	// Returns shared.ErrConcurrencyConflict if the stored version differs
	// and increments the version on success.
	Update(ctx context.Context, s *Shipment) error

	// List returns shipments matching the filter ordered by id, and the total count
	List(ctx context.Context, filter Filter) ([]*Shipment, int64, error)
}

// ActivePollSet tracks the ids of shipments currently IN_TRANSIT
type ActivePollSet interface {
	// Add inserts the id; adding a present id is a no-op
	Add(ctx context.Context, id uint64) error

	// Remove deletes the id; removing a missing id is a no-op
	Remove(ctx context.Context, id uint64) error

	// Contains reports membership
	Contains(ctx context.Context, id uint64) (bool, error)

	// List returns the members in ascending id order
	List(ctx context.Context) ([]uint64, error)
}

// VerificationRequestRepository stores outstanding verification requests
type VerificationRequestRepository interface {
	// Create records a new outstanding request
	Create(ctx context.Context, r *VerificationRequest) error

	// Take returns and deletes the request. Returns ErrRequestNotFound when
	// the id is unknown or was already consumed.
	Take(ctx context.Context, requestID string) (*VerificationRequest, error)

	// ExistsForShipment reports whether a request is outstanding for the shipment
	ExistsForShipment(ctx context.Context, shipmentID uint64) (bool, error)

	// DeleteByShipment drops every outstanding request of the shipment
	DeleteByShipment(ctx context.Context, shipmentID uint64) error
}
