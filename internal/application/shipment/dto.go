package shipment

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// CreateShipmentInput holds the fields a supplier provides for a new shipment
type CreateShipmentInput struct {
	DestinationLat  int64
	DestinationLong int64
	RadiusMeters    int64
	Manufacturer    uuid.UUID
	MaterialID      uint64
	Quantity        int64
	ExpectedArrival time.Time
}

// ShipmentResponse is the read model of a shipment
type ShipmentResponse struct {
	ID              uint64     `json:"id"`
	Supplier        uuid.UUID  `json:"supplier"`
	Manufacturer    uuid.UUID  `json:"manufacturer"`
	DestinationLat  int64      `json:"destination_lat"`
	DestinationLong int64      `json:"destination_long"`
	RadiusMeters    int64      `json:"radius_meters"`
	MaterialID      uint64     `json:"material_id"`
	Quantity        int64      `json:"quantity"`
	Status          string     `json:"status"`
	ExpectedArrival time.Time  `json:"expected_arrival"`
	PollsPerformed  int        `json:"polls_performed"`
	LastPolledAt    *time.Time `json:"last_polled_at,omitempty"`
	ArrivedAt       *time.Time `json:"arrived_at,omitempty"`
	ArrivalMode     string     `json:"arrival_mode,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ToShipmentResponse converts a domain shipment to its read model
func ToShipmentResponse(s *shipment.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:              s.ID,
		Supplier:        s.Supplier,
		Manufacturer:    s.Manufacturer,
		DestinationLat:  s.Destination.Lat(),
		DestinationLong: s.Destination.Long(),
		RadiusMeters:    s.RadiusMeters,
		MaterialID:      s.MaterialID,
		Quantity:        s.Quantity,
		Status:          s.Status.String(),
		ExpectedArrival: s.ExpectedArrival,
		PollsPerformed:  s.PollsPerformed,
		LastPolledAt:    s.LastPolledAt,
		ArrivedAt:       s.ArrivedAt,
		ArrivalMode:     string(s.ArrivalMode),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// VerificationResult reports what a verification response did
type VerificationResult struct {
	RequestID  string                       `json:"request_id"`
	ShipmentID uint64                       `json:"shipment_id"`
	Outcome    shipment.VerificationOutcome `json:"outcome"`
}
