package escrow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/escrow"
)

// CreateEscrowInput holds the fields a manufacturer provides when funding an escrow
type CreateEscrowInput struct {
	ShipmentID uint64
	Supplier   uuid.UUID
	Amount     decimal.Decimal
}

// EscrowResponse is the read model of an escrow
type EscrowResponse struct {
	ShipmentID   uint64          `json:"shipment_id"`
	Manufacturer uuid.UUID       `json:"manufacturer"`
	Supplier     uuid.UUID       `json:"supplier"`
	Amount       decimal.Decimal `json:"amount"`
	Disposition  string          `json:"disposition"`
	Funded       bool            `json:"funded"`
	Released     bool            `json:"released"`
	Refunded     bool            `json:"refunded"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToEscrowResponse converts a domain escrow to its read model
func ToEscrowResponse(e *escrow.Escrow) EscrowResponse {
	return EscrowResponse{
		ShipmentID:   e.ShipmentID,
		Manufacturer: e.Manufacturer,
		Supplier:     e.Supplier,
		Amount:       e.Amount,
		Disposition:  string(e.Disposition()),
		Funded:       e.Funded,
		Released:     e.Released,
		Refunded:     e.Refunded,
		SettledAt:    e.SettledAt,
		CreatedAt:    e.CreatedAt,
	}
}
