package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// EventTypeProductAssembled is raised once per minted product unit
const EventTypeProductAssembled = "ProductAssembled"

// ProductAssembledEvent is raised when a product unit is minted
type ProductAssembledEvent struct {
	shared.BaseDomainEvent
	ProductID   uint64    `json:"product_id"`
	ShipmentID  uint64    `json:"shipment_id"`
	Owner       uuid.UUID `json:"owner"`
	MaterialIDs []uint64  `json:"material_ids"`
	AssembledAt time.Time `json:"assembled_at"`
}

// NewProductAssembledEvent creates a new ProductAssembledEvent
func NewProductAssembledEvent(p *Product) *ProductAssembledEvent {
	return &ProductAssembledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductAssembled, AggregateTypeProduct, p.AggregateKey(), p.AssembledAt),
		ProductID:       p.ID,
		ShipmentID:      p.ShipmentID,
		Owner:           p.Owner,
		MaterialIDs:     p.MaterialIDs,
		AssembledAt:     p.AssembledAt,
	}
}

// EventType returns the event type name
func (e *ProductAssembledEvent) EventType() string {
	return EventTypeProductAssembled
}
