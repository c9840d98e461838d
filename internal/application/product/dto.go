package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/product"
)

// ProductResponse is the read model of an assembled product
type ProductResponse struct {
	ID          uint64    `json:"id"`
	ShipmentID  uint64    `json:"shipment_id"`
	Owner       uuid.UUID `json:"owner"`
	MaterialIDs []uint64  `json:"material_ids"`
	Descriptor  string    `json:"descriptor"`
	AssembledAt time.Time `json:"assembled_at"`
}

// ToProductResponse converts a domain product to its read model
func ToProductResponse(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		ShipmentID:  p.ShipmentID,
		Owner:       p.Owner,
		MaterialIDs: p.MaterialIDs,
		Descriptor:  p.Descriptor,
		AssembledAt: p.AssembledAt,
	}
}

// ToProductResponses converts a list of products
func ToProductResponses(products []*product.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ToProductResponse(p)
	}
	return out
}
