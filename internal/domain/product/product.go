package product

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/shared"
)

// MaxMaterialsPerProduct bounds the material list recorded on a product
const MaxMaterialsPerProduct = 16

// Product errors
var (
	ErrShipmentAlreadyConsumed = shared.NewDomainError("SHIPMENT_ALREADY_CONSUMED", "Shipment has already been assembled into products")
	ErrInsufficientRawMaterial = shared.NewResourceError("INSUFFICIENT_RAW_MATERIAL", "Manufacturer balance is below the shipment quantity")
	ErrMetadataMismatch        = shared.NewInvalidInputError("METADATA_MISMATCH", "Metadata list length must equal the shipment quantity")
	ErrInvalidMaterials        = shared.NewInvalidInputError("INVALID_MATERIALS", "A product must record between 1 and 16 materials")
	ErrProductNotFound         = shared.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
)

// Product is one finished unit minted from an arrived shipment
type Product struct {
	shared.BaseAggregateRoot
	ID          uint64
	ShipmentID  uint64
	Owner       uuid.UUID
	MaterialIDs []uint64
	Descriptor  string
	AssembledAt time.Time
}

// NewProduct creates a product record for a minted unique asset
func NewProduct(id, shipmentID uint64, owner uuid.UUID, materialIDs []uint64, descriptor string, now time.Time) (*Product, error) {
	if len(materialIDs) == 0 || len(materialIDs) > MaxMaterialsPerProduct {
		return nil, ErrInvalidMaterials.WithMessage(fmt.Sprintf("product records %d materials, limit is %d", len(materialIDs), MaxMaterialsPerProduct))
	}

	materials := make([]uint64, len(materialIDs))
	copy(materials, materialIDs)

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ID:                id,
		ShipmentID:        shipmentID,
		Owner:             owner,
		MaterialIDs:       materials,
		Descriptor:        descriptor,
		AssembledAt:       now,
	}
	p.AddDomainEvent(NewProductAssembledEvent(p))
	return p, nil
}

// AggregateKey returns the product id as used in events
func (p *Product) AggregateKey() string {
	return strconv.FormatUint(p.ID, 10)
}

// Consumption marks a shipment as used up by assembly. A shipment has at most one.
type Consumption struct {
	ShipmentID uint64
	ConsumedBy uuid.UUID
	Quantity   int64
	ConsumedAt time.Time
}

// Repository defines the interface for product persistence
type Repository interface {
	// Create persists a new product
	Create(ctx context.Context, p *Product) error

	// FindByID returns ErrProductNotFound when the id is unknown
	FindByID(ctx context.Context, id uint64) (*Product, error)

	// ListByShipment returns the products assembled from a shipment ordered by id
	ListByShipment(ctx context.Context, shipmentID uint64) ([]*Product, error)
}

// ConsumptionRepository records one-shot shipment consumption
type ConsumptionRepository interface {
	// Create records the consumption. Returns ErrShipmentAlreadyConsumed if
	// the shipment was consumed before.
	Create(ctx context.Context, c *Consumption) error

	// Exists reports whether the shipment was consumed
	Exists(ctx context.Context, shipmentID uint64) (bool, error)
}
