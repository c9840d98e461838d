package product

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProvenanceMetadata is the exported provenance document of one product unit
type ProvenanceMetadata struct {
	ProductID    uint64    `json:"product_id"`
	ShipmentID   uint64    `json:"shipment_id"`
	MaterialIDs  []uint64  `json:"material_ids"`
	Manufacturer uuid.UUID `json:"manufacturer"`
	Supplier     uuid.UUID `json:"supplier"`
	Descriptor   string    `json:"descriptor"`
	AssembledAt  time.Time `json:"assembled_at"`
}

// ProvenanceService renders product provenance documents
type ProvenanceService struct {
	txScope TransactionScope
}

// NewProvenanceService creates a new ProvenanceService
func NewProvenanceService(txScope TransactionScope) *ProvenanceService {
	return &ProvenanceService{txScope: txScope}
}

// Metadata collects the provenance of a product
func (s *ProvenanceService) Metadata(ctx context.Context, productID uint64) (*ProvenanceMetadata, error) {
	var meta ProvenanceMetadata
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProductRepo().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		sh, err := repos.ShipmentRepo().FindByID(ctx, p.ShipmentID)
		if err != nil {
			return err
		}
		meta = ProvenanceMetadata{
			ProductID:    p.ID,
			ShipmentID:   p.ShipmentID,
			MaterialIDs:  p.MaterialIDs,
			Manufacturer: p.Owner,
			Supplier:     sh.Supplier,
			Descriptor:   p.Descriptor,
			AssembledAt:  p.AssembledAt.UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// BuildMetadata returns the provenance document as JSON text
func (s *ProvenanceService) BuildMetadata(ctx context.Context, productID uint64) ([]byte, error) {
	meta, err := s.Metadata(ctx, productID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal provenance metadata: %w", err)
	}
	return data, nil
}
