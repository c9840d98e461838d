package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AssemblerService converts arrived raw material into uniquely identified products
type AssemblerService struct {
	txScope         TransactionScope
	accessGate      identity.AccessGate
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
}

// NewAssemblerService creates a new AssemblerService
func NewAssemblerService(txScope TransactionScope, accessGate identity.AccessGate, logger *zap.Logger) *AssemblerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssemblerService{
		txScope:    txScope,
		accessGate: accessGate,
		logger:     logger,
		now:        time.Now,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *AssemblerService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock replaces the time source
func (s *AssemblerService) SetClock(now func() time.Time) {
	s.now = now
}

// AssembleProduct consumes an arrived shipment and mints one product per unit,
// metadata[i] describing unit i. Either every unit is minted or nothing changes.
func (s *AssemblerService) AssembleProduct(ctx context.Context, caller uuid.UUID, shipmentID uint64, metadata []string) ([]ProductResponse, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleManufacturer, caller); err != nil {
		return nil, err
	}

	now := s.now()
	var (
		assembled  []*product.Product
		materialID uint64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sh, err := repos.ShipmentRepo().FindByID(ctx, shipmentID)
		if err != nil {
			return err
		}
		if sh.Manufacturer != caller {
			return shipment.ErrUnauthorizedManufacturer.WithMessage(fmt.Sprintf("shipment %d is assigned to another manufacturer", shipmentID))
		}
		if sh.Status != shipment.StatusArrived {
			return shipment.ErrShipmentNotArrived.WithMessage(fmt.Sprintf("shipment %d is %s", shipmentID, sh.Status))
		}

		consumed, err := repos.ConsumptionRepo().Exists(ctx, shipmentID)
		if err != nil {
			return err
		}
		if consumed {
			return product.ErrShipmentAlreadyConsumed
		}

		balance, err := repos.Ledger().BalanceOf(ctx, caller, sh.MaterialID)
		if err != nil {
			return err
		}
		if balance < sh.Quantity {
			return product.ErrInsufficientRawMaterial.WithMessage(fmt.Sprintf(
				"balance of material %d is %d, shipment needs %d", sh.MaterialID, balance, sh.Quantity))
		}
		if int64(len(metadata)) != sh.Quantity {
			return product.ErrMetadataMismatch.WithMessage(fmt.Sprintf(
				"got %d metadata entries for a shipment of %d units", len(metadata), sh.Quantity))
		}

		if err := repos.ConsumptionRepo().Create(ctx, &product.Consumption{
			ShipmentID: shipmentID,
			ConsumedBy: caller,
			Quantity:   sh.Quantity,
			ConsumedAt: now,
		}); err != nil {
			return err
		}
		if err := repos.Ledger().Burn(ctx, caller, sh.MaterialID, sh.Quantity); err != nil {
			return err
		}

		assembled = make([]*product.Product, 0, len(metadata))
		for _, descriptor := range metadata {
			assetID, err := repos.UniqueAssets().MintUnique(ctx, caller, descriptor)
			if err != nil {
				return fmt.Errorf("mint product unit: %w", err)
			}
			p, err := product.NewProduct(assetID, shipmentID, caller, []uint64{sh.MaterialID}, descriptor, now)
			if err != nil {
				return err
			}
			if err := repos.ProductRepo().Create(ctx, p); err != nil {
				return err
			}
			if err := repos.Events().Record(ctx, p.PullDomainEvents()...); err != nil {
				return err
			}
			assembled = append(assembled, p)
		}
		materialID = sh.MaterialID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("products assembled",
		zap.Uint64("shipment_id", shipmentID),
		zap.String("manufacturer", caller.String()),
		zap.Int("units", len(assembled)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordProductsAssembled(ctx, materialID, len(assembled))
	}
	return ToProductResponses(assembled), nil
}

// GetProduct returns a product by id
func (s *AssemblerService) GetProduct(ctx context.Context, id uint64) (*ProductResponse, error) {
	var resp ProductResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.ProductRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToProductResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListProductsByShipment returns the products assembled from a shipment
func (s *AssemblerService) ListProductsByShipment(ctx context.Context, shipmentID uint64) ([]ProductResponse, error) {
	var resp []ProductResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ShipmentRepo().FindByID(ctx, shipmentID); err != nil {
			return err
		}
		products, err := repos.ProductRepo().ListByShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		resp = ToProductResponses(products)
		return nil
	})
	return resp, err
}
