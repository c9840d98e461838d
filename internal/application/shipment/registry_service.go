package shipment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shared/valueobject"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RegistryService owns shipments and their status transitions
type RegistryService struct {
	txScope         TransactionScope
	accessGate      identity.AccessGate
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(txScope TransactionScope, accessGate identity.AccessGate, logger *zap.Logger) *RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{
		txScope:    txScope,
		accessGate: accessGate,
		logger:     logger,
		now:        time.Now,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *RegistryService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock replaces the time source
func (s *RegistryService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateShipment locks quantity units of the material from the supplier into
// custody and registers a new shipment
func (s *RegistryService) CreateShipment(ctx context.Context, caller uuid.UUID, input CreateShipmentInput) (*ShipmentResponse, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleSupplier, caller); err != nil {
		return nil, err
	}

	destination, err := valueobject.NewCoordinates(input.DestinationLat, input.DestinationLong)
	if err != nil {
		return nil, shipment.ErrInvalidCoordinates.WithMessage(err.Error())
	}

	now := s.now()
	params := shipment.NewShipmentParams{
		Supplier:        caller,
		Manufacturer:    input.Manufacturer,
		Destination:     destination,
		RadiusMeters:    input.RadiusMeters,
		MaterialID:      input.MaterialID,
		Quantity:        input.Quantity,
		ExpectedArrival: input.ExpectedArrival,
	}
	if err := shipment.ValidateNewShipment(params, now); err != nil {
		return nil, err
	}

	var created *shipment.Shipment
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		id, err := repos.Sequences().Next(ctx, shipment.SequenceName)
		if err != nil {
			return fmt.Errorf("allocate shipment id: %w", err)
		}

		if err := repos.Ledger().Transfer(ctx, caller, ledger.ShipmentCustodyAccount, input.MaterialID, input.Quantity); err != nil {
			return err
		}

		sh, err := shipment.NewShipment(id, params, now)
		if err != nil {
			return err
		}
		if err := repos.ShipmentRepo().Create(ctx, sh); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, sh.PullDomainEvents()...); err != nil {
			return err
		}

		created = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment created",
		zap.Uint64("shipment_id", created.ID),
		zap.String("supplier", caller.String()),
		zap.String("manufacturer", created.Manufacturer.String()),
		zap.Uint64("material_id", created.MaterialID),
		zap.Int64("quantity", created.Quantity),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordShipmentCreated(ctx, created.MaterialID, created.Quantity)
	}

	resp := ToShipmentResponse(created)
	return &resp, nil
}

// StartDelivery moves a CREATED shipment into transit and makes it pollable
func (s *RegistryService) StartDelivery(ctx context.Context, caller uuid.UUID, id uint64) (*ShipmentResponse, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleSupplier, caller); err != nil {
		return nil, err
	}

	now := s.now()
	var updated *shipment.Shipment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sh, err := repos.ShipmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sh.StartDelivery(now); err != nil {
			return err
		}
		if err := repos.ShipmentRepo().Update(ctx, sh); err != nil {
			return err
		}
		if err := repos.PollSet().Add(ctx, sh.ID); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, sh.PullDomainEvents()...); err != nil {
			return err
		}
		updated = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment in transit", zap.Uint64("shipment_id", id))
	resp := ToShipmentResponse(updated)
	return &resp, nil
}

// ForceArrival completes arrival without oracle confirmation. Admin only.
func (s *RegistryService) ForceArrival(ctx context.Context, caller uuid.UUID, id uint64) (*ShipmentResponse, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleAdmin, caller); err != nil {
		return nil, err
	}
	return s.forceArrival(ctx, id, shipment.ArrivalModeAdminOverride, func(*shipment.Shipment, time.Time) error {
		return nil
	})
}

// ManufacturerForceArrival lets the shipment's own manufacturer complete
// arrival once the expected arrival is more than 24 hours past
func (s *RegistryService) ManufacturerForceArrival(ctx context.Context, caller uuid.UUID, id uint64) (*ShipmentResponse, error) {
	return s.forceArrival(ctx, id, shipment.ArrivalModeManufacturerOverride, func(sh *shipment.Shipment, now time.Time) error {
		if sh.Manufacturer != caller {
			return shipment.ErrUnauthorizedManufacturer
		}
		if sh.Status != shipment.StatusInTransit {
			return shipment.ErrShipmentNotInTransit
		}
		if !sh.CanManufacturerForceArrive(now) {
			return shipment.ErrForceArrivalTooEarly.WithMessage(fmt.Sprintf(
				"manufacturer override for shipment %d opens at %s", sh.ID, sh.ExpectedArrival.Add(shipment.ForceArrivalGrace).Format(time.RFC3339)))
		}
		return nil
	})
}

func (s *RegistryService) forceArrival(ctx context.Context, id uint64, mode shipment.ArrivalMode, guard func(*shipment.Shipment, time.Time) error) (*ShipmentResponse, error) {
	now := s.now()
	var arrived *shipment.Shipment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sh, err := repos.ShipmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := guard(sh, now); err != nil {
			return err
		}
		if err := completeArrival(ctx, repos, sh, mode, now); err != nil {
			return err
		}
		arrived = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("shipment arrival forced",
		zap.Uint64("shipment_id", id),
		zap.String("mode", string(mode)),
	)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordArrival(ctx, string(mode))
	}

	resp := ToShipmentResponse(arrived)
	return &resp, nil
}

// GetShipment returns a shipment by id
func (s *RegistryService) GetShipment(ctx context.Context, id uint64) (*ShipmentResponse, error) {
	var resp ShipmentResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sh, err := repos.ShipmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = ToShipmentResponse(sh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetShipmentStatus is the read-only status query used by the payment escrow
func (s *RegistryService) GetShipmentStatus(ctx context.Context, id uint64) (shipment.Status, error) {
	var status shipment.Status
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		sh, err := repos.ShipmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		status = sh.Status
		return nil
	})
	return status, err
}

// ListShipments returns a page of shipments matching the filter
func (s *RegistryService) ListShipments(ctx context.Context, filter shipment.Filter) (shared.Paginated[ShipmentResponse], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	var (
		items []ShipmentResponse
		total int64
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		shipments, count, err := repos.ShipmentRepo().List(ctx, filter)
		if err != nil {
			return err
		}
		items = make([]ShipmentResponse, 0, len(shipments))
		for _, sh := range shipments {
			items = append(items, ToShipmentResponse(sh))
		}
		total = count
		return nil
	})
	if err != nil {
		return shared.Paginated[ShipmentResponse]{}, err
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
