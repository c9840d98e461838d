package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// EscrowService holds manufacturer payments until the shipment outcome is known
type EscrowService struct {
	txScope         TransactionScope
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
}

// NewEscrowService creates a new EscrowService
func NewEscrowService(txScope TransactionScope, logger *zap.Logger) *EscrowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscrowService{
		txScope: txScope,
		logger:  logger,
		now:     time.Now,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *EscrowService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// SetClock replaces the time source
func (s *EscrowService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateEscrow moves amount from the caller into escrow custody for a shipment.
// The caller becomes the escrow's manufacturer.
func (s *EscrowService) CreateEscrow(ctx context.Context, caller uuid.UUID, input CreateEscrowInput) (*EscrowResponse, error) {
	if !input.Amount.IsPositive() {
		return nil, escrow.ErrInvalidAmount
	}

	now := s.now()
	var created *escrow.Escrow
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.EscrowRepo().FindByShipment(ctx, input.ShipmentID); err == nil {
			return escrow.ErrEscrowAlreadyFunded
		} else if !isNotFound(err) {
			return err
		}
		if _, err := repos.ShipmentStatus().GetShipmentStatus(ctx, input.ShipmentID); err != nil {
			return err
		}

		e, err := escrow.NewEscrow(input.ShipmentID, caller, input.Supplier, input.Amount, now)
		if err != nil {
			return err
		}
		if err := repos.PaymentLedger().Transfer(ctx, caller, ledger.EscrowCustodyAccount, input.Amount); err != nil {
			return err
		}
		if err := repos.EscrowRepo().Create(ctx, e); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, e.PullDomainEvents()...); err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("escrow funded",
		zap.Uint64("shipment_id", created.ShipmentID),
		zap.String("manufacturer", caller.String()),
		zap.String("amount", created.Amount.String()),
	)
	s.recordMetrics(ctx, created)
	resp := ToEscrowResponse(created)
	return &resp, nil
}

// ReleasePayment pays the supplier once the shipment has arrived
func (s *EscrowService) ReleasePayment(ctx context.Context, caller uuid.UUID, shipmentID uint64) (*EscrowResponse, error) {
	return s.settle(ctx, shipmentID, func(repos TransactionalRepositories, e *escrow.Escrow, now time.Time) (uuid.UUID, error) {
		status, err := repos.ShipmentStatus().GetShipmentStatus(ctx, shipmentID)
		if err != nil {
			return uuid.Nil, err
		}
		if err := e.Release(caller, status, now); err != nil {
			return uuid.Nil, err
		}
		return e.Supplier, nil
	})
}

// RefundEscrow returns the funds to the manufacturer while the shipment has not arrived
func (s *EscrowService) RefundEscrow(ctx context.Context, caller uuid.UUID, shipmentID uint64) (*EscrowResponse, error) {
	return s.settle(ctx, shipmentID, func(repos TransactionalRepositories, e *escrow.Escrow, now time.Time) (uuid.UUID, error) {
		status, err := repos.ShipmentStatus().GetShipmentStatus(ctx, shipmentID)
		if err != nil {
			return uuid.Nil, err
		}
		if err := e.Refund(caller, status, now); err != nil {
			return uuid.Nil, err
		}
		return e.Manufacturer, nil
	})
}

// settle applies a disposition, saves the escrow and only then pays the payee
func (s *EscrowService) settle(ctx context.Context, shipmentID uint64, decide func(TransactionalRepositories, *escrow.Escrow, time.Time) (uuid.UUID, error)) (*EscrowResponse, error) {
	now := s.now()
	var settled *escrow.Escrow
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		e, err := repos.EscrowRepo().FindByShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		payee, err := decide(repos, e, now)
		if err != nil {
			return err
		}
		if err := repos.EscrowRepo().Update(ctx, e); err != nil {
			return err
		}
		if err := repos.PaymentLedger().Transfer(ctx, ledger.EscrowCustodyAccount, payee, e.Amount); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, e.PullDomainEvents()...); err != nil {
			return err
		}
		settled = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("escrow settled",
		zap.Uint64("shipment_id", shipmentID),
		zap.String("disposition", string(settled.Disposition())),
		zap.String("amount", settled.Amount.String()),
	)
	s.recordMetrics(ctx, settled)
	resp := ToEscrowResponse(settled)
	return &resp, nil
}

// GetEscrow returns the escrow of a shipment
func (s *EscrowService) GetEscrow(ctx context.Context, shipmentID uint64) (*EscrowResponse, error) {
	var resp EscrowResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		e, err := repos.EscrowRepo().FindByShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		resp = ToEscrowResponse(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *EscrowService) recordMetrics(ctx context.Context, e *escrow.Escrow) {
	if s.businessMetrics == nil {
		return
	}
	s.businessMetrics.RecordEscrow(ctx, string(e.Disposition()), e.Amount)
}

func isNotFound(err error) bool {
	return errors.Is(err, escrow.ErrEscrowNotFound)
}
