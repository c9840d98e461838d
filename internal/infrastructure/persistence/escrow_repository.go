package persistence

import (
	"context"
	"errors"

	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormEscrowRepository implements escrow.Repository using GORM
type GormEscrowRepository struct {
	db *gorm.DB
}

// NewGormEscrowRepository creates a new GormEscrowRepository
func NewGormEscrowRepository(db *gorm.DB) *GormEscrowRepository {
	return &GormEscrowRepository{db: db}
}

// Create persists a new escrow. Returns ErrEscrowAlreadyFunded if one exists.
func (r *GormEscrowRepository) Create(ctx context.Context, e *escrow.Escrow) error {
	err := r.db.WithContext(ctx).Create(models.EscrowModelFromDomain(e)).Error
	if isDuplicate(err) {
		return escrow.ErrEscrowAlreadyFunded
	}
	return err
}

// FindByShipment loads the escrow of a shipment, locking the row on postgres
func (r *GormEscrowRepository) FindByShipment(ctx context.Context, shipmentID uint64) (*escrow.Escrow, error) {
	var m models.EscrowModel
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&m, "shipment_id = ?", shipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, escrow.ErrEscrowNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Update saves the disposition flags with optimistic locking. Flags are only
// ever set, so the guard also requires the stored row to be unsettled.
func (r *GormEscrowRepository) Update(ctx context.Context, e *escrow.Escrow) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.EscrowModel{}).
		Where("shipment_id = ? AND version = ? AND released = ? AND refunded = ?", e.ShipmentID, e.Version, false, false).
		Updates(map[string]interface{}{
			"released":   e.Released,
			"refunded":   e.Refunded,
			"settled_at": e.SettledAt,
			"version":    e.Version + 1,
			"updated_at": e.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.EscrowModel{}).Where("shipment_id = ?", e.ShipmentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return escrow.ErrEscrowNotFound
		}
		return shared.ErrConcurrencyConflict
	}

	e.IncrementVersion()
	return nil
}

var _ escrow.Repository = (*GormEscrowRepository)(nil)
