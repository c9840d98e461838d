package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductRepository implements product.Repository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Create persists a new product
func (r *GormProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.db.WithContext(ctx).Create(models.ProductModelFromDomain(p)).Error
	if isDuplicate(err) {
		return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("product %d already exists", p.ID))
	}
	return err
}

// FindByID returns ErrProductNotFound when the id is unknown
func (r *GormProductRepository) FindByID(ctx context.Context, id uint64) (*product.Product, error) {
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// ListByShipment returns the products assembled from a shipment ordered by id
func (r *GormProductRepository) ListByShipment(ctx context.Context, shipmentID uint64) ([]*product.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*product.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// GormConsumptionRepository implements product.ConsumptionRepository using GORM
type GormConsumptionRepository struct {
	db *gorm.DB
}

// NewGormConsumptionRepository creates a new GormConsumptionRepository
func NewGormConsumptionRepository(db *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: db}
}

// Create records the consumption. The primary key on shipment_id makes a
// second consumption fail even when two transactions race past Exists.
func (r *GormConsumptionRepository) Create(ctx context.Context, c *product.Consumption) error {
	err := r.db.WithContext(ctx).Create(&models.ConsumptionModel{
		ShipmentID: c.ShipmentID,
		ConsumedBy: c.ConsumedBy,
		Quantity:   c.Quantity,
		ConsumedAt: c.ConsumedAt,
	}).Error
	if isDuplicate(err) {
		return product.ErrShipmentAlreadyConsumed
	}
	return err
}

// Exists reports whether the shipment was consumed
func (r *GormConsumptionRepository) Exists(ctx context.Context, shipmentID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ConsumptionModel{}).
		Where("shipment_id = ?", shipmentID).
		Count(&count).Error
	return count > 0, err
}

var (
	_ product.Repository            = (*GormProductRepository)(nil)
	_ product.ConsumptionRepository = (*GormConsumptionRepository)(nil)
)
