package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// allowedPredecessors lists the stored statuses a shipment may be saved over.
// Status only moves forward, so the update guard rejects a stale write that
// would move a row back.
var allowedPredecessors = map[shipment.Status][]string{
	shipment.StatusCreated:   {string(shipment.StatusCreated)},
	shipment.StatusInTransit: {string(shipment.StatusCreated), string(shipment.StatusInTransit)},
	shipment.StatusArrived:   {string(shipment.StatusInTransit), string(shipment.StatusArrived)},
}

// GormShipmentRepository implements shipment.Repository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// Create persists a new shipment
func (r *GormShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	err := r.db.WithContext(ctx).Create(models.ShipmentModelFromDomain(s)).Error
	if isDuplicate(err) {
		return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("shipment %d already exists", s.ID))
	}
	return err
}

// FindByID loads a shipment, locking the row on postgres
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uint64) (*shipment.Shipment, error) {
	var m models.ShipmentModel
	if err := lockForUpdate(r.db.WithContext(ctx)).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrShipmentNotFound
		}
		return nil, err
	}
	return m.ToDomain()
}

// Update saves the mutable fields with optimistic locking
func (r *GormShipmentRepository) Update(ctx context.Context, s *shipment.Shipment) error {
	predecessors, ok := allowedPredecessors[s.Status]
	if !ok {
		return fmt.Errorf("shipment %d has unknown status %q", s.ID, s.Status)
	}

	db := r.db.WithContext(ctx)
	result := db.Model(&models.ShipmentModel{}).
		Where("id = ? AND version = ? AND status IN ?", s.ID, s.Version, predecessors).
		Updates(map[string]interface{}{
			"status":          string(s.Status),
			"polls_performed": s.PollsPerformed,
			"last_polled_at":  s.LastPolledAt,
			"arrived_at":      s.ArrivedAt,
			"arrival_mode":    string(s.ArrivalMode),
			"version":         s.Version + 1,
			"updated_at":      s.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.ShipmentModel{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shipment.ErrShipmentNotFound
		}
		return shared.ErrConcurrencyConflict
	}

	s.IncrementVersion()
	return nil
}

// List returns shipments matching the filter ordered by id, and the total count
func (r *GormShipmentRepository) List(ctx context.Context, filter shipment.Filter) ([]*shipment.Shipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ShipmentModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Manufacturer != nil {
		query = query.Where("manufacturer = ?", *filter.Manufacturer)
	}
	if filter.Supplier != nil {
		query = query.Where("supplier = ?", *filter.Supplier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("id ASC")
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rows []models.ShipmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*shipment.Shipment, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, nil
}

// GetShipmentStatus reads only the status column
func (r *GormShipmentRepository) GetShipmentStatus(ctx context.Context, id uint64) (shipment.Status, error) {
	var m models.ShipmentModel
	if err := r.db.WithContext(ctx).Select("status").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shipment.ErrShipmentNotFound
		}
		return "", err
	}
	return shipment.Status(m.Status), nil
}

// GormActivePollSet implements shipment.ActivePollSet using GORM
type GormActivePollSet struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormActivePollSet creates a new GormActivePollSet
func NewGormActivePollSet(db *gorm.DB) *GormActivePollSet {
	return &GormActivePollSet{db: db, now: time.Now}
}

// Add inserts the id; adding a present id is a no-op
func (p *GormActivePollSet) Add(ctx context.Context, id uint64) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PollSetEntryModel{ShipmentID: id, AddedAt: p.now().UTC()}).Error
}

// Remove deletes the id; removing a missing id is a no-op
func (p *GormActivePollSet) Remove(ctx context.Context, id uint64) error {
	return p.db.WithContext(ctx).Delete(&models.PollSetEntryModel{}, "shipment_id = ?", id).Error
}

// Contains reports membership
func (p *GormActivePollSet) Contains(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&models.PollSetEntryModel{}).Where("shipment_id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns the members in ascending id order
func (p *GormActivePollSet) List(ctx context.Context) ([]uint64, error) {
	ids := make([]uint64, 0)
	err := p.db.WithContext(ctx).Model(&models.PollSetEntryModel{}).
		Order("shipment_id ASC").
		Pluck("shipment_id", &ids).Error
	return ids, err
}

// GormVerificationRequestRepository implements shipment.VerificationRequestRepository using GORM
type GormVerificationRequestRepository struct {
	db *gorm.DB
}

// NewGormVerificationRequestRepository creates a new GormVerificationRequestRepository
func NewGormVerificationRequestRepository(db *gorm.DB) *GormVerificationRequestRepository {
	return &GormVerificationRequestRepository{db: db}
}

// Create records a new outstanding request
func (r *GormVerificationRequestRepository) Create(ctx context.Context, req *shipment.VerificationRequest) error {
	err := r.db.WithContext(ctx).Create(&models.VerificationRequestModel{
		RequestID:  req.RequestID,
		ShipmentID: req.ShipmentID,
		IssuedAt:   req.IssuedAt,
	}).Error
	if isDuplicate(err) {
		return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("verification request %s already exists", req.RequestID))
	}
	return err
}

// Take returns and deletes the request. The delete must remove exactly one
// row, so two concurrent callbacks for the same id cannot both succeed.
func (r *GormVerificationRequestRepository) Take(ctx context.Context, requestID string) (*shipment.VerificationRequest, error) {
	db := r.db.WithContext(ctx)
	var m models.VerificationRequestModel
	if err := db.First(&m, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrRequestNotFound
		}
		return nil, err
	}

	result := db.Delete(&models.VerificationRequestModel{}, "request_id = ?", requestID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, shipment.ErrRequestNotFound
	}
	return m.ToDomain(), nil
}

// ExistsForShipment reports whether a request is outstanding for the shipment
func (r *GormVerificationRequestRepository) ExistsForShipment(ctx context.Context, shipmentID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VerificationRequestModel{}).
		Where("shipment_id = ?", shipmentID).
		Count(&count).Error
	return count > 0, err
}

// DeleteByShipment drops every outstanding request of the shipment
func (r *GormVerificationRequestRepository) DeleteByShipment(ctx context.Context, shipmentID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.VerificationRequestModel{}, "shipment_id = ?", shipmentID).Error
}

var (
	_ shipment.Repository                    = (*GormShipmentRepository)(nil)
	_ shipment.ActivePollSet                 = (*GormActivePollSet)(nil)
	_ shipment.VerificationRequestRepository = (*GormVerificationRequestRepository)(nil)
)
