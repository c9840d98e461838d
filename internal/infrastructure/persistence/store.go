package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/event"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store runs transactions against a GORM database. Domain events recorded
// inside a transaction are written to the outbox in the same transaction.
type Store struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// NewStore creates a Store. The serializer must know every recorded event type.
func NewStore(db *gorm.DB, serializer *event.EventSerializer) *Store {
	return &Store{db: db, serializer: serializer}
}

// DB returns the underlying connection
func (s *Store) DB() *gorm.DB { return s.db }

// Execute runs fn within a database transaction.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
func (s *Store) Execute(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{db: gtx, serializer: s.serializer})
	})
}

// HasRole answers role membership from committed state
func (s *Store) HasRole(ctx context.Context, role identity.Role, account uuid.UUID) (bool, error) {
	return roleGrants{db: s.db}.HasRole(ctx, role, account)
}

var _ identity.AccessGate = (*Store)(nil)

// Tx is the transactional view handed to scope callbacks
type Tx struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// Events returns a recorder that appends to the outbox table
func (tx *Tx) Events() shared.EventRecorder {
	return event.NewOutboxRecorder(tx.serializer, event.NewGormOutboxRepository(tx.db))
}

// Sequences returns the transaction's id allocator
func (tx *Tx) Sequences() shared.SequenceGenerator { return sequences{db: tx.db} }

// ShipmentRepo returns the shipment repository
func (tx *Tx) ShipmentRepo() shipment.Repository { return NewGormShipmentRepository(tx.db) }

// PollSet returns the in-transit set
func (tx *Tx) PollSet() shipment.ActivePollSet { return NewGormActivePollSet(tx.db) }

// RequestRepo returns the pending verification requests
func (tx *Tx) RequestRepo() shipment.VerificationRequestRepository {
	return NewGormVerificationRequestRepository(tx.db)
}

// ProductRepo returns the product repository
func (tx *Tx) ProductRepo() product.Repository { return NewGormProductRepository(tx.db) }

// ConsumptionRepo returns the shipment consumption records
func (tx *Tx) ConsumptionRepo() product.ConsumptionRepository {
	return NewGormConsumptionRepository(tx.db)
}

// EscrowRepo returns the escrow repository
func (tx *Tx) EscrowRepo() escrow.Repository { return NewGormEscrowRepository(tx.db) }

// ShipmentStatus returns the read-only status view used by escrows
func (tx *Tx) ShipmentStatus() escrow.ShipmentStatusReader {
	return NewGormShipmentRepository(tx.db)
}

// Ledger returns the raw material ledger
func (tx *Tx) Ledger() ledger.AssetLedger { return assetLedger{db: tx.db} }

// PaymentLedger returns the payment asset ledger
func (tx *Tx) PaymentLedger() ledger.PaymentLedger { return paymentLedger{db: tx.db} }

// UniqueAssets returns the unique asset registry
func (tx *Tx) UniqueAssets() ledger.UniqueAssetRegistry { return uniqueAssets{db: tx.db} }

// RoleGrants returns the role grant repository
func (tx *Tx) RoleGrants() identity.RoleGrantRepository { return roleGrants{db: tx.db} }

type sequences struct{ db *gorm.DB }

// Next increments the named counter and returns the new value. The upsert
// takes a row lock that holds until the surrounding transaction ends.
func (s sequences) Next(ctx context.Context, name string) (uint64, error) {
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("sequences.value + 1")}),
	}).Create(&models.SequenceModel{Name: name, Value: 1}).Error
	if err != nil {
		return 0, err
	}

	var seq models.SequenceModel
	if err := db.First(&seq, "name = ?", name).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
