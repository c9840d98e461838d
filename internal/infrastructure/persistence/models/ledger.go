package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/ledger"
)

// MaterialBalanceModel is one account's balance of one raw material
type MaterialBalanceModel struct {
	Account    uuid.UUID `gorm:"type:uuid;primaryKey"`
	MaterialID uint64    `gorm:"primaryKey;autoIncrement:false"`
	Balance    int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (MaterialBalanceModel) TableName() string {
	return "material_balances"
}

// PaymentBalanceModel is one account's payment asset balance
type PaymentBalanceModel struct {
	Account uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance decimal.Decimal `gorm:"type:numeric(38,18);not null"`
}

// TableName returns the table name for GORM
func (PaymentBalanceModel) TableName() string {
	return "payment_balances"
}

// UniqueAssetModel is a minted non-fungible asset
type UniqueAssetModel struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement:false"`
	Owner      uuid.UUID `gorm:"type:uuid;not null;index"`
	Descriptor string    `gorm:"type:text;not null"`
	MintedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UniqueAssetModel) TableName() string {
	return "unique_assets"
}

// ToDomain converts the persistence model to a domain UniqueAsset
func (m *UniqueAssetModel) ToDomain() *ledger.UniqueAsset {
	return &ledger.UniqueAsset{
		ID:         m.ID,
		Owner:      m.Owner,
		Descriptor: m.Descriptor,
	}
}

// SequenceModel holds the last value handed out for a named sequence
type SequenceModel struct {
	Name  string `gorm:"type:varchar(50);primaryKey"`
	Value uint64 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SequenceModel) TableName() string {
	return "sequences"
}
