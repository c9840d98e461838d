package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// uniqueAssetSequence names the id sequence of minted unique assets
const uniqueAssetSequence = "unique_asset"

type assetLedger struct{ db *gorm.DB }

func (l assetLedger) Mint(ctx context.Context, to uuid.UUID, materialID uint64, amount int64) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "material_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("material_balances.balance + ?", amount)}),
	}).Create(&models.MaterialBalanceModel{Account: to, MaterialID: materialID, Balance: amount}).Error
}

// Burn debits with a single conditional update so the balance can never go negative
func (l assetLedger) Burn(ctx context.Context, from uuid.UUID, materialID uint64, amount int64) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}
	db := l.db.WithContext(ctx)
	result := db.Model(&models.MaterialBalanceModel{}).
		Where("account = ? AND material_id = ? AND balance >= ?", from, materialID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		held, err := l.BalanceOf(ctx, from, materialID)
		if err != nil {
			return err
		}
		return ledger.ErrInsufficientBalance.WithMessage(fmt.Sprintf(
			"account %s holds %d of material %d, needs %d", from, held, materialID, amount))
	}
	return nil
}

func (l assetLedger) Transfer(ctx context.Context, from, to uuid.UUID, materialID uint64, amount int64) error {
	if err := l.Burn(ctx, from, materialID, amount); err != nil {
		return err
	}
	return l.Mint(ctx, to, materialID, amount)
}

func (l assetLedger) BalanceOf(ctx context.Context, account uuid.UUID, materialID uint64) (int64, error) {
	var m models.MaterialBalanceModel
	err := l.db.WithContext(ctx).First(&m, "account = ? AND material_id = ?", account, materialID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return m.Balance, err
}

type paymentLedger struct{ db *gorm.DB }

func (l paymentLedger) Deposit(ctx context.Context, to uuid.UUID, amount decimal.Decimal) error {
	if err := ledger.ValidatePayment(amount); err != nil {
		return err
	}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"balance": gorm.Expr("payment_balances.balance + ?", amount)}),
	}).Create(&models.PaymentBalanceModel{Account: to, Balance: amount}).Error
}

func (l paymentLedger) Transfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) error {
	if err := ledger.ValidatePayment(amount); err != nil {
		return err
	}
	db := l.db.WithContext(ctx)
	result := db.Model(&models.PaymentBalanceModel{}).
		Where("account = ? AND balance >= ?", from, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		held, err := l.BalanceOf(ctx, from)
		if err != nil {
			return err
		}
		return ledger.ErrInsufficientBalance.WithMessage(fmt.Sprintf(
			"account %s holds %s, needs %s", from, held, amount))
	}
	return l.Deposit(ctx, to, amount)
}

func (l paymentLedger) BalanceOf(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	var m models.PaymentBalanceModel
	err := l.db.WithContext(ctx).First(&m, "account = ?", account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	return m.Balance, err
}

type uniqueAssets struct{ db *gorm.DB }

func (u uniqueAssets) MintUnique(ctx context.Context, to uuid.UUID, descriptor string) (uint64, error) {
	id, err := sequences{db: u.db}.Next(ctx, uniqueAssetSequence)
	if err != nil {
		return 0, err
	}
	err = u.db.WithContext(ctx).Create(&models.UniqueAssetModel{
		ID:         id,
		Owner:      to,
		Descriptor: descriptor,
		MintedAt:   time.Now().UTC(),
	}).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (u uniqueAssets) FindUnique(ctx context.Context, id uint64) (*ledger.UniqueAsset, error) {
	var m models.UniqueAssetModel
	if err := u.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrAssetNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

type roleGrants struct{ db *gorm.DB }

func (r roleGrants) HasRole(ctx context.Context, role identity.Role, account uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoleGrantModel{}).
		Where("role = ? AND account = ?", string(role), account).
		Count(&count).Error
	return count > 0, err
}

func (r roleGrants) Grant(ctx context.Context, grant identity.RoleGrant) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.RoleGrantModelFromDomain(grant)).Error
}

func (r roleGrants) Revoke(ctx context.Context, role identity.Role, account uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.RoleGrantModel{}, "role = ? AND account = ?", string(role), account).Error
}

func (r roleGrants) ListByAccount(ctx context.Context, account uuid.UUID) ([]identity.RoleGrant, error) {
	var rows []models.RoleGrantModel
	if err := r.db.WithContext(ctx).Where("account = ?", account).Order("role ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]identity.RoleGrant, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

var (
	_ ledger.AssetLedger           = assetLedger{}
	_ ledger.PaymentLedger         = paymentLedger{}
	_ ledger.UniqueAssetRegistry   = uniqueAssets{}
	_ identity.RoleGrantRepository = roleGrants{}
)
