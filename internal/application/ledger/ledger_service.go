// Package ledger exposes administration of the material and payment ledgers.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"go.uber.org/zap"
)

// TransactionScope provides transactional access to the ledgers.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledgers within a transaction.
type TransactionalRepositories interface {
	Ledger() ledger.AssetLedger
	PaymentLedger() ledger.PaymentLedger
	UniqueAssets() ledger.UniqueAssetRegistry
}

// MaterialBalance is the balance of one material held by an account
type MaterialBalance struct {
	Account    uuid.UUID `json:"account"`
	MaterialID uint64    `json:"material_id"`
	Balance    int64     `json:"balance"`
}

// PaymentBalance is the payment asset balance of an account
type PaymentBalance struct {
	Account uuid.UUID       `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

// LedgerService funds accounts and answers balance queries
type LedgerService struct {
	txScope    TransactionScope
	accessGate identity.AccessGate
	logger     *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(txScope TransactionScope, accessGate identity.AccessGate, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		txScope:    txScope,
		accessGate: accessGate,
		logger:     logger,
	}
}

// MintMaterial credits raw material to an account. Admin only.
func (s *LedgerService) MintMaterial(ctx context.Context, caller, to uuid.UUID, materialID uint64, amount int64) (*MaterialBalance, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleAdmin, caller); err != nil {
		return nil, err
	}
	if err := ledger.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if to == uuid.Nil {
		return nil, identity.ErrInvalidAccount
	}

	result := &MaterialBalance{Account: to, MaterialID: materialID}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Ledger().Mint(ctx, to, materialID, amount); err != nil {
			return err
		}
		var err error
		result.Balance, err = repos.Ledger().BalanceOf(ctx, to, materialID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("material minted",
		zap.String("account", to.String()),
		zap.Uint64("material_id", materialID),
		zap.Int64("amount", amount),
	)
	return result, nil
}

// DepositFunds credits the payment asset to an account. Admin only.
func (s *LedgerService) DepositFunds(ctx context.Context, caller, to uuid.UUID, amount decimal.Decimal) (*PaymentBalance, error) {
	if err := identity.RequireRole(ctx, s.accessGate, identity.RoleAdmin, caller); err != nil {
		return nil, err
	}
	if err := ledger.ValidatePayment(amount); err != nil {
		return nil, err
	}
	if to == uuid.Nil {
		return nil, identity.ErrInvalidAccount
	}

	result := &PaymentBalance{Account: to}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.PaymentLedger().Deposit(ctx, to, amount); err != nil {
			return err
		}
		var err error
		result.Balance, err = repos.PaymentLedger().BalanceOf(ctx, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("funds deposited",
		zap.String("account", to.String()),
		zap.String("amount", amount.String()),
	)
	return result, nil
}

// MaterialBalance returns the raw material balance of an account
func (s *LedgerService) MaterialBalance(ctx context.Context, account uuid.UUID, materialID uint64) (*MaterialBalance, error) {
	result := &MaterialBalance{Account: account, MaterialID: materialID}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result.Balance, err = repos.Ledger().BalanceOf(ctx, account, materialID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PaymentBalance returns the payment asset balance of an account
func (s *LedgerService) PaymentBalance(ctx context.Context, account uuid.UUID) (*PaymentBalance, error) {
	result := &PaymentBalance{Account: account}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result.Balance, err = repos.PaymentLedger().BalanceOf(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UniqueAsset returns a minted product asset
func (s *LedgerService) UniqueAsset(ctx context.Context, id uint64) (*ledger.UniqueAsset, error) {
	var asset *ledger.UniqueAsset
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		asset, err = repos.UniqueAssets().FindUnique(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}
