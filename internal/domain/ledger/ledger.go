// Package ledger defines the custody bookkeeping ports used by the registry,
// the assembler and the payment escrow.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/shared"
)

var custodyNamespace = uuid.MustParse("6f1c2a4e-8d3b-4c71-9b0e-2f5a7d9c1e38")

// Custody accounts are derived deterministically so that every process of a
// deployment agrees on them without configuration.
var (
	ShipmentCustodyAccount = uuid.NewSHA1(custodyNamespace, []byte("shipment-registry"))
	EscrowCustodyAccount   = uuid.NewSHA1(custodyNamespace, []byte("payment-escrow"))
)

// AssetLedger keeps fungible raw-material balances per account and material type
type AssetLedger interface {
	// Mint credits amount units of materialID to account
	Mint(ctx context.Context, to uuid.UUID, materialID uint64, amount int64) error

	// Burn debits amount units of materialID from account.
	// Returns ErrInsufficientBalance if the balance is lower than amount.
	Burn(ctx context.Context, from uuid.UUID, materialID uint64, amount int64) error

	// Transfer moves amount units of materialID between accounts.
	// Returns ErrInsufficientBalance if the sender balance is lower than amount.
	Transfer(ctx context.Context, from, to uuid.UUID, materialID uint64, amount int64) error

	// BalanceOf returns the current balance; unknown accounts hold zero
	BalanceOf(ctx context.Context, account uuid.UUID, materialID uint64) (int64, error)
}

// UniqueAsset is a non-fungible record minted for one finished product unit
type UniqueAsset struct {
	ID         uint64
	Owner      uuid.UUID
	Descriptor string
}

// UniqueAssetRegistry mints uniquely identified assets
type UniqueAssetRegistry interface {
	// MintUnique creates a new asset owned by to and returns its sequential id
	MintUnique(ctx context.Context, to uuid.UUID, descriptor string) (uint64, error)

	// FindUnique returns a minted asset
	FindUnique(ctx context.Context, id uint64) (*UniqueAsset, error)
}

// PaymentLedger keeps balances of the payment asset used by escrows
type PaymentLedger interface {
	Deposit(ctx context.Context, to uuid.UUID, amount decimal.Decimal) error
	Transfer(ctx context.Context, from, to uuid.UUID, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, account uuid.UUID) (decimal.Decimal, error)
}

// Ledger errors
var (
	ErrInsufficientBalance = shared.ErrInsufficientBalance
	ErrInvalidAmount       = shared.NewValidationError("INVALID_AMOUNT", "Amount must be positive")
	ErrAssetNotFound       = shared.NewNotFoundError("ASSET_NOT_FOUND", "Unique asset not found")
)

// ValidateAmount rejects zero and negative fungible amounts
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidatePayment rejects zero and negative payment amounts
func ValidatePayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
