package product

import (
	"context"

	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// TransactionScope provides transactional access to assembly state.
type TransactionScope interface {
	// Execute runs fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the assembler repositories within a transaction.
type TransactionalRepositories interface {
	ShipmentRepo() shipment.Repository
	ProductRepo() product.Repository
	ConsumptionRepo() product.ConsumptionRepository
	Ledger() ledger.AssetLedger
	UniqueAssets() ledger.UniqueAssetRegistry
	Events() shared.EventRecorder
}
