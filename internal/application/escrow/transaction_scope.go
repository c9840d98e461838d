package escrow

import (
	"context"

	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to escrow state.
type TransactionScope interface {
	// Execute runs fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the escrow repositories within a transaction.
// ShipmentStatus is the only view the escrow has of the registry.
type TransactionalRepositories interface {
	EscrowRepo() escrow.Repository
	PaymentLedger() ledger.PaymentLedger
	ShipmentStatus() escrow.ShipmentStatusReader
	Events() shared.EventRecorder
}
