package shipment

import (
	"context"

	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

// TransactionScope provides transactional access to the registry's state.
// Every repository returned inside Execute shares one transaction, so custody
// moves, status changes, poll bookkeeping and recorded events commit or roll
// back together.
type TransactionScope interface {
	// Execute runs fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the registry repositories within a transaction.
type TransactionalRepositories interface {
	// ShipmentRepo returns the shipment repository
	ShipmentRepo() shipment.Repository
	// PollSet returns the set of shipments in transit
	PollSet() shipment.ActivePollSet
	// RequestRepo returns the outstanding verification requests
	RequestRepo() shipment.VerificationRequestRepository
	// Ledger returns the raw material ledger
	Ledger() ledger.AssetLedger
	// Sequences returns the id allocator
	Sequences() shared.SequenceGenerator
	// Events returns the recorder for domain events
	Events() shared.EventRecorder
}
