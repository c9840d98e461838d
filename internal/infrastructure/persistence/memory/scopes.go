package memory

import (
	"context"

	appescrow "github.com/supplytrace/backend/internal/application/escrow"
	appidentity "github.com/supplytrace/backend/internal/application/identity"
	appledger "github.com/supplytrace/backend/internal/application/ledger"
	appproduct "github.com/supplytrace/backend/internal/application/product"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
)

// ShipmentScope adapts the store to the shipment application's transaction scope
type ShipmentScope struct{ store *Store }

// NewShipmentScope creates a ShipmentScope
func NewShipmentScope(store *Store) ShipmentScope { return ShipmentScope{store: store} }

// Execute runs fn within a store transaction
func (s ShipmentScope) Execute(ctx context.Context, fn func(repos appshipment.TransactionalRepositories) error) error {
	return s.store.Execute(ctx, func(tx *Tx) error { return fn(tx) })
}

// ProductScope adapts the store to the product application's transaction scope
type ProductScope struct{ store *Store }

// NewProductScope creates a ProductScope
func NewProductScope(store *Store) ProductScope { return ProductScope{store: store} }

// Execute runs fn within a store transaction
func (s ProductScope) Execute(ctx context.Context, fn func(repos appproduct.TransactionalRepositories) error) error {
	return s.store.Execute(ctx, func(tx *Tx) error { return fn(tx) })
}

// EscrowScope adapts the store to the escrow application's transaction scope
type EscrowScope struct{ store *Store }

// NewEscrowScope creates an EscrowScope
func NewEscrowScope(store *Store) EscrowScope { return EscrowScope{store: store} }

// Execute runs fn within a store transaction
func (s EscrowScope) Execute(ctx context.Context, fn func(repos appescrow.TransactionalRepositories) error) error {
	return s.store.Execute(ctx, func(tx *Tx) error { return fn(tx) })
}

// IdentityScope adapts the store to the identity application's transaction scope
type IdentityScope struct{ store *Store }

// NewIdentityScope creates an IdentityScope
func NewIdentityScope(store *Store) IdentityScope { return IdentityScope{store: store} }

// Execute runs fn within a store transaction
func (s IdentityScope) Execute(ctx context.Context, fn func(repos appidentity.TransactionalRepositories) error) error {
	return s.store.Execute(ctx, func(tx *Tx) error { return fn(tx) })
}

// LedgerScope adapts the store to the ledger application's transaction scope
type LedgerScope struct{ store *Store }

// NewLedgerScope creates a LedgerScope
func NewLedgerScope(store *Store) LedgerScope { return LedgerScope{store: store} }

// Execute runs fn within a store transaction
func (s LedgerScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.store.Execute(ctx, func(tx *Tx) error { return fn(tx) })
}

var (
	_ appshipment.TransactionScope = ShipmentScope{}
	_ appproduct.TransactionScope  = ProductScope{}
	_ appescrow.TransactionScope   = EscrowScope{}
	_ appidentity.TransactionScope = IdentityScope{}
	_ appledger.TransactionScope   = LedgerScope{}

	_ appshipment.TransactionalRepositories = (*Tx)(nil)
	_ appproduct.TransactionalRepositories  = (*Tx)(nil)
	_ appescrow.TransactionalRepositories   = (*Tx)(nil)
	_ appidentity.TransactionalRepositories = (*Tx)(nil)
	_ appledger.TransactionalRepositories   = (*Tx)(nil)
)
