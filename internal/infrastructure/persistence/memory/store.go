// Package memory provides an in-memory implementation of every transaction
// scope, used for tests and single-process local runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"go.uber.org/zap"
)

type balanceKey struct {
	account    uuid.UUID
	materialID uint64
}

type grantKey struct {
	role    identity.Role
	account uuid.UUID
}

type state struct {
	shipments    map[uint64]shipment.Shipment
	pollSet      map[uint64]struct{}
	requests     map[string]shipment.VerificationRequest
	products     map[uint64]product.Product
	consumptions map[uint64]product.Consumption
	escrows      map[uint64]escrow.Escrow
	balances     map[balanceKey]int64
	payments     map[uuid.UUID]decimal.Decimal
	uniqueAssets map[uint64]ledger.UniqueAsset
	grants       map[grantKey]identity.RoleGrant
	sequences    map[string]uint64
}

func newState() state {
	return state{
		shipments:    make(map[uint64]shipment.Shipment),
		pollSet:      make(map[uint64]struct{}),
		requests:     make(map[string]shipment.VerificationRequest),
		products:     make(map[uint64]product.Product),
		consumptions: make(map[uint64]product.Consumption),
		escrows:      make(map[uint64]escrow.Escrow),
		balances:     make(map[balanceKey]int64),
		payments:     make(map[uuid.UUID]decimal.Decimal),
		uniqueAssets: make(map[uint64]ledger.UniqueAsset),
		grants:       make(map[grantKey]identity.RoleGrant),
		sequences:    make(map[string]uint64),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.shipments {
		c.shipments[k] = cloneShipment(v)
	}
	for k := range s.pollSet {
		c.pollSet[k] = struct{}{}
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range s.consumptions {
		c.consumptions[k] = v
	}
	for k, v := range s.escrows {
		c.escrows[k] = cloneEscrow(v)
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.uniqueAssets {
		c.uniqueAssets[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneShipment(s shipment.Shipment) shipment.Shipment {
	s.ClearDomainEvents()
	s.LastPolledAt = clonePtr(s.LastPolledAt)
	s.ArrivedAt = clonePtr(s.ArrivedAt)
	return s
}

func cloneProduct(p product.Product) product.Product {
	p.ClearDomainEvents()
	materials := make([]uint64, len(p.MaterialIDs))
	copy(materials, p.MaterialIDs)
	p.MaterialIDs = materials
	return p
}

func cloneEscrow(e escrow.Escrow) escrow.Escrow {
	e.ClearDomainEvents()
	e.SettledAt = clonePtr(e.SettledAt)
	return e
}

// Store keeps all state in memory. Transactions are serialized: each one works
// on a private clone that replaces the committed state only when fn succeeds.
type Store struct {
	mu        sync.RWMutex
	state     state
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithPublisher delivers committed domain events to publisher
func WithPublisher(publisher shared.EventPublisher) Option {
	return func(s *Store) {
		s.publisher = publisher
	}
}

// WithLogger sets the logger used for publish failures
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates an empty in-memory store
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:  newState(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs fn inside a serialized transaction. Events recorded by fn are
// published after the state is committed; nothing is published on rollback.
func (s *Store) Execute(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.commit(fn)
	if err != nil {
		return err
	}

	if s.publisher != nil && len(tx.events) > 0 {
		if err := s.publisher.Publish(ctx, tx.events...); err != nil {
			s.logger.Error("publish committed events", zap.Int("count", len(tx.events)), zap.Error(err))
		}
	}
	return nil
}

// commit runs fn against a copy of the state under the write lock and swaps
// the copy in when fn succeeds. A panic in fn discards the copy and releases
// the lock before propagating.
func (s *Store) commit(fn func(tx *Tx) error) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return nil, err
	}
	s.state = tx.state
	return tx, nil
}

// HasRole answers role membership from committed state
func (s *Store) HasRole(_ context.Context, role identity.Role, account uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.grants[grantKey{role: role, account: account}]
	return ok, nil
}

var _ identity.AccessGate = (*Store)(nil)

// Tx is the transactional view handed to scope callbacks
type Tx struct {
	state  state
	events []shared.DomainEvent
}

// Record queues events for publication after commit
func (tx *Tx) Record(_ context.Context, events ...shared.DomainEvent) error {
	tx.events = append(tx.events, events...)
	return nil
}

// Next allocates the next value of a named sequence, starting at 1
func (tx *Tx) Next(_ context.Context, name string) (uint64, error) {
	tx.state.sequences[name]++
	return tx.state.sequences[name], nil
}

// Events returns the transaction's event recorder
func (tx *Tx) Events() shared.EventRecorder { return tx }

// Sequences returns the transaction's id allocator
func (tx *Tx) Sequences() shared.SequenceGenerator { return tx }

// ShipmentRepo returns the shipment repository
func (tx *Tx) ShipmentRepo() shipment.Repository { return shipmentRepo{tx} }

// PollSet returns the in-transit set
func (tx *Tx) PollSet() shipment.ActivePollSet { return pollSet{tx} }

// RequestRepo returns the pending verification requests
func (tx *Tx) RequestRepo() shipment.VerificationRequestRepository { return requestRepo{tx} }

// ProductRepo returns the product repository
func (tx *Tx) ProductRepo() product.Repository { return productRepo{tx} }

// ConsumptionRepo returns the shipment consumption records
func (tx *Tx) ConsumptionRepo() product.ConsumptionRepository { return consumptionRepo{tx} }

// EscrowRepo returns the escrow repository
func (tx *Tx) EscrowRepo() escrow.Repository { return escrowRepo{tx} }

// ShipmentStatus returns the read-only status view used by escrows
func (tx *Tx) ShipmentStatus() escrow.ShipmentStatusReader { return shipmentRepo{tx} }

// Ledger returns the raw material ledger
func (tx *Tx) Ledger() ledger.AssetLedger { return assetLedger{tx} }

// PaymentLedger returns the payment asset ledger
func (tx *Tx) PaymentLedger() ledger.PaymentLedger { return paymentLedger{tx} }

// UniqueAssets returns the unique asset registry
func (tx *Tx) UniqueAssets() ledger.UniqueAssetRegistry { return uniqueAssets{tx} }

// RoleGrants returns the role grant repository
func (tx *Tx) RoleGrants() identity.RoleGrantRepository { return roleGrants{tx} }
