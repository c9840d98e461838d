package shipment_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	appshipment "github.com/supplytrace/backend/internal/application/shipment"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/shipment"
	"github.com/supplytrace/backend/internal/infrastructure/persistence/memory"
)

const testMaterial uint64 = 7

type fakeDispatcher struct {
	issued []shipment.VerificationQuery
	err    error
	// onIssue runs before the query is accepted, standing in for a gateway
	// that answers while the request is still being sent
	onIssue func(q shipment.VerificationQuery) error
	// failFor rejects queries for these shipments only
	failFor map[uint64]bool
}

func (d *fakeDispatcher) IssueRequest(_ context.Context, q shipment.VerificationQuery) error {
	if d.err != nil {
		return d.err
	}
	if d.failFor[q.ShipmentID] {
		return fmt.Errorf("gateway rejected shipment %d", q.ShipmentID)
	}
	if d.onIssue != nil {
		if err := d.onIssue(q); err != nil {
			return err
		}
	}
	d.issued = append(d.issued, q)
	return nil
}

type fixture struct {
	ctx          context.Context
	store        *memory.Store
	now          time.Time
	admin        uuid.UUID
	supplier     uuid.UUID
	manufacturer uuid.UUID
	dispatcher   *fakeDispatcher
	registry     *appshipment.RegistryService
	verifier     *appshipment.VerifierService
	upkeep       *appshipment.UpkeepService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:          context.Background(),
		store:        memory.NewStore(),
		now:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		admin:        uuid.New(),
		supplier:     uuid.New(),
		manufacturer: uuid.New(),
		dispatcher:   &fakeDispatcher{},
	}

	require.NoError(t, f.store.Execute(f.ctx, func(tx *memory.Tx) error {
		grants := []identity.RoleGrant{
			{Role: identity.RoleAdmin, Account: f.admin},
			{Role: identity.RoleSupplier, Account: f.supplier},
			{Role: identity.RoleManufacturer, Account: f.manufacturer},
		}
		for _, g := range grants {
			if err := tx.RoleGrants().Grant(f.ctx, g); err != nil {
				return err
			}
		}
		return tx.Ledger().Mint(f.ctx, f.supplier, testMaterial, 100)
	}))

	clock := func() time.Time { return f.now }
	scope := memory.NewShipmentScope(f.store)
	f.registry = appshipment.NewRegistryService(scope, f.store, nil)
	f.registry.SetClock(clock)
	f.verifier = appshipment.NewVerifierService(scope, f.dispatcher, appshipment.VerifierConfig{Source: "gps", SubscriptionID: 9}, nil)
	f.verifier.SetClock(clock)
	f.upkeep = appshipment.NewUpkeepService(scope, f.verifier, nil)
	f.upkeep.SetClock(clock)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) input(quantity int64) appshipment.CreateShipmentInput {
	return appshipment.CreateShipmentInput{
		DestinationLat:  0,
		DestinationLong: 0,
		RadiusMeters:    1000,
		Manufacturer:    f.manufacturer,
		MaterialID:      testMaterial,
		Quantity:        quantity,
		ExpectedArrival: f.now.Add(2 * time.Hour),
	}
}

// inTransit creates a shipment and starts its delivery
func (f *fixture) inTransit(t *testing.T, quantity int64) uint64 {
	t.Helper()
	created, err := f.registry.CreateShipment(f.ctx, f.supplier, f.input(quantity))
	require.NoError(t, err)
	_, err = f.registry.StartDelivery(f.ctx, f.supplier, created.ID)
	require.NoError(t, err)
	return created.ID
}

func (f *fixture) balance(t *testing.T, account uuid.UUID) int64 {
	t.Helper()
	var balance int64
	require.NoError(t, f.store.Execute(f.ctx, func(tx *memory.Tx) error {
		var err error
		balance, err = tx.Ledger().BalanceOf(f.ctx, account, testMaterial)
		return err
	}))
	return balance
}

func (f *fixture) pollSet(t *testing.T) []uint64 {
	t.Helper()
	var ids []uint64
	require.NoError(t, f.store.Execute(f.ctx, func(tx *memory.Tx) error {
		var err error
		ids, err = tx.PollSet().List(f.ctx)
		return err
	}))
	return ids
}

func custodyBalance(t *testing.T, f *fixture) int64 {
	return f.balance(t, ledger.ShipmentCustodyAccount)
}
