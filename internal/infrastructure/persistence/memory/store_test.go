package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/identity"
	"github.com/supplytrace/backend/internal/domain/ledger"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shared/valueobject"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func newTestShipment(t *testing.T, id uint64, now time.Time) *shipment.Shipment {
	t.Helper()
	sh, err := shipment.NewShipment(id, shipment.NewShipmentParams{
		Supplier:        uuid.New(),
		Manufacturer:    uuid.New(),
		Destination:     valueobject.MustNewCoordinates(0, 0),
		RadiusMeters:    1000,
		MaterialID:      7,
		Quantity:        3,
		ExpectedArrival: now.Add(2 * time.Hour),
	}, now)
	require.NoError(t, err)
	return sh
}

func TestStore_RollbackDiscardsChangesAndEvents(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	store := NewStore(WithPublisher(pub))
	now := time.Now()
	boom := errors.New("boom")

	err := store.Execute(ctx, func(tx *Tx) error {
		sh := newTestShipment(t, 1, now)
		require.NoError(t, tx.ShipmentRepo().Create(ctx, sh))
		require.NoError(t, tx.Events().Record(ctx, sh.PullDomainEvents()...))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pub.events)

	err = store.Execute(ctx, func(tx *Tx) error {
		_, err := tx.ShipmentRepo().FindByID(ctx, 1)
		return err
	})
	assert.ErrorIs(t, err, shipment.ErrShipmentNotFound)
}

func TestStore_CommitPublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := &capturePublisher{}
	store := NewStore(WithPublisher(pub))

	err := store.Execute(ctx, func(tx *Tx) error {
		sh := newTestShipment(t, 1, time.Now())
		if err := tx.ShipmentRepo().Create(ctx, sh); err != nil {
			return err
		}
		return tx.Events().Record(ctx, sh.PullDomainEvents()...)
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, shipment.EventTypeShipmentCreated, pub.events[0].EventType())
}

func TestStore_PanicReleasesLockAndDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	assert.Panics(t, func() {
		_ = store.Execute(ctx, func(tx *Tx) error {
			require.NoError(t, tx.ShipmentRepo().Create(ctx, newTestShipment(t, 1, time.Now())))
			panic("handler bug")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- store.Execute(ctx, func(tx *Tx) error {
			_, err := tx.ShipmentRepo().FindByID(ctx, 1)
			return err
		})
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, shipment.ErrShipmentNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("store still locked after a panicking transaction")
	}
}

func TestStore_SequenceRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_ = store.Execute(ctx, func(tx *Tx) error {
		_, _ = tx.Sequences().Next(ctx, "shipment")
		return errors.New("abort")
	})

	var id uint64
	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.Sequences().Next(ctx, "shipment")
		return err
	}))
	assert.Equal(t, uint64(1), id)
}

func TestShipmentRepo_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		return tx.ShipmentRepo().Create(ctx, newTestShipment(t, 1, now))
	}))

	err := store.Execute(ctx, func(tx *Tx) error {
		first, err := tx.ShipmentRepo().FindByID(ctx, 1)
		require.NoError(t, err)
		second, err := tx.ShipmentRepo().FindByID(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, first.StartDelivery(now))
		require.NoError(t, tx.ShipmentRepo().Update(ctx, first))
		assert.Equal(t, 2, first.Version)

		require.NoError(t, second.StartDelivery(now))
		return tx.ShipmentRepo().Update(ctx, second)
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestShipmentRepo_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Now()

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		for id := uint64(1); id <= 5; id++ {
			sh := newTestShipment(t, id, now)
			if id%2 == 0 {
				require.NoError(t, sh.StartDelivery(now))
			}
			if err := tx.ShipmentRepo().Create(ctx, sh); err != nil {
				return err
			}
		}
		return nil
	}))

	inTransit := shipment.StatusInTransit
	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		items, total, err := tx.ShipmentRepo().List(ctx, shipment.Filter{Status: &inTransit, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, items, 2)
		assert.Equal(t, uint64(2), items[0].ID)
		assert.Equal(t, uint64(4), items[1].ID)

		items, total, err = tx.ShipmentRepo().List(ctx, shipment.Filter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, items, 2)
		assert.Equal(t, uint64(3), items[0].ID)
		return nil
	}))
}

func TestPollSet_ListAscending(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		for _, id := range []uint64{9, 3, 5, 3} {
			require.NoError(t, tx.PollSet().Add(ctx, id))
		}
		require.NoError(t, tx.PollSet().Remove(ctx, 5))
		require.NoError(t, tx.PollSet().Remove(ctx, 42))

		ids, err := tx.PollSet().List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint64{3, 9}, ids)

		ok, err := tx.PollSet().Contains(ctx, 9)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	}))
}

func TestRequestRepo_TakeConsumesOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		require.NoError(t, tx.RequestRepo().Create(ctx, &shipment.VerificationRequest{RequestID: "r1", ShipmentID: 4}))
		exists, err := tx.RequestRepo().ExistsForShipment(ctx, 4)
		require.NoError(t, err)
		assert.True(t, exists)

		req, err := tx.RequestRepo().Take(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, uint64(4), req.ShipmentID)

		_, err = tx.RequestRepo().Take(ctx, "r1")
		assert.ErrorIs(t, err, shipment.ErrRequestNotFound)
		return nil
	}))
}

func TestAssetLedger_TransferRequiresBalance(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice, bob := uuid.New(), uuid.New()

	err := store.Execute(ctx, func(tx *Tx) error {
		require.NoError(t, tx.Ledger().Mint(ctx, alice, 1, 10))
		require.NoError(t, tx.Ledger().Transfer(ctx, alice, bob, 1, 4))

		balance, err := tx.Ledger().BalanceOf(ctx, bob, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(4), balance)

		return tx.Ledger().Transfer(ctx, alice, bob, 1, 7)
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestPaymentLedger_DepositAndTransfer(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		require.NoError(t, tx.PaymentLedger().Deposit(ctx, alice, decimal.NewFromFloat(10.5)))
		require.NoError(t, tx.PaymentLedger().Transfer(ctx, alice, bob, decimal.NewFromInt(3)))

		balance, err := tx.PaymentLedger().BalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromFloat(7.5)))

		err = tx.PaymentLedger().Transfer(ctx, bob, alice, decimal.NewFromInt(4))
		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
		return nil
	}))
}

func TestUniqueAssets_SequentialIDs(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := uuid.New()

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		first, err := tx.UniqueAssets().MintUnique(ctx, owner, "a")
		require.NoError(t, err)
		second, err := tx.UniqueAssets().MintUnique(ctx, owner, "b")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), first)
		assert.Equal(t, uint64(2), second)

		asset, err := tx.UniqueAssets().FindUnique(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, "b", asset.Descriptor)
		assert.Equal(t, owner, asset.Owner)
		return nil
	}))
}

func TestStore_HasRoleReadsCommittedGrants(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	account := uuid.New()

	ok, err := store.HasRole(ctx, identity.RoleSupplier, account)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		return tx.RoleGrants().Grant(ctx, identity.RoleGrant{Role: identity.RoleSupplier, Account: account})
	}))

	ok, err = store.HasRole(ctx, identity.RoleSupplier, account)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Execute(ctx, func(tx *Tx) error {
		return tx.RoleGrants().Revoke(ctx, identity.RoleSupplier, account)
	}))
	ok, err = store.HasRole(ctx, identity.RoleSupplier, account)
	require.NoError(t, err)
	assert.False(t, ok)
}
