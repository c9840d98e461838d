package shipment

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/shared"
	"github.com/supplytrace/backend/internal/domain/shared/valueobject"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validParams() NewShipmentParams {
	return NewShipmentParams{
		Supplier:        uuid.New(),
		Manufacturer:    uuid.New(),
		Destination:     valueobject.MustNewCoordinates(0, 0),
		RadiusMeters:    1000,
		MaterialID:      1,
		Quantity:        2,
		ExpectedArrival: testNow.Add(2 * time.Hour),
	}
}

func newInTransit(t *testing.T) *Shipment {
	t.Helper()
	s, err := NewShipment(1, validParams(), testNow)
	require.NoError(t, err)
	require.NoError(t, s.StartDelivery(testNow))
	s.ClearDomainEvents()
	return s
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusCreated.CanTransitionTo(StatusInTransit))
	assert.True(t, StatusInTransit.CanTransitionTo(StatusArrived))

	assert.False(t, StatusCreated.CanTransitionTo(StatusArrived))
	assert.False(t, StatusInTransit.CanTransitionTo(StatusCreated))
	assert.False(t, StatusArrived.CanTransitionTo(StatusInTransit))
	assert.False(t, StatusArrived.CanTransitionTo(StatusArrived))
}

func TestNewShipment_RadiusBounds(t *testing.T) {
	tests := []struct {
		radius int64
		valid  bool
	}{
		{49, false},
		{50, true},
		{1000, true},
		{10000, true},
		{10001, false},
		{0, false},
		{-50, false},
	}

	for _, tt := range tests {
		p := validParams()
		p.RadiusMeters = tt.radius
		_, err := NewShipment(1, p, testNow)
		if tt.valid {
			assert.NoError(t, err, "radius %d", tt.radius)
		} else {
			assert.ErrorIs(t, err, ErrInvalidRadius, "radius %d", tt.radius)
		}
	}
}

func TestNewShipment_ETABounds(t *testing.T) {
	tests := []struct {
		name  string
		delay time.Duration
		valid bool
	}{
		{"just under one hour", time.Hour - time.Second, false},
		{"exactly one hour", time.Hour, true},
		{"one week", 7 * 24 * time.Hour, true},
		{"exactly ninety days", 90 * 24 * time.Hour, true},
		{"just over ninety days", 90*24*time.Hour + time.Second, false},
		{"in the past", -time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			p.ExpectedArrival = testNow.Add(tt.delay)
			_, err := NewShipment(1, p, testNow)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidETA)
			}
		})
	}
}

func TestNewShipment(t *testing.T) {
	p := validParams()
	s, err := NewShipment(7, p, testNow)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), s.ID)
	assert.Equal(t, StatusCreated, s.Status)
	assert.Equal(t, 0, s.PollsPerformed)
	assert.Nil(t, s.LastPolledAt)
	assert.Equal(t, p.Manufacturer, s.Manufacturer)
	assert.Equal(t, p.Quantity, s.Quantity)

	events := s.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*ShipmentCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "7", created.AggregateID())
	assert.Equal(t, p.ExpectedArrival, created.ExpectedArrival)

	t.Run("rejects zero quantity", func(t *testing.T) {
		p := validParams()
		p.Quantity = 0
		_, err := NewShipment(1, p, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.NotErrorIs(t, err, ErrInvalidParty)
	})

	t.Run("rejects missing manufacturer", func(t *testing.T) {
		p := validParams()
		p.Manufacturer = uuid.Nil
		_, err := NewShipment(1, p, testNow)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.ErrorIs(t, err, ErrInvalidParty)
		assert.NotErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestShipment_StartDelivery(t *testing.T) {
	s, err := NewShipment(1, validParams(), testNow)
	require.NoError(t, err)

	require.NoError(t, s.StartDelivery(testNow))
	assert.Equal(t, StatusInTransit, s.Status)

	assert.ErrorIs(t, s.StartDelivery(testNow), ErrShipmentNotCreated)
}

func TestShipment_IsPollable(t *testing.T) {
	eta := testNow.Add(2 * time.Hour)

	t.Run("not before expected arrival", func(t *testing.T) {
		s := newInTransit(t)
		assert.False(t, s.IsPollable(eta.Add(-time.Second)))
		assert.True(t, s.IsPollable(eta))
	})

	t.Run("respects cooldown", func(t *testing.T) {
		s := newInTransit(t)
		require.NoError(t, s.RecordPoll(eta))
		assert.False(t, s.IsPollable(eta.Add(PollCooldown-time.Second)))
		assert.True(t, s.IsPollable(eta.Add(PollCooldown)))
	})

	t.Run("stops at poll cap", func(t *testing.T) {
		s := newInTransit(t)
		at := eta
		for i := 0; i < MaxPolls; i++ {
			require.True(t, s.IsPollable(at))
			require.NoError(t, s.RecordPoll(at))
			at = at.Add(PollCooldown)
		}
		assert.Equal(t, MaxPolls, s.PollsPerformed)
		assert.False(t, s.IsPollable(at.Add(24*time.Hour)))
	})

	t.Run("only in transit", func(t *testing.T) {
		s, err := NewShipment(1, validParams(), testNow)
		require.NoError(t, err)
		assert.False(t, s.IsPollable(eta))
	})
}

func TestShipment_RevertPoll(t *testing.T) {
	eta := testNow.Add(2 * time.Hour)
	s := newInTransit(t)

	require.NoError(t, s.RecordPoll(eta))
	first := *s.LastPolledAt
	require.NoError(t, s.RecordPoll(eta.Add(PollCooldown)))

	require.NoError(t, s.RevertPoll(&first, eta.Add(PollCooldown)))
	assert.Equal(t, 1, s.PollsPerformed)
	require.NotNil(t, s.LastPolledAt)
	assert.Equal(t, first, *s.LastPolledAt)
	assert.True(t, s.IsPollable(eta.Add(PollCooldown)))

	require.NoError(t, s.RevertPoll(nil, eta.Add(PollCooldown)))
	assert.Equal(t, 0, s.PollsPerformed)
	assert.Nil(t, s.LastPolledAt)

	require.NoError(t, s.MarkArrived(ArrivalModeOracle, testNow))
	assert.ErrorIs(t, s.RevertPoll(nil, testNow), ErrShipmentNotInTransit)
}

func TestShipment_MarkArrived(t *testing.T) {
	s := newInTransit(t)

	require.NoError(t, s.MarkArrived(ArrivalModeOracle, testNow))
	assert.Equal(t, StatusArrived, s.Status)
	assert.Equal(t, ArrivalModeOracle, s.ArrivalMode)
	require.NotNil(t, s.ArrivedAt)

	events := s.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeShipmentArrived, events[0].EventType())

	assert.ErrorIs(t, s.MarkArrived(ArrivalModeAdminOverride, testNow), ErrShipmentNotInTransit)
	assert.ErrorIs(t, s.RecordPoll(testNow), ErrShipmentNotInTransit)
}

func TestShipment_CanManufacturerForceArrive(t *testing.T) {
	s := newInTransit(t)
	assert.False(t, s.CanManufacturerForceArrive(s.ExpectedArrival.Add(ForceArrivalGrace-time.Second)))
	assert.True(t, s.CanManufacturerForceArrive(s.ExpectedArrival.Add(ForceArrivalGrace)))
}

func TestShipment_WithinGeofence(t *testing.T) {
	s := newInTransit(t)

	inside, d := s.WithinGeofence(Location{Lat: big.NewInt(0), Long: big.NewInt(0)})
	assert.True(t, inside)
	assert.Equal(t, "0", d)

	inside, d = s.WithinGeofence(Location{Lat: big.NewInt(2000), Long: big.NewInt(2000)})
	assert.False(t, inside)
	assert.Equal(t, "8000000", d)

	inside, _ = s.WithinGeofence(Location{Lat: big.NewInt(600), Long: big.NewInt(800)})
	assert.True(t, inside, "distance exactly equal to radius is accepted")
}
