package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/escrow"
	"github.com/supplytrace/backend/internal/domain/product"
	"github.com/supplytrace/backend/internal/domain/shipment"
)

func TestEventSerializer_UnknownType(t *testing.T) {
	s := NewEventSerializer()

	_, err := s.Deserialize("Nope", []byte(`{}`))

	assert.Error(t, err)
}

func TestRegisterAllEvents(t *testing.T) {
	s := NewRegisteredSerializer()

	assert.Equal(t, []string{
		escrow.EventTypeEscrowFunded,
		escrow.EventTypeEscrowRefunded,
		shipment.EventTypeLocationMismatch,
		escrow.EventTypePaymentReleased,
		product.EventTypeProductAssembled,
		shipment.EventTypeShipmentArrived,
		shipment.EventTypeShipmentCreated,
		shipment.EventTypeShipmentInTransit,
		shipment.EventTypeVerificationFailed,
		shipment.EventTypeVerificationRequested,
	}, s.RegisteredTypes())
}

func TestEventSerializer_DomainEventSurvivesOutbox(t *testing.T) {
	s := NewRegisteredSerializer()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	e, err := escrow.NewEscrow(9, uuid.New(), uuid.New(), decimal.RequireFromString("12.5"), now)
	require.NoError(t, err)
	original := e.GetDomainEvents()[0]

	data, err := s.Serialize(original)
	require.NoError(t, err)
	decoded, err := s.Deserialize(original.EventType(), data)
	require.NoError(t, err)

	funded, ok := decoded.(*escrow.EscrowFundedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), funded.EventID())
	assert.Equal(t, "9", funded.AggregateID())
	assert.Equal(t, uint64(9), funded.ShipmentID)
	assert.True(t, funded.Amount.Equal(decimal.RequireFromString("12.5")))
}
