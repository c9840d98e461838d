package product

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplytrace/backend/internal/domain/shared"
)

func TestNewProduct(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	owner := uuid.New()
	materials := []uint64{3}

	p, err := NewProduct(11, 4, owner, materials, "unit-1", now)
	require.NoError(t, err)

	assert.Equal(t, uint64(11), p.ID)
	assert.Equal(t, uint64(4), p.ShipmentID)
	assert.Equal(t, []uint64{3}, p.MaterialIDs)
	assert.Equal(t, now, p.AssembledAt)

	materials[0] = 99
	assert.Equal(t, uint64(3), p.MaterialIDs[0], "material list is copied")

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assembled := events[0].(*ProductAssembledEvent)
	assert.Equal(t, "11", assembled.AggregateID())
	assert.Equal(t, uint64(4), assembled.ShipmentID)
}

func TestNewProduct_MaterialBounds(t *testing.T) {
	_, err := NewProduct(1, 1, uuid.New(), nil, "", time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	tooMany := make([]uint64, MaxMaterialsPerProduct+1)
	_, err = NewProduct(1, 1, uuid.New(), tooMany, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidMaterials)
	assert.NotErrorIs(t, err, ErrMetadataMismatch)

	_, err = NewProduct(1, 1, uuid.New(), make([]uint64, MaxMaterialsPerProduct), "", time.Now())
	assert.NoError(t, err)
}

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, shared.KindState, ErrShipmentAlreadyConsumed.Kind)
	assert.Equal(t, shared.KindResource, ErrInsufficientRawMaterial.Kind)
	assert.NotErrorIs(t, ErrInsufficientRawMaterial, shared.ErrInsufficientBalance)
}
