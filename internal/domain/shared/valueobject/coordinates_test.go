package valueobject

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoordinates(t *testing.T) {
	t.Run("accepts the full valid range", func(t *testing.T) {
		c, err := NewCoordinates(-90_000_000, 180_000_000)
		require.NoError(t, err)
		assert.Equal(t, int64(-90_000_000), c.Lat())
		assert.Equal(t, int64(180_000_000), c.Long())
	})

	t.Run("rejects latitude out of range", func(t *testing.T) {
		_, err := NewCoordinates(90_000_001, 0)
		assert.Error(t, err)
	})

	t.Run("rejects longitude out of range", func(t *testing.T) {
		_, err := NewCoordinates(0, -180_000_001)
		assert.Error(t, err)
	})
}

func TestCoordinates_DistanceSquared(t *testing.T) {
	origin := MustNewCoordinates(0, 0)

	assert.Equal(t, int64(0), origin.DistanceSquared(big.NewInt(0), big.NewInt(0)).Int64())
	assert.Equal(t, int64(8_000_000), origin.DistanceSquared(big.NewInt(2000), big.NewInt(2000)).Int64())

	t.Run("does not overflow on extreme deltas", func(t *testing.T) {
		far := new(big.Int).Lsh(big.NewInt(1), 200)
		d := MustNewCoordinates(-90_000_000, 0).DistanceSquared(far, big.NewInt(0))
		assert.True(t, d.Sign() > 0)
		assert.Greater(t, d.BitLen(), 400)
	})
}

func TestCoordinates_String(t *testing.T) {
	assert.Equal(t, "(48.858370, -2.294481)", MustNewCoordinates(48_858_370, -2_294_481).String())
}
