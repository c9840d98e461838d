package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	quantity := NewInvalidInputError("INVALID_QUANTITY", "Quantity must be positive")
	party := NewInvalidInputError("INVALID_PARTY", "Manufacturer account is required")

	t.Run("family sentinel matches every reason", func(t *testing.T) {
		assert.ErrorIs(t, quantity, ErrInvalidInput)
		assert.ErrorIs(t, party, ErrInvalidInput)
	})

	t.Run("narrow sentinels stay apart", func(t *testing.T) {
		assert.NotErrorIs(t, quantity, party)
		assert.NotErrorIs(t, party, quantity)
		assert.NotErrorIs(t, ErrInvalidInput, quantity)
	})

	t.Run("message and wrapping keep the reason", func(t *testing.T) {
		err := fmt.Errorf("create: %w", quantity.WithMessage("quantity 0 is not positive"))
		assert.ErrorIs(t, err, quantity)
		assert.NotErrorIs(t, err, party)

		var de *DomainError
		assert.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_QUANTITY", de.Reason)
		assert.Equal(t, KindValidation, de.Kind)
	})

	t.Run("codes still decide", func(t *testing.T) {
		assert.NotErrorIs(t, quantity, ErrInvalidState)
		assert.ErrorIs(t, ErrNotFound.WithMessage("gone"), ErrNotFound)
	})
}
