package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCustodyAccounts(t *testing.T) {
	assert.NotEqual(t, ShipmentCustodyAccount, EscrowCustodyAccount)
	assert.Equal(t, uint8(5), uint8(ShipmentCustodyAccount.Version()))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.ErrorIs(t, ValidateAmount(0), ErrInvalidAmount)
	assert.ErrorIs(t, ValidateAmount(-3), ErrInvalidAmount)
}

func TestValidatePayment(t *testing.T) {
	assert.NoError(t, ValidatePayment(decimal.RequireFromString("0.01")))
	assert.ErrorIs(t, ValidatePayment(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, ValidatePayment(decimal.NewFromInt(-1)), ErrInvalidAmount)
}
