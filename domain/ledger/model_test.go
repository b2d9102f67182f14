package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"dtx/core/id"
)

func TestInsufficientFundsError_Error(t *testing.T) {
	accID := id.New()
	err := &InsufficientFundsError{
		AccountID: accID,
		Available: decimal.NewFromInt(10),
		Requested: decimal.NewFromInt(50),
	}
	assert.Contains(t, err.Error(), accID.String())
}
