package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"dtx/core/id"
)

func TestService_Transfer_RejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(nil, nil)

	_, err := svc.Transfer(context.Background(), id.New(), id.New(), decimal.Zero)
	assert.Error(t, err)

	_, err = svc.Transfer(context.Background(), id.New(), id.New(), decimal.NewFromInt(-5))
	assert.Error(t, err)
}
