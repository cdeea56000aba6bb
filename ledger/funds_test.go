package ledger

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t)

	require.NoError(t, l.Deposit(ctx, owner, buyer, 100))
	require.NoError(t, l.Deposit(ctx, owner, buyer, 50))
	assert.Equal(t, uint64(150), l.GetFunds(buyer))
	assert.Zero(t, l.GetFunds(fan))

	assert.ErrorIs(t, l.Deposit(ctx, buyer, buyer, 1), ErrNotAuthorized)
	assert.ErrorIs(t, l.Deposit(ctx, owner, buyer, 0), ErrInvalidAmount)
	assert.ErrorIs(t, l.Deposit(ctx, owner, "", 1), ErrInvalidPrincipal)

	before := l.StateDigest()
	assert.ErrorIs(t, l.Deposit(ctx, owner, buyer, math.MaxUint64), ErrOverflow)
	assert.Equal(t, before, l.StateDigest())
}
