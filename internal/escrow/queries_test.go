package escrow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockbox/internal/ledger"
)

func TestPaymentStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.m.PaymentStatus(context.Background(), 7)
	assert.True(t, ledger.IsKind(err, ledger.KindRecordNotFound))
}

func TestIsClaimable_MissingRecordIsAnError(t *testing.T) {
	f := newFixture(t)

	// A missing record is a distinct error result, not false.
	_, err := f.m.IsClaimable(context.Background(), 7)
	assert.True(t, ledger.IsKind(err, ledger.KindRecordNotFound))
}

func TestIsClaimable_FalseForTerminalRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.createDefault(t)
	f.authorizeAndReport(t, "temp", 60)
	f.ticks.Set(1010)

	claimable, err := f.m.IsClaimable(ctx, id)
	require.NoError(t, err)
	require.True(t, claimable)

	require.NoError(t, f.m.ClaimPayment(ctx, receiver, id))

	claimable, err = f.m.IsClaimable(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimable, "fulfilled record is never claimable")

	canceled := f.createDefault(t)
	require.NoError(t, f.m.CancelPayment(ctx, sender, canceled))
	claimable, err = f.m.IsClaimable(ctx, canceled)
	require.NoError(t, err)
	assert.False(t, claimable, "canceled record is never claimable")
}

func TestIsClaimable_NeverMutates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.createDefault(t)
	f.authorizeAndReport(t, "temp", 60)
	f.ticks.Set(1010)

	for i := 0; i < 3; i++ {
		claimable, err := f.m.IsClaimable(ctx, id)
		require.NoError(t, err)
		assert.True(t, claimable)
	}

	rec, err := f.m.PaymentStatus(ctx, id)
	require.NoError(t, err)
	assert.False(t, rec.Terminal(), "repeated queries left the record pending")
}

func TestOracleValue_AbsentFeed(t *testing.T) {
	f := newFixture(t)

	_, ok, err := f.m.OracleValue(context.Background(), "nothing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaymentNonce_StartsAtZero(t *testing.T) {
	f := newFixture(t)

	nonce, err := f.m.PaymentNonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}
