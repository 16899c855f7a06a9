package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := PaymentError(KindAlreadyFulfilled, 7, "payment already fulfilled")
	assert.Equal(t, "ALREADY_FULFILLED: payment already fulfilled (payment=7)", err.Error())

	err = FeedError(KindFeedNotFound, "temp", "no value reported")
	assert.Equal(t, "FEED_NOT_FOUND: no value reported (feed=temp)", err.Error())

	err = NewError(KindUnauthorized, "caller %q is not the owner", "mallory")
	assert.Equal(t, `UNAUTHORIZED: caller "mallory" is not the owner`, err.Error())
}

func TestKindOf(t *testing.T) {
	err := NewError(KindInvalidAmount, "amount out of bounds")
	assert.Equal(t, KindInvalidAmount, KindOf(err))

	// Wrapped errors still resolve to their kind.
	wrapped := fmt.Errorf("create: %w", err)
	assert.Equal(t, KindInvalidAmount, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindInvalidAmount))
	assert.False(t, IsKind(wrapped, KindUnauthorized))

	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain error")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestPaymentError_CarriesID(t *testing.T) {
	err := PaymentError(KindRecordNotFound, 42, "no such payment")
	require.NotNil(t, err.PaymentID)
	assert.Equal(t, uint64(42), *err.PaymentID)
}
