package ledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_Valid(t *testing.T) {
	assert.True(t, Identity("alice").Valid())
	assert.True(t, Identity("vault:escrow").Valid())

	assert.False(t, Identity("").Valid(), "empty identity is malformed")
	assert.False(t, Identity(strings.Repeat("a", MaxIdentityLen+1)).Valid())
	assert.True(t, Identity(strings.Repeat("a", MaxIdentityLen)).Valid(), "limit is inclusive")
	assert.False(t, Identity("\xff\xfe").Valid(), "invalid UTF-8 is malformed")
}

func TestIdentity_WellFormedExternal(t *testing.T) {
	assert.True(t, Identity("alice").WellFormedExternal())

	// Reserved namespace identities are valid but never external.
	assert.True(t, Vault.Valid())
	assert.False(t, Vault.WellFormedExternal())
	assert.False(t, Identity("vault:other").WellFormedExternal())
}

func TestValidFeedKey(t *testing.T) {
	assert.True(t, ValidFeedKey("temp"))
	assert.True(t, ValidFeedKey(strings.Repeat("k", MaxFeedKeyLen)))

	assert.False(t, ValidFeedKey(""))
	assert.False(t, ValidFeedKey(strings.Repeat("k", MaxFeedKeyLen+1)))
}

func TestPaymentRecord_Terminal(t *testing.T) {
	rec := PaymentRecord{ID: 1}
	assert.False(t, rec.Terminal(), "pending record is not terminal")

	rec.Fulfilled = true
	assert.True(t, rec.Terminal())

	rec = PaymentRecord{ID: 2, Canceled: true}
	assert.True(t, rec.Terminal())
}

func TestDefaultLimits(t *testing.T) {
	limits := DefaultLimits()
	assert.Equal(t, uint64(1), limits.MinAmount)
	assert.Greater(t, limits.MaxAmount, limits.MinAmount)
	assert.Greater(t, limits.MaxLockDuration, uint64(0))
}
