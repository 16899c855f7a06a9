package escrow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockbox/internal/bank"
	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
	"github.com/roach88/lockbox/internal/testutil"
)

const (
	owner    = ledger.Identity("owner")
	sender   = ledger.Identity("alice")
	receiver = ledger.Identity("bob")
	oracle   = ledger.Identity("oracle")
)

type fixture struct {
	store *store.Store
	bank  *bank.Bank
	ticks *testutil.ManualTick
	m     *Machine
}

// newFixture builds a machine over a fresh in-memory store with the
// sender funded and the clock at tick 1000.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	b := bank.New(s)
	require.NoError(t, b.Deposit(context.Background(), sender, 1000))

	ticks := testutil.NewManualTick(1000)
	m := New(s, b, ticks, owner, WithTraceGenerator(testutil.NewFixedTraceGenerator()))

	return &fixture{store: s, bank: b, ticks: ticks, m: m}
}

func (f *fixture) createDefault(t *testing.T) uint64 {
	t.Helper()
	id, err := f.m.CreatePayment(context.Background(), sender, CreateParams{
		Recipient:     receiver,
		Amount:        100,
		LockDuration:  10,
		ConditionKey:  "temp",
		RequiredValue: 50,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) authorizeAndReport(t *testing.T, key string, value uint64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.m.AddAuthorizedReporter(ctx, owner, oracle))
	require.NoError(t, f.m.ReportValue(ctx, oracle, key, value))
}

func (f *fixture) balance(t *testing.T, id ledger.Identity) uint64 {
	t.Helper()
	balance, err := f.bank.Balance(context.Background(), id)
	require.NoError(t, err)
	return balance
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.createDefault(t)
	assert.Equal(t, uint64(0), id)

	rec, err := f.m.PaymentStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sender, rec.Sender)
	assert.Equal(t, receiver, rec.Recipient)
	assert.Equal(t, uint64(100), rec.LockedAmount)
	assert.Equal(t, uint64(1010), rec.ReleaseTick, "creation tick 1000 + duration 10")
	assert.Equal(t, "temp", rec.ConditionKey)
	assert.Equal(t, uint64(50), rec.RequiredValue)
	assert.False(t, rec.Fulfilled)
	assert.False(t, rec.Canceled)

	// Deposit moved into the vault.
	assert.Equal(t, uint64(900), f.balance(t, sender))
	assert.Equal(t, uint64(100), f.balance(t, ledger.Vault))
}

func TestCreatePayment_NonceStrictlyIncrements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createDefault(t)
	second := f.createDefault(t)
	assert.Equal(t, first+1, second)

	nonce, err := f.m.PaymentNonce(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), nonce, "nonce is the next id to assign")

	// Ids are never reused, even after cancellation.
	require.NoError(t, f.m.CancelPayment(ctx, sender, second))
	third := f.createDefault(t)
	assert.Equal(t, second+1, third)
}

func TestCreatePayment_ValidationOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		params CreateParams
		kind   ledger.Kind
	}{
		{
			name:   "amount below minimum",
			params: CreateParams{Recipient: receiver, Amount: 0, LockDuration: 10, ConditionKey: "temp"},
			kind:   ledger.KindInvalidAmount,
		},
		{
			name:   "amount above maximum",
			params: CreateParams{Recipient: receiver, Amount: 2_000_000_000, LockDuration: 10, ConditionKey: "temp"},
			kind:   ledger.KindInvalidAmount,
		},
		{
			name:   "zero lock duration",
			params: CreateParams{Recipient: receiver, Amount: 100, LockDuration: 0, ConditionKey: "temp"},
			kind:   ledger.KindInvalidLockDuration,
		},
		{
			name:   "empty condition key",
			params: CreateParams{Recipient: receiver, Amount: 100, LockDuration: 10, ConditionKey: ""},
			kind:   ledger.KindInvalidFeedKey,
		},
		{
			name:   "self transfer",
			params: CreateParams{Recipient: sender, Amount: 100, LockDuration: 10, ConditionKey: "temp"},
			kind:   ledger.KindSelfTransfer,
		},
		{
			name:   "vault recipient",
			params: CreateParams{Recipient: ledger.Vault, Amount: 100, LockDuration: 10, ConditionKey: "temp"},
			kind:   ledger.KindInvalidPrincipal,
		},
		{
			name:   "empty recipient",
			params: CreateParams{Recipient: "", Amount: 100, LockDuration: 10, ConditionKey: "temp"},
			kind:   ledger.KindInvalidPrincipal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.m.CreatePayment(ctx, sender, tc.params)
			assert.True(t, ledger.IsKind(err, tc.kind), "want %s, got %v", tc.kind, err)
		})
	}

	// No validation failure moved any value.
	assert.Equal(t, uint64(1000), f.balance(t, sender))

	nonce, err := f.m.PaymentNonce(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce, "failed creations never consume ids")
}

func TestCreatePayment_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.m.CreatePayment(ctx, sender, CreateParams{
		Recipient:    receiver,
		Amount:       5000, // more than alice holds
		LockDuration: 10,
		ConditionKey: "temp",
	})
	assert.True(t, ledger.IsKind(err, ledger.KindTransferFailed), "got %v", err)

	assert.Equal(t, uint64(1000), f.balance(t, sender))
	nonce, err := f.m.PaymentNonce(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), nonce)
}

func TestCreatePayment_CustomLimits(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	b := bank.New(s)
	require.NoError(t, b.Deposit(context.Background(), sender, 1000))

	m := New(s, b, testutil.NewManualTick(0), owner,
		WithLimits(ledger.Limits{MinAmount: 10, MaxAmount: 20, MaxLockDuration: 5}))

	_, err = m.CreatePayment(context.Background(), sender, CreateParams{
		Recipient: receiver, Amount: 21, LockDuration: 1, ConditionKey: "k",
	})
	assert.True(t, ledger.IsKind(err, ledger.KindInvalidAmount))

	_, err = m.CreatePayment(context.Background(), sender, CreateParams{
		Recipient: receiver, Amount: 15, LockDuration: 6, ConditionKey: "k",
	})
	assert.True(t, ledger.IsKind(err, ledger.KindInvalidLockDuration))

	_, err = m.CreatePayment(context.Background(), sender, CreateParams{
		Recipient: receiver, Amount: 15, LockDuration: 5, ConditionKey: "k",
	})
	assert.NoError(t, err)
}

func TestReportValue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.m.AddAuthorizedReporter(ctx, owner, oracle))

	f.ticks.Set(1011)
	require.NoError(t, f.m.ReportValue(ctx, oracle, "temp", 60))

	entry, ok, err := f.m.OracleValue(ctx, "temp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(60), entry.Value)
	assert.Equal(t, uint64(1011), entry.UpdatedTick)

	// Later report always wins, even with a lower value at the same tick.
	require.NoError(t, f.m.ReportValue(ctx, oracle, "temp", 30))
	entry, ok, err = f.m.OracleValue(ctx, "temp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(30), entry.Value)
}

func TestReportValue_UnauthorizedLeavesFeedUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.authorizeAndReport(t, "temp", 60)

	err := f.m.ReportValue(ctx, "mallory", "temp", 999)
	assert.True(t, ledger.IsKind(err, ledger.KindUnauthorized), "got %v", err)

	entry, ok, err := f.m.OracleValue(ctx, "temp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ledger.FeedEntry{Key: "temp", Value: 60, UpdatedTick: 1000}, entry,
		"feed entry byte-for-byte unchanged")
}

func TestReportValue_InvalidKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.AddAuthorizedReporter(ctx, owner, oracle))

	err := f.m.ReportValue(ctx, oracle, "", 1)
	assert.True(t, ledger.IsKind(err, ledger.KindInvalidFeedKey))
}

func TestAddAuthorizedReporter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authorized, err := f.m.OracleAuthorized(ctx, oracle)
	require.NoError(t, err)
	assert.False(t, authorized, "absent entry defaults to false")

	require.NoError(t, f.m.AddAuthorizedReporter(ctx, owner, oracle))
	require.NoError(t, f.m.AddAuthorizedReporter(ctx, owner, oracle), "idempotent")

	authorized, err = f.m.OracleAuthorized(ctx, oracle)
	require.NoError(t, err)
	assert.True(t, authorized)
}

func TestAddAuthorizedReporter_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.m.AddAuthorizedReporter(ctx, "mallory", oracle)
	assert.True(t, ledger.IsKind(err, ledger.KindUnauthorized))

	authorized, err := f.m.OracleAuthorized(ctx, oracle)
	require.NoError(t, err)
	assert.False(t, authorized, "registry unchanged after unauthorized call")
}

func TestAddAuthorizedReporter_InvalidPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.m.AddAuthorizedReporter(ctx, owner, ledger.Vault)
	assert.True(t, ledger.IsKind(err, ledger.KindInvalidPrincipal),
		"contract-internal identity rejected")

	err = f.m.AddAuthorizedReporter(ctx, owner, "")
	assert.True(t, ledger.IsKind(err, ledger.KindInvalidPrincipal))
}

func TestAudit_TrailRecordsTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.createDefault(t)
	f.authorizeAndReport(t, "temp", 60)
	f.ticks.Set(1010)
	require.NoError(t, f.m.ClaimPayment(ctx, receiver, id))

	transitions, err := f.store.ListTransitions(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 4)

	ops := []ledger.Op{transitions[0].Op, transitions[1].Op, transitions[2].Op, transitions[3].Op}
	assert.Equal(t, []ledger.Op{ledger.OpCreate, ledger.OpAuthorize, ledger.OpReport, ledger.OpClaim}, ops)

	checked, err := f.store.VerifyTransitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, checked, "every audit record verifies by recomputation")
}

func TestAudit_LargeDetailValuesSurviveVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A required value above 2^53 must round-trip through the stored
	// detail without losing precision, or the recomputed ID diverges.
	_, err := f.m.CreatePayment(ctx, sender, CreateParams{
		Recipient:     receiver,
		Amount:        100,
		LockDuration:  10,
		ConditionKey:  "temp",
		RequiredValue: (1 << 60) + 1,
	})
	require.NoError(t, err)

	transitions, err := f.store.ListTransitions(ctx)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, uint64(1<<60)+1, transitions[0].Detail["required_value"])

	checked, err := f.store.VerifyTransitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
}
