package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
)

// TraceTokenGenerator produces correlation tokens for audit records.
// Implemented by UUIDv7Generator (production) and testutil.FixedTraceGenerator
// (tests, for deterministic golden traces).
type TraceTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 trace tokens.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Machine is the escrow state machine. It orchestrates the payment
// ledger, the two oracle registries, and the external bank, and is the
// only place transition rules are enforced.
//
// Execution model: strictly serialized. The mutex guarantees each
// operation runs to completion before the next observes or mutates
// shared state, with no interleaving of partial effects.
//
// INVARIANTS:
//   - Every operation validates all preconditions before any mutation.
//   - A single call touches at most one payment record and one feed entry.
//   - fulfilled and canceled are never both set; either is terminal.
//   - The payment counter increments by exactly 1 per successful create
//     and ids are never reused.
type Machine struct {
	mu sync.Mutex

	store    *store.Store
	bank     Bank
	ticks    TickSource
	owner    ledger.Identity
	limits   ledger.Limits
	seq      *Sequence
	traceGen TraceTokenGenerator
}

// Option configures a Machine.
type Option func(*Machine)

// WithLimits overrides the default payment creation bounds.
func WithLimits(limits ledger.Limits) Option {
	return func(m *Machine) {
		m.limits = limits
	}
}

// WithTraceGenerator overrides the trace token generator.
// Tests use a fixed generator for deterministic golden traces.
func WithTraceGenerator(gen TraceTokenGenerator) Option {
	return func(m *Machine) {
		m.traceGen = gen
	}
}

// WithSequence overrides the audit sequence, resuming from a persisted
// position when reopening an existing store.
func WithSequence(seq *Sequence) Option {
	return func(m *Machine) {
		m.seq = seq
	}
}

// New creates a Machine over the given collaborators. owner is the fixed
// contract-owner identity set at deployment; it alone may authorize
// oracle reporters.
func New(s *store.Store, bank Bank, ticks TickSource, owner ledger.Identity, opts ...Option) *Machine {
	m := &Machine{
		store:    s,
		bank:     bank,
		ticks:    ticks,
		owner:    owner,
		limits:   ledger.DefaultLimits(),
		seq:      NewSequence(),
		traceGen: UUIDv7Generator{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Owner returns the fixed contract-owner identity.
func (m *Machine) Owner() ledger.Identity {
	return m.owner
}

// Limits returns the active payment creation bounds.
func (m *Machine) Limits() ledger.Limits {
	return m.limits
}

// CreateParams carries the caller-supplied inputs to CreatePayment.
type CreateParams struct {
	Recipient     ledger.Identity
	Amount        uint64
	LockDuration  uint64
	ConditionKey  string
	RequiredValue uint64
}

// CreatePayment locks amount from caller into escrow and records a new
// pending payment. Returns the assigned payment id.
//
// Validations run in order, each short-circuiting with its own error
// kind: amount bounds, lock duration bounds, condition key, recipient
// distinct from caller, recipient well-formed external. Only then is the
// deposit moved, so a validation failure mutates nothing.
//
// The condition key is not required to name an existing feed; such a
// payment is simply unclaimable until a report arrives.
func (m *Machine) CreatePayment(ctx context.Context, caller ledger.Identity, p CreateParams) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("create payment",
		"caller", caller,
		"recipient", p.Recipient,
		"amount", p.Amount,
	)

	if p.Amount < m.limits.MinAmount || p.Amount > m.limits.MaxAmount {
		return 0, ledger.NewError(ledger.KindInvalidAmount,
			"amount %d outside [%d, %d]", p.Amount, m.limits.MinAmount, m.limits.MaxAmount)
	}
	if p.LockDuration < 1 || p.LockDuration > m.limits.MaxLockDuration {
		return 0, ledger.NewError(ledger.KindInvalidLockDuration,
			"lock duration %d outside [1, %d]", p.LockDuration, m.limits.MaxLockDuration)
	}
	if !ledger.ValidFeedKey(p.ConditionKey) {
		return 0, ledger.NewError(ledger.KindInvalidFeedKey,
			"condition key must be 1-%d bytes", ledger.MaxFeedKeyLen)
	}
	if p.Recipient == caller {
		return 0, ledger.NewError(ledger.KindSelfTransfer,
			"recipient must differ from sender")
	}
	if !p.Recipient.WellFormedExternal() {
		return 0, ledger.NewError(ledger.KindInvalidPrincipal,
			"recipient %q is not a well-formed external identity", p.Recipient)
	}

	tick, err := m.ticks.Tick(ctx)
	if err != nil {
		return 0, fmt.Errorf("create payment: read tick: %w", err)
	}

	// Transfer-then-record: the deposit moves first, and the whole
	// operation fails with no state mutation if it cannot complete.
	if err := m.bank.Transfer(ctx, caller, ledger.Vault, p.Amount); err != nil {
		return 0, ledger.NewError(ledger.KindTransferFailed,
			"deposit of %d from %q failed: %v", p.Amount, caller, err)
	}

	rec := ledger.PaymentRecord{
		Sender:        caller,
		Recipient:     p.Recipient,
		LockedAmount:  p.Amount,
		ReleaseTick:   tick + p.LockDuration,
		ConditionKey:  p.ConditionKey,
		RequiredValue: p.RequiredValue,
		CreatedTick:   tick,
	}

	id, err := m.store.CreatePayment(ctx, rec)
	if err != nil {
		// Compensate the deposit so a record failure leaves no trace.
		if refundErr := m.bank.Transfer(ctx, ledger.Vault, caller, p.Amount); refundErr != nil {
			slog.Error("deposit refund failed after record failure",
				"caller", caller,
				"amount", p.Amount,
				"error", refundErr,
			)
		}
		return 0, fmt.Errorf("create payment: %w", err)
	}

	m.audit(ctx, ledger.Transition{
		Op:        ledger.OpCreate,
		Caller:    caller,
		PaymentID: &id,
		Tick:      tick,
		Detail: map[string]any{
			"payment_id":     id,
			"sender":         string(caller),
			"recipient":      string(p.Recipient),
			"amount":         p.Amount,
			"release_tick":   rec.ReleaseTick,
			"condition_key":  p.ConditionKey,
			"required_value": p.RequiredValue,
		},
	})

	slog.Info("payment created",
		"payment_id", id,
		"sender", caller,
		"recipient", p.Recipient,
		"amount", p.Amount,
		"release_tick", rec.ReleaseTick,
	)

	return id, nil
}

// ReportValue overwrites the feed entry for feedKey with value at the
// current tick. Only authorized reporters may report; absence of an
// authorization row means not authorized.
//
// Reports carry no ordering constraint: a later report always wins
// regardless of value or tick relation to the prior entry.
func (m *Machine) ReportValue(ctx context.Context, caller ledger.Identity, feedKey string, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("report value", "caller", caller, "feed", feedKey, "value", value)

	if !ledger.ValidFeedKey(feedKey) {
		return ledger.NewError(ledger.KindInvalidFeedKey,
			"feed key must be 1-%d bytes", ledger.MaxFeedKeyLen)
	}

	authorized, found, err := m.store.ReporterAuthorized(ctx, caller)
	if err != nil {
		return fmt.Errorf("report value: %w", err)
	}
	if !found || !authorized {
		return ledger.FeedError(ledger.KindUnauthorized, feedKey,
			"%q is not an authorized reporter", caller)
	}

	tick, err := m.ticks.Tick(ctx)
	if err != nil {
		return fmt.Errorf("report value: read tick: %w", err)
	}

	entry := ledger.FeedEntry{Key: feedKey, Value: value, UpdatedTick: tick}
	if err := m.store.UpsertFeed(ctx, entry); err != nil {
		return fmt.Errorf("report value: %w", err)
	}

	m.audit(ctx, ledger.Transition{
		Op:      ledger.OpReport,
		Caller:  caller,
		FeedKey: feedKey,
		Tick:    tick,
		Detail: map[string]any{
			"feed_key": feedKey,
			"value":    value,
		},
	})

	slog.Info("feed updated", "feed", feedKey, "value", value, "tick", tick)

	return nil
}

// AddAuthorizedReporter grants target the right to report feed values.
// Only the fixed contract owner may call it. Re-authorizing an already
// authorized reporter is a no-op success. There is no de-authorization:
// the trust model is one-way.
func (m *Machine) AddAuthorizedReporter(ctx context.Context, caller, target ledger.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("authorize reporter", "caller", caller, "target", target)

	if caller != m.owner {
		return ledger.NewError(ledger.KindUnauthorized,
			"%q is not the contract owner", caller)
	}
	if !target.WellFormedExternal() {
		return ledger.NewError(ledger.KindInvalidPrincipal,
			"reporter %q is not a well-formed external identity", target)
	}

	tick, err := m.ticks.Tick(ctx)
	if err != nil {
		return fmt.Errorf("authorize reporter: read tick: %w", err)
	}

	if err := m.store.SetReporter(ctx, target, true); err != nil {
		return fmt.Errorf("authorize reporter: %w", err)
	}

	m.audit(ctx, ledger.Transition{
		Op:     ledger.OpAuthorize,
		Caller: caller,
		Tick:   tick,
		Detail: map[string]any{
			"reporter": string(target),
		},
	})

	slog.Info("reporter authorized", "reporter", target)

	return nil
}

// audit appends a transition to the audit log. Audit records are
// supplementary observability: a failure to append is logged with full
// context and the operation still succeeds; the transition itself has
// already been applied.
func (m *Machine) audit(ctx context.Context, t ledger.Transition) {
	t.TraceToken = m.traceGen.Generate()
	t.Seq = m.seq.Next()

	id, err := ledger.TransitionID(t)
	if err != nil {
		slog.Error("transition id computation failed",
			"op", t.Op,
			"caller", t.Caller,
			"seq", t.Seq,
			"error", err,
		)
		return
	}
	t.ID = id

	if err := m.store.AppendTransition(ctx, t); err != nil {
		slog.Error("transition append failed",
			"op", t.Op,
			"caller", t.Caller,
			"seq", t.Seq,
			"error", err,
		)
	}
}
