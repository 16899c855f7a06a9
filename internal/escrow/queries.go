package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
)

// Read-only query surface. Queries never mutate state and never fail
// except with RECORD_NOT_FOUND when a requested payment id is absent.

// PaymentStatus returns a snapshot of the payment record.
func (m *Machine) PaymentStatus(ctx context.Context, id uint64) (ledger.PaymentRecord, error) {
	rec, err := m.store.GetPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.PaymentRecord{}, ledger.PaymentError(ledger.KindRecordNotFound, id, "no such payment")
	}
	if err != nil {
		return ledger.PaymentRecord{}, fmt.Errorf("payment status: %w", err)
	}
	return rec, nil
}

// IsClaimable reports whether a claim by the recipient would currently
// succeed: record pending, release tick reached, feed entry present, and
// feed value at or above the threshold.
//
// A missing record is an error, not false. Every other unmet condition,
// including a feed that has never been reported, yields false.
func (m *Machine) IsClaimable(ctx context.Context, id uint64) (bool, error) {
	rec, err := m.store.GetPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, ledger.PaymentError(ledger.KindRecordNotFound, id, "no such payment")
	}
	if err != nil {
		return false, fmt.Errorf("is claimable: %w", err)
	}

	if rec.Terminal() {
		return false, nil
	}

	tick, err := m.ticks.Tick(ctx)
	if err != nil {
		return false, fmt.Errorf("is claimable: read tick: %w", err)
	}
	if tick < rec.ReleaseTick {
		return false, nil
	}

	feed, err := m.store.GetFeed(ctx, rec.ConditionKey)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is claimable: %w", err)
	}

	return feed.Value >= rec.RequiredValue, nil
}

// OracleValue returns the latest feed entry for a key.
// ok is false when nothing has been reported for the key.
func (m *Machine) OracleValue(ctx context.Context, feedKey string) (ledger.FeedEntry, bool, error) {
	entry, err := m.store.GetFeed(ctx, feedKey)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.FeedEntry{}, false, nil
	}
	if err != nil {
		return ledger.FeedEntry{}, false, fmt.Errorf("oracle value: %w", err)
	}
	return entry, true, nil
}

// OracleAuthorized reports whether an identity may report feed values.
// Absence of an authorization entry means false.
func (m *Machine) OracleAuthorized(ctx context.Context, id ledger.Identity) (bool, error) {
	authorized, found, err := m.store.ReporterAuthorized(ctx, id)
	if err != nil {
		return false, fmt.Errorf("oracle authorization: %w", err)
	}
	return found && authorized, nil
}

// PaymentNonce returns the current payment counter: the id the next
// successful creation will receive.
func (m *Machine) PaymentNonce(ctx context.Context) (uint64, error) {
	nonce, err := m.store.PaymentNonce(ctx)
	if err != nil {
		return 0, fmt.Errorf("payment nonce: %w", err)
	}
	return nonce, nil
}
