package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
)

// ClaimPayment releases a payment's locked amount to its recipient.
//
// Preconditions, checked in order with the first failure determining the
// error (later checks are not evaluated): record exists; a feed entry
// exists for the record's condition key; caller is the recipient; record
// not already fulfilled; not canceled; current tick has reached the
// release tick; feed value meets the required threshold. All checks run
// before any mutation.
//
// On success the fulfilled mark and the outbound transfer form one unit:
// if the transfer fails after the record was tentatively marked, the mark
// is rolled back and the claim fails with TRANSFER_FAILED.
func (m *Machine) ClaimPayment(ctx context.Context, caller ledger.Identity, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("claim payment", "caller", caller, "payment_id", id)

	rec, err := m.store.GetPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.PaymentError(ledger.KindRecordNotFound, id, "no such payment")
	}
	if err != nil {
		return fmt.Errorf("claim payment: %w", err)
	}

	feed, err := m.store.GetFeed(ctx, rec.ConditionKey)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.FeedError(ledger.KindFeedNotFound, rec.ConditionKey,
			"no value reported for condition feed")
	}
	if err != nil {
		return fmt.Errorf("claim payment: %w", err)
	}

	if caller != rec.Recipient {
		return ledger.PaymentError(ledger.KindUnauthorized, id,
			"%q is not the recipient", caller)
	}
	if rec.Fulfilled {
		return ledger.PaymentError(ledger.KindAlreadyFulfilled, id, "payment already fulfilled")
	}
	if rec.Canceled {
		return ledger.PaymentError(ledger.KindAlreadyCanceled, id, "payment already canceled")
	}

	tick, err := m.ticks.Tick(ctx)
	if err != nil {
		return fmt.Errorf("claim payment: read tick: %w", err)
	}
	if tick < rec.ReleaseTick {
		return ledger.PaymentError(ledger.KindStillTimeLocked, id,
			"release tick %d not reached at tick %d", rec.ReleaseTick, tick)
	}
	if feed.Value < rec.RequiredValue {
		return ledger.PaymentError(ledger.KindThresholdNotMet, id,
			"feed value %d below required %d", feed.Value, rec.RequiredValue)
	}

	// Record-then-transfer with an explicit rollback path: the platform
	// has no transaction spanning the record and the bank, so the mark is
	// undone if the transfer cannot complete.
	if err := m.store.SetFulfilled(ctx, id, true); err != nil {
		return fmt.Errorf("claim payment: mark fulfilled: %w", err)
	}
	if err := m.bank.Transfer(ctx, ledger.Vault, rec.Recipient, rec.LockedAmount); err != nil {
		if undoErr := m.store.SetFulfilled(ctx, id, false); undoErr != nil {
			slog.Error("fulfilled rollback failed",
				"payment_id", id,
				"error", undoErr,
			)
		}
		return ledger.PaymentError(ledger.KindTransferFailed, id,
			"release of %d to %q failed: %v", rec.LockedAmount, rec.Recipient, err)
	}

	m.audit(ctx, ledger.Transition{
		Op:        ledger.OpClaim,
		Caller:    caller,
		PaymentID: &id,
		Tick:      tick,
		Detail: map[string]any{
			"payment_id": id,
			"recipient":  string(rec.Recipient),
			"amount":     rec.LockedAmount,
		},
	})

	slog.Info("payment claimed",
		"payment_id", id,
		"recipient", rec.Recipient,
		"amount", rec.LockedAmount,
		"tick", tick,
	)

	return nil
}

// CancelPayment returns a payment's locked amount to its sender and marks
// the record canceled. Only the record's sender may cancel, and only
// while the record is non-terminal. Cancellation has no time or oracle
// gate.
//
// Same atomicity discipline as ClaimPayment: canceled mark and refund
// transfer form one unit with a rollback path.
func (m *Machine) CancelPayment(ctx context.Context, caller ledger.Identity, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Debug("cancel payment", "caller", caller, "payment_id", id)

	rec, err := m.store.GetPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ledger.PaymentError(ledger.KindRecordNotFound, id, "no such payment")
	}
	if err != nil {
		return fmt.Errorf("cancel payment: %w", err)
	}

	if caller != rec.Sender {
		return ledger.PaymentError(ledger.KindUnauthorized, id,
			"%q is not the sender", caller)
	}
	if rec.Fulfilled {
		return ledger.PaymentError(ledger.KindAlreadyFulfilled, id, "payment already fulfilled")
	}
	if rec.Canceled {
		return ledger.PaymentError(ledger.KindAlreadyCanceled, id, "payment already canceled")
	}

	tick, err := m.ticks.Tick(ctx)
	if err != nil {
		return fmt.Errorf("cancel payment: read tick: %w", err)
	}

	if err := m.store.SetCanceled(ctx, id, true); err != nil {
		return fmt.Errorf("cancel payment: mark canceled: %w", err)
	}
	if err := m.bank.Transfer(ctx, ledger.Vault, rec.Sender, rec.LockedAmount); err != nil {
		if undoErr := m.store.SetCanceled(ctx, id, false); undoErr != nil {
			slog.Error("canceled rollback failed",
				"payment_id", id,
				"error", undoErr,
			)
		}
		return ledger.PaymentError(ledger.KindTransferFailed, id,
			"refund of %d to %q failed: %v", rec.LockedAmount, rec.Sender, err)
	}

	m.audit(ctx, ledger.Transition{
		Op:        ledger.OpCancel,
		Caller:    caller,
		PaymentID: &id,
		Tick:      tick,
		Detail: map[string]any{
			"payment_id": id,
			"sender":     string(rec.Sender),
			"amount":     rec.LockedAmount,
		},
	})

	slog.Info("payment canceled",
		"payment_id", id,
		"sender", rec.Sender,
		"amount", rec.LockedAmount,
		"tick", tick,
	)

	return nil
}
