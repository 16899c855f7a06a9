package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lockbox/internal/ledger"
)

// CreatePayment inserts a payment record, assigning the next counter value
// as its id, and increments the counter, all in one transaction.
//
// rec.ID is ignored; the assigned id is returned. The counter is never
// decremented and ids are never reused, including after cancellation.
func (s *Store) CreatePayment(ctx context.Context, rec ledger.PaymentRecord) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create payment: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	nonce, err := metaUint64(ctx, tx, metaPaymentNonce)
	if err != nil {
		return 0, fmt.Errorf("create payment: read nonce: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments
		(id, sender, recipient, locked_amount, release_tick, condition_key, required_value, created_tick, fulfilled, canceled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0)
	`,
		int64(nonce),
		string(rec.Sender),
		string(rec.Recipient),
		int64(rec.LockedAmount),
		int64(rec.ReleaseTick),
		rec.ConditionKey,
		int64(rec.RequiredValue),
		int64(rec.CreatedTick),
	)
	if err != nil {
		return 0, fmt.Errorf("create payment: insert: %w", err)
	}

	if err := setMetaUint64(ctx, tx, metaPaymentNonce, nonce+1); err != nil {
		return 0, fmt.Errorf("create payment: bump nonce: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create payment: commit: %w", err)
	}

	return nonce, nil
}

// GetPayment returns the payment record for id.
// Returns ErrNotFound if no record exists.
func (s *Store) GetPayment(ctx context.Context, id uint64) (ledger.PaymentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, recipient, locked_amount, release_tick, condition_key, required_value, created_tick, fulfilled, canceled
		FROM payments
		WHERE id = ?
	`, int64(id))

	var (
		rec                                       ledger.PaymentRecord
		recID, amount, release, required, created int64
		sender, recipient                         string
		fulfilled, canceled                       int
	)
	err := row.Scan(&recID, &sender, &recipient, &amount, &release, &rec.ConditionKey, &required, &created, &fulfilled, &canceled)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.PaymentRecord{}, ErrNotFound
	}
	if err != nil {
		return ledger.PaymentRecord{}, fmt.Errorf("get payment %d: %w", id, err)
	}

	rec.ID = uint64(recID)
	rec.Sender = ledger.Identity(sender)
	rec.Recipient = ledger.Identity(recipient)
	rec.LockedAmount = uint64(amount)
	rec.ReleaseTick = uint64(release)
	rec.RequiredValue = uint64(required)
	rec.CreatedTick = uint64(created)
	rec.Fulfilled = fulfilled != 0
	rec.Canceled = canceled != 0

	return rec, nil
}

// SetFulfilled sets or clears the fulfilled flag for a payment.
// Clearing exists only for the claim rollback path: if the outbound
// transfer fails after the record was tentatively marked, the mark is
// undone before the error returns.
//
// Returns ErrNotFound if no record exists.
func (s *Store) SetFulfilled(ctx context.Context, id uint64, fulfilled bool) error {
	return s.setFlag(ctx, id, "fulfilled", fulfilled)
}

// SetCanceled sets or clears the canceled flag for a payment.
// Clearing exists only for the cancel rollback path.
//
// Returns ErrNotFound if no record exists.
func (s *Store) SetCanceled(ctx context.Context, id uint64, canceled bool) error {
	return s.setFlag(ctx, id, "canceled", canceled)
}

func (s *Store) setFlag(ctx context.Context, id uint64, column string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	// column is one of two compile-time constants, never caller input.
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE payments SET %s = ? WHERE id = ?", column),
		v, int64(id),
	)
	if err != nil {
		return fmt.Errorf("set %s for payment %d: %w", column, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set %s for payment %d: rows affected: %w", column, id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
