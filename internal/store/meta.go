package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/lockbox/internal/ledger"
)

// Meta keys. payment_nonce and current_tick default to 0 when absent;
// owner has no default and must be set by Initialize.
const (
	metaPaymentNonce = "payment_nonce"
	metaOwner        = "owner"
	metaCurrentTick  = "current_tick"
)

// execer covers both *sql.DB and *sql.Tx so meta helpers can run inside
// a larger transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func metaUint64(ctx context.Context, q execer, key string) (uint64, error) {
	row := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key)
	var raw string
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("meta %q holds %q: %w", key, raw, err)
	}
	return v, nil
}

func setMetaUint64(ctx context.Context, q execer, key string, v uint64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, strconv.FormatUint(v, 10))
	return err
}

// Initialize records the fixed contract-owner identity. The owner is set
// once at deployment; re-initializing with a different owner is refused.
func (s *Store) Initialize(ctx context.Context, owner ledger.Identity) error {
	existing, err := s.Owner(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		if existing == owner {
			return nil
		}
		return fmt.Errorf("store already initialized with owner %q", existing)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)`, metaOwner, string(owner))
	if err != nil {
		return fmt.Errorf("initialize owner: %w", err)
	}
	return nil
}

// Owner returns the fixed contract-owner identity.
// Returns ErrNotFound if the store was never initialized.
func (s *Store) Owner(ctx context.Context) (ledger.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaOwner)
	var raw string
	err := row.Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read owner: %w", err)
	}
	return ledger.Identity(raw), nil
}

// PaymentNonce returns the current payment counter value: the id the next
// successful creation will receive.
func (s *Store) PaymentNonce(ctx context.Context) (uint64, error) {
	return metaUint64(ctx, s.db, metaPaymentNonce)
}

// CurrentTick returns the host-supplied logical clock value.
func (s *Store) CurrentTick(ctx context.Context) (uint64, error) {
	return metaUint64(ctx, s.db, metaCurrentTick)
}

// AdvanceTick moves the logical clock forward to the given value.
// The clock is monotonically non-decreasing; moving it backward is refused.
func (s *Store) AdvanceTick(ctx context.Context, to uint64) error {
	current, err := s.CurrentTick(ctx)
	if err != nil {
		return err
	}
	if to < current {
		return fmt.Errorf("tick may not regress: current %d, requested %d", current, to)
	}
	return setMetaUint64(ctx, s.db, metaCurrentTick, to)
}
