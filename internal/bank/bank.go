// Package bank implements the atomic value-transfer collaborator over the
// shared SQLite store. A transfer moves a fungible balance between two
// accounts in a single transaction: it either fully succeeds or fully
// fails with no partial effect, which is the only property the escrow
// core relies on.
package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
)

// ErrInsufficientFunds is returned when the source account cannot cover
// the transfer amount.
var ErrInsufficientFunds = errors.New("bank: insufficient funds")

// Bank holds account balances in the accounts table of the escrow store.
type Bank struct {
	db *sql.DB
}

// New creates a Bank over the store's database.
func New(s *store.Store) *Bank {
	return &Bank{db: s.DB()}
}

// Deposit credits an account, creating it if absent. Operator-facing:
// this is how external value enters the system.
func (b *Bank) Deposit(ctx context.Context, id ledger.Identity, amount uint64) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO accounts (identity, balance)
		VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET balance = balance + excluded.balance
	`, string(id), int64(amount))
	if err != nil {
		return fmt.Errorf("deposit to %q: %w", id, err)
	}
	return nil
}

// Balance returns the account balance. Absent accounts hold zero.
func (b *Bank) Balance(ctx context.Context, id ledger.Identity) (uint64, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE identity = ?`, string(id))

	var balance int64
	err := row.Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %q: %w", id, err)
	}
	return uint64(balance), nil
}

// Transfer moves amount from one account to another as a single
// transaction. Fails with ErrInsufficientFunds if the source cannot cover
// the amount; on any failure neither balance changes.
func (b *Bank) Transfer(ctx context.Context, from, to ledger.Identity, amount uint64) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - ?
		WHERE identity = ? AND balance >= ?
	`, int64(amount), string(from), int64(amount))
	if err != nil {
		return fmt.Errorf("transfer: debit %q: %w", from, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transfer: debit rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (identity, balance)
		VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET balance = balance + excluded.balance
	`, string(to), int64(amount))
	if err != nil {
		return fmt.Errorf("transfer: credit %q: %w", to, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer: commit: %w", err)
	}

	return nil
}
