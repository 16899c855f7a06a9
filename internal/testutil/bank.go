package testutil

import (
	"context"
	"errors"

	"github.com/roach88/lockbox/internal/ledger"
)

// ErrBankDown is the failure FailingBank injects.
var ErrBankDown = errors.New("testutil: bank unavailable")

// FailingBank wraps a real bank and fails the next FailNext transfers.
// Used to exercise the rollback paths: a claim or cancel whose transfer
// fails must leave the record unmarked, and a create whose record write
// fails must refund the deposit.
type FailingBank struct {
	Inner interface {
		Transfer(ctx context.Context, from, to ledger.Identity, amount uint64) error
	}
	FailNext int
}

// Transfer fails while FailNext is positive, decrementing it each time;
// otherwise delegates to the wrapped bank.
func (b *FailingBank) Transfer(ctx context.Context, from, to ledger.Identity, amount uint64) error {
	if b.FailNext > 0 {
		b.FailNext--
		return ErrBankDown
	}
	return b.Inner.Transfer(ctx, from, to, amount)
}
