package escrow

import (
	"context"

	"github.com/roach88/lockbox/internal/ledger"
)

// Bank is the external value-transfer collaborator. Transfer moves a
// fungible balance between two accounts with no partial-success outcome:
// it either fully completes or fails leaving both balances untouched.
//
// The machine wraps any Transfer failure as a TRANSFER_FAILED ledger
// error; the bank itself reports plain errors.
//
// Implemented by bank.Bank (production, SQLite-backed) and
// testutil.FailingBank (tests).
type Bank interface {
	Transfer(ctx context.Context, from, to ledger.Identity, amount uint64) error
}
