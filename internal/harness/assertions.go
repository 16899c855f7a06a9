package harness

import (
	"context"
	"fmt"

	"github.com/roach88/lockbox/internal/ledger"
)

// Assertion validates one aspect of the final state.
type Assertion struct {
	// Type selects the check:
	//   - "balance": an account holds exactly Amount
	//   - "record_state": payment Payment is in State
	//   - "claimable": IsClaimable for Payment answers Claimable
	//   - "feed": feed Key holds Value, or has never been reported when
	//     Absent is set
	//   - "reporter": Identity's authorization matches Authorized
	//   - "nonce": the payment counter equals Nonce
	//   - "audit": the audit log holds Count records and verifies
	Type string `yaml:"type"`

	Identity   string  `yaml:"identity,omitempty"`
	Amount     *uint64 `yaml:"amount,omitempty"`
	Payment    *uint64 `yaml:"payment,omitempty"`
	State      string  `yaml:"state,omitempty"`
	Key        string  `yaml:"key,omitempty"`
	Value      *uint64 `yaml:"value,omitempty"`
	Absent     bool    `yaml:"absent,omitempty"`
	Claimable  *bool   `yaml:"claimable,omitempty"`
	Authorized *bool   `yaml:"authorized,omitempty"`
	Nonce      *uint64 `yaml:"nonce,omitempty"`
	Count      *int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance     = "balance"
	AssertRecordState = "record_state"
	AssertClaimable   = "claimable"
	AssertFeed        = "feed"
	AssertReporter    = "reporter"
	AssertNonce       = "nonce"
	AssertAudit       = "audit"
)

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertBalance:
		if a.Identity == "" || a.Amount == nil {
			return fmt.Errorf("assertions[%d]: balance requires identity and amount", index)
		}
	case AssertRecordState:
		if a.Payment == nil {
			return fmt.Errorf("assertions[%d]: record_state requires payment", index)
		}
		switch a.State {
		case "pending", "fulfilled", "canceled":
		default:
			return fmt.Errorf("assertions[%d]: record_state state must be pending, fulfilled, or canceled", index)
		}
	case AssertClaimable:
		if a.Payment == nil || a.Claimable == nil {
			return fmt.Errorf("assertions[%d]: claimable requires payment and claimable", index)
		}
	case AssertFeed:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: feed requires key", index)
		}
		if !a.Absent && a.Value == nil {
			return fmt.Errorf("assertions[%d]: feed requires value unless absent", index)
		}
	case AssertReporter:
		if a.Identity == "" || a.Authorized == nil {
			return fmt.Errorf("assertions[%d]: reporter requires identity and authorized", index)
		}
	case AssertNonce:
		if a.Nonce == nil {
			return fmt.Errorf("assertions[%d]: nonce requires nonce", index)
		}
	case AssertAudit:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: audit requires count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// evaluateAssertions checks every assertion against the final state and
// returns a message per failure.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := h.evaluateAssertion(ctx, &a); msg != "" {
			failures = append(failures, fmt.Sprintf("assertion[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func (h *Harness) evaluateAssertion(ctx context.Context, a *Assertion) string {
	switch a.Type {
	case AssertBalance:
		balance, err := h.bank.Balance(ctx, ledger.Identity(a.Identity))
		if err != nil {
			return fmt.Sprintf("read balance: %v", err)
		}
		if balance != *a.Amount {
			return fmt.Sprintf("%s holds %d, want %d", a.Identity, balance, *a.Amount)
		}

	case AssertRecordState:
		rec, err := h.machine.PaymentStatus(ctx, *a.Payment)
		if err != nil {
			return fmt.Sprintf("read payment %d: %v", *a.Payment, err)
		}
		state := "pending"
		switch {
		case rec.Fulfilled:
			state = "fulfilled"
		case rec.Canceled:
			state = "canceled"
		}
		if state != a.State {
			return fmt.Sprintf("payment %d is %s, want %s", *a.Payment, state, a.State)
		}

	case AssertClaimable:
		got, err := h.machine.IsClaimable(ctx, *a.Payment)
		if err != nil {
			return fmt.Sprintf("check claimable %d: %v", *a.Payment, err)
		}
		if got != *a.Claimable {
			return fmt.Sprintf("payment %d claimable=%t, want %t", *a.Payment, got, *a.Claimable)
		}

	case AssertFeed:
		entry, ok, err := h.machine.OracleValue(ctx, a.Key)
		if err != nil {
			return fmt.Sprintf("read feed %s: %v", a.Key, err)
		}
		if a.Absent {
			if ok {
				return fmt.Sprintf("feed %s holds %d, want absent", a.Key, entry.Value)
			}
			return ""
		}
		if !ok {
			return fmt.Sprintf("feed %s has never been reported, want %d", a.Key, *a.Value)
		}
		if entry.Value != *a.Value {
			return fmt.Sprintf("feed %s holds %d, want %d", a.Key, entry.Value, *a.Value)
		}

	case AssertReporter:
		got, err := h.machine.OracleAuthorized(ctx, ledger.Identity(a.Identity))
		if err != nil {
			return fmt.Sprintf("check reporter %s: %v", a.Identity, err)
		}
		if got != *a.Authorized {
			return fmt.Sprintf("reporter %s authorized=%t, want %t", a.Identity, got, *a.Authorized)
		}

	case AssertNonce:
		got, err := h.machine.PaymentNonce(ctx)
		if err != nil {
			return fmt.Sprintf("read nonce: %v", err)
		}
		if got != *a.Nonce {
			return fmt.Sprintf("nonce is %d, want %d", got, *a.Nonce)
		}

	case AssertAudit:
		checked, err := h.store.VerifyTransitions(ctx)
		if err != nil {
			return fmt.Sprintf("verify audit log: %v", err)
		}
		if checked != *a.Count {
			return fmt.Sprintf("audit log holds %d records, want %d", checked, *a.Count)
		}
	}

	return ""
}
