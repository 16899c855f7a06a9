// Package harness executes YAML conformance scenarios against the real
// escrow machine. Each scenario runs in a fresh in-memory database with
// a manually driven logical clock and fixed trace tokens, so a scenario
// always produces the same trace and the traces can be pinned with
// golden files.
package harness

import (
	"context"
	"fmt"

	"github.com/roach88/lockbox/internal/bank"
	"github.com/roach88/lockbox/internal/escrow"
	"github.com/roach88/lockbox/internal/ledger"
	"github.com/roach88/lockbox/internal/store"
	"github.com/roach88/lockbox/internal/testutil"
)

// Harness holds the machine under test and its deterministic
// collaborators for one scenario execution.
type Harness struct {
	store   *store.Store
	bank    *bank.Bank
	machine *escrow.Machine
	clock   *testutil.ManualTick
	owner   ledger.Identity
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open a fresh in-memory database and initialize it
//  2. Execute every step against the real machine, checking expect
//     clauses and recording outcomes in the trace
//  3. Evaluate final-state assertions
//
// A returned error means the scenario could not be executed (bad args,
// infrastructure failure). Domain rejections are never errors here; they
// are outcomes, matched against expect clauses.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	owner := ledger.Identity(scenario.Owner)
	if owner == "" {
		owner = "owner"
	}
	if err := st.Initialize(ctx, owner); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	clock := testutil.NewManualTick(scenario.StartTick)
	b := bank.New(st)
	machine := escrow.New(st, b, clock, owner,
		escrow.WithTraceGenerator(testutil.NewFixedTraceGenerator()),
	)

	h := &Harness{
		store:   st,
		bank:    b,
		machine: machine,
		clock:   clock,
		owner:   owner,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range h.evaluateAssertions(ctx, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep runs one step, validates its expect clause, and records
// the outcome in the trace.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	event := TraceEvent{Op: step.Op, Caller: step.As, Outcome: "ok"}

	var opErr error
	switch step.Op {
	case StepFund:
		identity, err := argString(step.Args, "identity")
		if err != nil {
			return fmt.Errorf("steps[%d] fund: %w", i, err)
		}
		amount, err := argUint64(step.Args, "amount")
		if err != nil {
			return fmt.Errorf("steps[%d] fund: %w", i, err)
		}
		if err := h.bank.Deposit(ctx, ledger.Identity(identity), amount); err != nil {
			return fmt.Errorf("steps[%d] fund: %w", i, err)
		}

	case StepAdvance:
		to, err := argUint64(step.Args, "to")
		if err != nil {
			return fmt.Errorf("steps[%d] advance: %w", i, err)
		}
		h.clock.Set(to)

	case StepCreate:
		recipient, err := argString(step.Args, "to")
		if err != nil {
			return fmt.Errorf("steps[%d] create: %w", i, err)
		}
		amount, err := argUint64(step.Args, "amount")
		if err != nil {
			return fmt.Errorf("steps[%d] create: %w", i, err)
		}
		duration, err := argUint64(step.Args, "duration")
		if err != nil {
			return fmt.Errorf("steps[%d] create: %w", i, err)
		}
		key, err := argString(step.Args, "key")
		if err != nil {
			return fmt.Errorf("steps[%d] create: %w", i, err)
		}
		// value defaults to 0: any reported feed value satisfies it
		value, _ := argUint64(step.Args, "value")

		id, err := h.machine.CreatePayment(ctx, ledger.Identity(step.As), escrow.CreateParams{
			Recipient:     ledger.Identity(recipient),
			Amount:        amount,
			LockDuration:  duration,
			ConditionKey:  key,
			RequiredValue: value,
		})
		if err == nil {
			event.PaymentID = &id
		}
		opErr = err

	case StepClaim:
		id, err := argUint64(step.Args, "id")
		if err != nil {
			return fmt.Errorf("steps[%d] claim: %w", i, err)
		}
		opErr = h.machine.ClaimPayment(ctx, ledger.Identity(step.As), id)

	case StepCancel:
		id, err := argUint64(step.Args, "id")
		if err != nil {
			return fmt.Errorf("steps[%d] cancel: %w", i, err)
		}
		opErr = h.machine.CancelPayment(ctx, ledger.Identity(step.As), id)

	case StepReport:
		key, err := argString(step.Args, "key")
		if err != nil {
			return fmt.Errorf("steps[%d] report: %w", i, err)
		}
		value, err := argUint64(step.Args, "value")
		if err != nil {
			return fmt.Errorf("steps[%d] report: %w", i, err)
		}
		opErr = h.machine.ReportValue(ctx, ledger.Identity(step.As), key, value)

	case StepAuthorize:
		target, err := argString(step.Args, "target")
		if err != nil {
			return fmt.Errorf("steps[%d] authorize: %w", i, err)
		}
		opErr = h.machine.AddAuthorizedReporter(ctx, ledger.Identity(step.As), ledger.Identity(target))
	}

	if opErr != nil {
		kind := ledger.KindOf(opErr)
		if kind == "" {
			return fmt.Errorf("steps[%d] %s: %w", i, step.Op, opErr)
		}
		event.Outcome = string(kind)
	}

	// Match the actual outcome against the expect clause.
	switch {
	case step.Expect == nil && opErr != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected success, got %v", i, step.Op, opErr))
	case step.Expect != nil && opErr == nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, succeeded", i, step.Op, step.Expect.Error))
	case step.Expect != nil && event.Outcome != step.Expect.Error:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %s", i, step.Op, step.Expect.Error, event.Outcome))
	}

	result.AddTrace(event)
	return nil
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q must be a string, got %T", key, v)
	}
	return s, nil
}

func argUint64(args map[string]any, key string) (uint64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("arg %q must be non-negative, got %d", key, n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("arg %q must be non-negative, got %d", key, n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("arg %q must be an integer, got %T", key, v)
	}
}
