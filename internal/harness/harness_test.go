package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func uintp(v uint64) *uint64 { return &v }
func boolp(v bool) *bool     { return &v }
func intp(v int) *int        { return &v }

// minimalScenario builds a fund+create scenario usable as a base for
// failure-path tests.
func minimalScenario() *Scenario {
	return &Scenario{
		Name:        "minimal",
		Description: "fund and create",
		Steps: []Step{
			{Op: StepFund, Args: map[string]any{"identity": "alice", "amount": 100}},
			{Op: StepCreate, As: "alice", Args: map[string]any{
				"to": "bob", "amount": 50, "duration": 5, "key": "k/1",
			}},
		},
		Assertions: []Assertion{
			{Type: AssertBalance, Identity: "alice", Amount: uintp(50)},
		},
	}
}

func TestRun_Passes(t *testing.T) {
	result, err := Run(minimalScenario())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "ok", result.Trace[1].Outcome)
	require.NotNil(t, result.Trace[1].PaymentID)
	assert.Equal(t, uint64(0), *result.Trace[1].PaymentID)
}

func TestRun_UnexpectedRejectionFails(t *testing.T) {
	s := minimalScenario()
	// Locking more than alice holds is rejected by the bank.
	s.Steps[1].Args["amount"] = 500
	s.Assertions = []Assertion{
		{Type: AssertBalance, Identity: "alice", Amount: uintp(100)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "expected success")
	assert.Equal(t, "TRANSFER_FAILED", result.Trace[1].Outcome)
}

func TestRun_ExpectedRejectionPasses(t *testing.T) {
	s := minimalScenario()
	s.Steps[1].Args["amount"] = 500
	s.Steps[1].Expect = &ExpectClause{Error: "TRANSFER_FAILED"}
	s.Assertions = []Assertion{
		{Type: AssertBalance, Identity: "alice", Amount: uintp(100)},
		{Type: AssertNonce, Nonce: uintp(0)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := minimalScenario()
	s.Steps[1].Expect = &ExpectClause{Error: "UNAUTHORIZED"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected UNAUTHORIZED, succeeded")
}

func TestRun_AssertionFailureFails(t *testing.T) {
	s := minimalScenario()
	s.Assertions = []Assertion{
		{Type: AssertBalance, Identity: "alice", Amount: uintp(999)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "balance")
}

func TestRun_FreshDatabasePerRun(t *testing.T) {
	s := minimalScenario()
	s.Assertions = append(s.Assertions, Assertion{Type: AssertNonce, Nonce: uintp(1)})

	for i := 0; i < 2; i++ {
		result, err := Run(s)
		require.NoError(t, err)
		assert.True(t, result.Pass, "errors: %v", result.Errors)
	}
}

func TestRun_BadArgsIsExecutionError(t *testing.T) {
	s := minimalScenario()
	delete(s.Steps[1].Args, "amount")

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}
