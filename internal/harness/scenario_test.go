package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `
name: basic
description: fund then create
steps:
  - op: fund
    args: {identity: alice, amount: 100}
  - op: create
    as: alice
    args: {to: bob, amount: 50, duration: 5, key: k/1}
assertions:
  - type: balance
    identity: alice
    amount: 50
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(validScenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "basic", s.Name)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, StepFund, s.Steps[0].Op)
	assert.Equal(t, "alice", s.Steps[1].As)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertBalance, s.Assertions[0].Type)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	// "assertion" instead of "assertions" must fail loudly.
	_, err := ParseScenario([]byte(`
name: typo
description: typo in a top-level key
steps:
  - op: fund
    args: {identity: alice, amount: 100}
assertion:
  - type: balance
    identity: alice
    amount: 100
`))
	require.Error(t, err)
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps:\n  - op: fund\n    args: {identity: a, amount: 1}\nassertions:\n  - type: nonce\n    nonce: 0\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps:\n  - op: fund\n    args: {identity: a, amount: 1}\nassertions:\n  - type: nonce\n    nonce: 0\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nassertions:\n  - type: nonce\n    nonce: 0\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: fund\n    args: {identity: a, amount: 1}\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: destroy\n    args: {}\nassertions:\n  - type: nonce\n    nonce: 0\n",
			wantErr: "unknown op",
		},
		{
			name:    "machine op without caller",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: claim\n    args: {id: 0}\nassertions:\n  - type: nonce\n    nonce: 0\n",
			wantErr: "requires `as`",
		},
		{
			name:    "expect on host step",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: advance\n    args: {to: 5}\n    expect: {error: UNAUTHORIZED}\nassertions:\n  - type: nonce\n    nonce: 0\n",
			wantErr: "host step",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: fund\n    args: {identity: a, amount: 1}\nassertions:\n  - type: bogus\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "record_state with bad state",
			yaml:    "name: n\ndescription: d\nsteps:\n  - op: fund\n    args: {identity: a, amount: 1}\nassertions:\n  - type: record_state\n    payment: 0\n    state: done\n",
			wantErr: "state must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	assert.NoError(t, validateAssertion(0, &Assertion{Type: AssertAudit, Count: intp(3)}))
	assert.Error(t, validateAssertion(0, &Assertion{Type: AssertAudit}))
	assert.Error(t, validateAssertion(0, &Assertion{Type: AssertFeed, Key: "k"}))
	assert.NoError(t, validateAssertion(0, &Assertion{Type: AssertFeed, Key: "k", Absent: true}))
	assert.Error(t, validateAssertion(0, &Assertion{Type: AssertClaimable, Payment: uintp(0)}))
	assert.NoError(t, validateAssertion(0, &Assertion{Type: AssertClaimable, Payment: uintp(0), Claimable: boolp(true)}))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/absent.yaml")
	require.Error(t, err)
}
