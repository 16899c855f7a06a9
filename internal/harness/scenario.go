package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a sequence of escrow
// operations with expected outcomes, plus assertions over the final
// state. Scenarios execute against the real machine over a fresh
// in-memory database.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Owner is the contract owner identity. Defaults to "owner".
	Owner string `yaml:"owner,omitempty"`

	// StartTick is the logical clock's initial value. Defaults to 0.
	StartTick uint64 `yaml:"start_tick,omitempty"`

	// Steps is the operation sequence to execute.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state after all steps ran.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation in a scenario.
type Step struct {
	// Op names the operation: create, claim, cancel, report, authorize,
	// fund, or advance. The last two are host-side steps that are never
	// audited.
	Op string `yaml:"op"`

	// As is the caller identity for machine operations.
	As string `yaml:"as,omitempty"`

	// Args holds the operation's arguments.
	Args map[string]any `yaml:"args"`

	// Expect specifies the expected outcome. Nil means the step must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected rejection.
type ExpectClause struct {
	// Error is the expected error kind, e.g. "STILL_TIME_LOCKED".
	Error string `yaml:"error"`
}

// Step op constants.
const (
	StepCreate    = "create"
	StepClaim     = "claim"
	StepCancel    = "cancel"
	StepReport    = "report"
	StepAuthorize = "authorize"
	StepFund      = "fund"
	StepAdvance   = "advance"
)

var knownOps = map[string]bool{
	StepCreate:    true,
	StepClaim:     true,
	StepCancel:    true,
	StepReport:    true,
	StepAuthorize: true,
	StepFund:      true,
	StepAdvance:   true,
}

// machineOps are the ops that go through the machine and need a caller.
var machineOps = map[string]bool{
	StepCreate:    true,
	StepClaim:     true,
	StepCancel:    true,
	StepReport:    true,
	StepAuthorize: true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if machineOps[step.Op] && step.As == "" {
			return fmt.Errorf("steps[%d]: %s requires `as`", i, step.Op)
		}
		if step.Args == nil {
			return fmt.Errorf("steps[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d].expect: error is required", i)
		}
		if step.Expect != nil && !machineOps[step.Op] {
			return fmt.Errorf("steps[%d]: %s is a host step and cannot carry expect", i, step.Op)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}
