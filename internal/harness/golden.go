package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/lockbox/internal/ledger"
)

// TraceSnapshot is the golden-file form of a scenario trace. Serialized
// with canonical JSON so the bytes are fully deterministic.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// toCanonicalMap converts the snapshot into the map form accepted by
// ledger.MarshalCanonical. Optional event fields are dropped, not
// emitted empty, matching the JSON struct tags.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"op":      event.Op,
			"outcome": event.Outcome,
		}
		if event.Caller != "" {
			eventMap["caller"] = event.Caller
		}
		if event.PaymentID != nil {
			eventMap["payment_id"] = *event.PaymentID
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"trace":    traceList,
	}
}

// RunWithGolden executes a scenario, requires it to pass, and compares
// its trace against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
	}
	traceJSON, err := ledger.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
