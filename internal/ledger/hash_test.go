package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transitionFixture() Transition {
	id := uint64(3)
	return Transition{
		TraceToken: "trace-1",
		Op:         OpClaim,
		Caller:     "bob",
		PaymentID:  &id,
		Tick:       1010,
		Seq:        4,
		Detail:     map[string]any{"payment_id": uint64(3), "amount": uint64(100)},
	}
}

func TestTransitionID_Stable(t *testing.T) {
	tr := transitionFixture()

	first, err := TransitionID(tr)
	require.NoError(t, err)
	assert.Len(t, first, 64, "hex-encoded SHA-256")

	again, err := TransitionID(tr)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestTransitionID_InputSensitive(t *testing.T) {
	base, err := TransitionID(transitionFixture())
	require.NoError(t, err)

	mutations := map[string]func(*Transition){
		"trace":  func(tr *Transition) { tr.TraceToken = "trace-2" },
		"op":     func(tr *Transition) { tr.Op = OpCancel },
		"caller": func(tr *Transition) { tr.Caller = "alice" },
		"tick":   func(tr *Transition) { tr.Tick = 1011 },
		"seq":    func(tr *Transition) { tr.Seq = 5 },
		"detail": func(tr *Transition) { tr.Detail["amount"] = uint64(101) },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tr := transitionFixture()
			mutate(&tr)
			id, err := TransitionID(tr)
			require.NoError(t, err)
			assert.NotEqual(t, base, id, "changing %s must change the ID", name)
		})
	}
}
