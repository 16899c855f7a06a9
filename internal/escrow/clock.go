package escrow

import (
	"context"
	"sync/atomic"

	"github.com/roach88/lockbox/internal/store"
)

// TickSource supplies the host's monotonically non-decreasing logical
// clock. The escrow core only ever reads it; advancement belongs to the
// hosting platform.
//
// Implemented by StoreTicks (production) and testutil.ManualTick (tests).
type TickSource interface {
	Tick(ctx context.Context) (uint64, error)
}

// StoreTicks reads the logical clock persisted in the store's meta table.
// The host advances it with Store.AdvanceTick.
type StoreTicks struct {
	Store *store.Store
}

// Tick returns the current persisted tick.
func (t StoreTicks) Tick(ctx context.Context) (uint64, error) {
	return t.Store.CurrentTick(ctx)
}

// Sequence is the machine-local monotonic counter stamping audit records.
// Distinct from the tick: the tick is host time, the sequence is a total
// order over this machine's successful transitions.
//
// Thread-safe via atomic operations, though the machine's serialization
// mutex means only one goroutine normally calls Next.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0; the first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence resuming from a specific value.
// Used when reopening a store with an existing audit log.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number and increments the counter.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
