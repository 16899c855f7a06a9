// Package testutil provides deterministic collaborators for escrow tests:
// a manually advanced tick source, a fixed trace token generator, and a
// bank stub that fails on demand.
package testutil

import (
	"context"
	"sync"
)

// ManualTick is a tick source tests advance explicitly.
//
// Thread-safe: all methods use an internal mutex.
type ManualTick struct {
	mu   sync.Mutex
	tick uint64
}

// NewManualTick creates a tick source positioned at start.
func NewManualTick(start uint64) *ManualTick {
	return &ManualTick{tick: start}
}

// Tick returns the current tick. Never fails.
func (t *ManualTick) Tick(ctx context.Context) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick, nil
}

// Set positions the clock at tick. Moving backward panics: the logical
// clock is monotonically non-decreasing and a test that regresses it is
// misconfigured.
func (t *ManualTick) Set(tick uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tick < t.tick {
		panic("ManualTick: tick may not regress")
	}
	t.tick = tick
}

// Advance moves the clock forward by delta ticks.
func (t *ManualTick) Advance(delta uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tick += delta
}
