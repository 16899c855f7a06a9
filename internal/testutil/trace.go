package testutil

import (
	"fmt"
	"sync"
)

// FixedTraceGenerator returns sequential, predictable trace tokens
// ("trace-1", "trace-2", ...) so audit logs compare equal across runs and
// golden files stay stable.
//
// Thread-safe via internal mutex.
type FixedTraceGenerator struct {
	mu sync.Mutex
	n  int
}

// NewFixedTraceGenerator creates a generator starting at trace-1.
func NewFixedTraceGenerator() *FixedTraceGenerator {
	return &FixedTraceGenerator{}
}

// Generate returns the next sequential token.
func (g *FixedTraceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("trace-%d", g.n)
}
