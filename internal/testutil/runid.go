package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs numbers allocation runs "<prefix>-1", "<prefix>-2", ...
//
// Unlike allocation.FixedGenerator, which panics once its list is used up,
// SequentialRunIDs never runs out, so a scenario may allocate any number of
// times and still produce byte-identical traces.
//
// Implements allocation.RunIDGenerator.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRunIDs creates a generator. An empty prefix defaults to "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
