package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/reactorcore/reactor"
)

// FixedIDGenerator hands out predetermined reactor IDs in order.
//
// Panics once the IDs are exhausted: a test that creates more reactors than
// it declared is misconfigured.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

var _ reactor.IDGenerator = (*FixedIDGenerator)(nil)

// NewFixedIDGenerator returns a generator yielding ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// SequentialIDs returns n IDs of the form prefix-1 .. prefix-n.
func SequentialIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return ids
}

// Generate returns the next ID.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedIDGenerator: all %d ids exhausted", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
