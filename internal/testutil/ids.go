package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequenceGenerator yields "{prefix}-1", "{prefix}-2", ... and never runs
// out. It satisfies engine.IDGenerator.
type SequenceGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceGenerator creates a generator; an empty prefix means "wave".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "wave"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
