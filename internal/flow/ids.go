package flow

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces unique ids for nodes and edges.
// Implemented by UUIDGenerator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates random RFC 4122 UUIDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new hyphenated UUID string.
func (g UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// FixedGenerator returns predetermined ids for testing. It enables
// deterministic graph construction and golden comparison.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed; a test that asks for
// more ids than it declared is misconfigured.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
