package testutil

import (
	"fmt"
	"sync"
)

// SequenceCallIDs generates predictable call IDs: "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh SequenceCallIDs produces byte-identical
// event traces.
//
// Thread-safety: SequenceCallIDs is safe for concurrent use via internal mutex.
type SequenceCallIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceCallIDs creates a generator. An empty prefix defaults to "call".
func NewSequenceCallIDs(prefix string) *SequenceCallIDs {
	if prefix == "" {
		prefix = "call"
	}
	return &SequenceCallIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceCallIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
