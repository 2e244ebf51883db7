package testutil

import (
	"context"
	"sync"

	"github.com/roach88/registrar/internal/ir"
)

// Identity is a switchable caller identity for tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Identity struct {
	mu     sync.Mutex
	caller ir.AccountID
}

// NewIdentity creates an identity provider answering with caller.
func NewIdentity(caller ir.AccountID) *Identity {
	return &Identity{caller: caller}
}

// As switches the identity used by subsequent calls.
func (i *Identity) As(caller ir.AccountID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.caller = caller
}

// Caller returns the current identity.
func (i *Identity) Caller(context.Context) (ir.AccountID, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.caller, nil
}
