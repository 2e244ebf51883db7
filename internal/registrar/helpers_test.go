package registrar_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
	"github.com/roach88/registrar/internal/state"
	"github.com/roach88/registrar/internal/testutil"
)

const (
	alice ir.AccountID = "alice"
	bob   ir.AccountID = "bob"
	carol ir.AccountID = "carol"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	reg   *registrar.Registrar
	mem   *state.Memory
	clock *testutil.ManualClock
	id    *testutil.Identity
	rec   *registrar.Recorder
}

func newFixture(t *testing.T, cfg registrar.Config) *fixture {
	t.Helper()

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		mem:   state.NewMemory(),
		clock: testutil.NewManualClock(0),
		id:    testutil.NewIdentity(alice),
		rec:   &registrar.Recorder{},
	}
	reg, err := registrar.New(f.mem, cfg, registrar.Options{
		Clock:    f.clock,
		Identity: f.id,
		Sink:     f.rec,
		CallIDs:  testutil.NewSequenceCallIDs("call"),
	})
	require.NoError(t, err)
	f.reg = reg
	return f
}

// at sets the clock and the caller for the next call.
func (f *fixture) at(now ir.Timestamp, caller ir.AccountID) *fixture {
	f.clock.Set(now)
	f.id.As(caller)
	return f
}

func (f *fixture) entry(name ir.Hash) ir.Entry {
	f.t.Helper()
	e, err := f.reg.Entry(f.ctx, name)
	require.NoError(f.t, err)
	return e
}

// pledge places a bid for name under salt and returns the commitment.
func (f *fixture) pledge(name, salt ir.Hash, amount ir.Balance) ir.Hash {
	f.t.Helper()
	c := commit.Commit(name, salt)
	require.NoError(f.t, f.reg.Bids().NewBid(f.ctx, c, amount))
	return c
}

func salt(b byte) ir.Hash {
	var h ir.Hash
	h[ir.HashSize-1] = b
	return h
}

var fooName = commit.MustNameHash("foo.eth")

// snapshot captures the full state for byte-identical comparison.
type snapshot struct {
	entries []ir.Entry
	bids    []ir.SealedBid
}

func (f *fixture) snapshot() snapshot {
	return snapshot{entries: f.mem.Entries(), bids: f.mem.Bids()}
}
