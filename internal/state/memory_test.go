package state_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/state"
	"github.com/roach88/registrar/internal/state/statetest"
)

func TestMemory(t *testing.T) {
	statetest.Run(t, func(t *testing.T) state.Store {
		return state.NewMemory()
	})
}

func TestMemory_SnapshotsAreSorted(t *testing.T) {
	ctx := context.Background()
	m := state.NewMemory()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{2}}))
	require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{1}}))
	require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{1}, Bidder: "b"}))
	require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{1}, Bidder: "a"}))
	require.NoError(t, tx.Commit())

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, ir.Hash{1}, entries[0].Name)

	bids := m.Bids()
	require.Len(t, bids, 2)
	assert.Equal(t, ir.AccountID("a"), bids[0].Bidder)
}

func TestMemory_BeginHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := state.NewMemory().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_UncommittedInvisible(t *testing.T) {
	ctx := context.Background()
	m := state.NewMemory()

	tx, err := m.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{1}}))
	require.NoError(t, tx.Rollback())

	assert.Empty(t, m.Entries())
}
