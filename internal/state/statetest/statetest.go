// Package statetest holds behavior tests shared by every state.Store
// implementation.
package statetest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/state"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) state.Store

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EntryRoundTrip", func(t *testing.T) { testEntryRoundTrip(t, newStore(t)) })
	t.Run("RollbackDiscardsWrites", func(t *testing.T) { testRollbackDiscardsWrites(t, newStore(t)) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, newStore(t)) })
	t.Run("BidOverwrite", func(t *testing.T) { testBidOverwrite(t, newStore(t)) })
	t.Run("BidKeyIncludesBidder", func(t *testing.T) { testBidKeyIncludesBidder(t, newStore(t)) })
	t.Run("DeleteRevealedBids", func(t *testing.T) { testDeleteRevealedBids(t, newStore(t)) })
	t.Run("DeleteBidsPlacedBefore", func(t *testing.T) { testDeleteBidsPlacedBefore(t, newStore(t)) })
	t.Run("DeleteOnlyRevealedBids", func(t *testing.T) { testDeleteOnlyRevealedBids(t, newStore(t)) })
	t.Run("OpenEntries", func(t *testing.T) { testOpenEntries(t, newStore(t)) })
	t.Run("FullUint64Range", func(t *testing.T) { testFullUint64Range(t, newStore(t)) })
	t.Run("UseAfterCommit", func(t *testing.T) { testUseAfterCommit(t, newStore(t)) })
}

func begin(t *testing.T, s state.Store) state.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func commit(t *testing.T, s state.Store, fn func(tx state.Tx)) {
	t.Helper()
	tx := begin(t, s)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func readEntry(t *testing.T, s state.Store, name ir.Hash) (ir.Entry, bool) {
	t.Helper()
	tx := begin(t, s)
	defer tx.Rollback()
	e, ok, err := tx.Entry(context.Background(), name)
	require.NoError(t, err)
	return e, ok
}

func readBid(t *testing.T, s state.Store, key ir.BidKey) (ir.SealedBid, bool) {
	t.Helper()
	tx := begin(t, s)
	defer tx.Rollback()
	b, ok, err := tx.Bid(context.Background(), key)
	require.NoError(t, err)
	return b, ok
}

func testEntryRoundTrip(t *testing.T, s state.Store) {
	ctx := context.Background()
	want := ir.Entry{Name: ir.Hash{1}, RegisteredAt: 100, HighestBid: 7, Owner: "alice", Mode: ir.ModeReveal}

	_, ok := readEntry(t, s, want.Name)
	assert.False(t, ok, "entry must not exist before insert")

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutEntry(ctx, want))
	})

	got, ok := readEntry(t, s, want.Name)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func testRollbackDiscardsWrites(t *testing.T, s state.Store) {
	ctx := context.Background()
	name := ir.Hash{2}
	before := ir.Entry{Name: name, RegisteredAt: 1, HighestBid: 1, Mode: ir.ModeAuction}
	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutEntry(ctx, before))
	})

	tx := begin(t, s)
	require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: name, RegisteredAt: 1, HighestBid: 9, Owner: "mallory", Mode: ir.ModeOwned}))
	require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{3}, Bidder: "mallory", Amount: 9}))
	require.NoError(t, tx.Rollback())

	got, ok := readEntry(t, s, name)
	require.True(t, ok)
	assert.Equal(t, before, got, "rollback must leave the entry untouched")

	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{3}, Bidder: "mallory"})
	assert.False(t, ok, "rollback must not leave the bid behind")
}

func testReadYourWrites(t *testing.T, s state.Store) {
	ctx := context.Background()
	tx := begin(t, s)
	defer tx.Rollback()

	bid := ir.SealedBid{Commitment: ir.Hash{4}, Bidder: "bob", Amount: 3, PlacedAt: 10}
	require.NoError(t, tx.PutBid(ctx, bid))

	got, ok, err := tx.Bid(ctx, bid.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bid, got)
}

func testBidOverwrite(t *testing.T, s state.Store) {
	ctx := context.Background()
	key := ir.BidKey{Commitment: ir.Hash{5}, Bidder: "carol"}

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: key.Commitment, Bidder: key.Bidder, Amount: 10}))
	})
	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: key.Commitment, Bidder: key.Bidder, Amount: 4}))
	})

	got, ok := readBid(t, s, key)
	require.True(t, ok)
	assert.Equal(t, ir.Balance(4), got.Amount, "last write wins")
}

func testBidKeyIncludesBidder(t *testing.T, s state.Store) {
	ctx := context.Background()
	c := ir.Hash{6}

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: c, Bidder: "alice", Amount: 2}))
	})

	_, ok := readBid(t, s, ir.BidKey{Commitment: c, Bidder: "bob"})
	assert.False(t, ok, "another bidder must not see alice's pledge")
}

func testDeleteRevealedBids(t *testing.T, s state.Store) {
	ctx := context.Background()
	name := ir.Hash{7}
	other := ir.Hash{8}

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x71}, Bidder: "a", Amount: 1, RevealedFor: name}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x72}, Bidder: "b", Amount: 1, RevealedFor: other}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x73}, Bidder: "c", Amount: 1}))
	})

	tx := begin(t, s)
	// staged in the same tx, must also be removed
	require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x74}, Bidder: "d", Amount: 1, RevealedFor: name}))
	n, err := tx.DeleteRevealedBids(ctx, name)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 2, n)

	_, ok := readBid(t, s, ir.BidKey{Commitment: ir.Hash{0x71}, Bidder: "a"})
	assert.False(t, ok)
	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{0x74}, Bidder: "d"})
	assert.False(t, ok)
	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{0x72}, Bidder: "b"})
	assert.True(t, ok, "bids revealed for another name survive")
	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{0x73}, Bidder: "c"})
	assert.True(t, ok, "unrevealed bids survive")
}

func testDeleteBidsPlacedBefore(t *testing.T, s state.Store) {
	ctx := context.Background()

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x91}, Bidder: "a", Amount: 1, PlacedAt: 10}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x92}, Bidder: "a", Amount: 1, PlacedAt: 20}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0x93}, Bidder: "a", Amount: 1, PlacedAt: 30}))
	})

	var n int
	commit(t, s, func(tx state.Tx) {
		var err error
		n, err = tx.DeleteBidsPlacedBefore(ctx, 20, false)
		require.NoError(t, err)
	})
	assert.Equal(t, 1, n, "cutoff is exclusive")

	_, ok := readBid(t, s, ir.BidKey{Commitment: ir.Hash{0x91}, Bidder: "a"})
	assert.False(t, ok)
	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{0x92}, Bidder: "a"})
	assert.True(t, ok)
}

func testDeleteOnlyRevealedBids(t *testing.T, s state.Store) {
	ctx := context.Background()
	name := ir.Hash{0xa0}

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0xa1}, Bidder: "a", Amount: 1, PlacedAt: 10}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0xa2}, Bidder: "a", Amount: 1, PlacedAt: 10, RevealedFor: name}))
	})

	var n int
	commit(t, s, func(tx state.Tx) {
		var err error
		n, err = tx.DeleteBidsPlacedBefore(ctx, 20, true)
		require.NoError(t, err)
	})
	assert.Equal(t, 1, n)

	_, ok := readBid(t, s, ir.BidKey{Commitment: ir.Hash{0xa1}, Bidder: "a"})
	assert.True(t, ok, "unrevealed bids are kept")
	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{0xa2}, Bidder: "a"})
	assert.False(t, ok)
}

func testOpenEntries(t *testing.T, s state.Store) {
	ctx := context.Background()

	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{0xb1}, Mode: ir.ModeAuction}))
		require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{0xb2}, Mode: ir.ModeReveal, Owner: "a"}))
		require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{0xb3}, Mode: ir.ModeOwned, Owner: "a"}))
		require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{0xb4}, Mode: ir.ModeExpired, Owner: "a"}))
	})

	tx := begin(t, s)
	defer tx.Rollback()

	require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{0xb2}, Mode: ir.ModeOwned, Owner: "a"}))
	require.NoError(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{0xb5}, Mode: ir.ModeAuction}))

	open, err := tx.OpenEntries(ctx)
	require.NoError(t, err)

	var names []ir.Hash
	for _, e := range open {
		names = append(names, e.Name)
	}
	assert.Equal(t, []ir.Hash{{0xb1}, {0xb5}}, names, "staged writes are visible")
}

func testFullUint64Range(t *testing.T, s state.Store) {
	ctx := context.Background()
	const top = ir.Timestamp(math.MaxUint64)
	const mid = ir.Timestamp(math.MaxInt64 + 1)

	entry := ir.Entry{Name: ir.Hash{0xc0}, RegisteredAt: top, HighestBid: ir.Balance(mid), Owner: "a", Mode: ir.ModeOwned}
	commit(t, s, func(tx state.Tx) {
		require.NoError(t, tx.PutEntry(ctx, entry))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0xc1}, Bidder: "a", Amount: ir.Balance(top), PlacedAt: 5}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0xc2}, Bidder: "a", Amount: 1, PlacedAt: mid}))
		require.NoError(t, tx.PutBid(ctx, ir.SealedBid{Commitment: ir.Hash{0xc3}, Bidder: "a", Amount: 1, PlacedAt: top}))
	})

	got, ok := readEntry(t, s, entry.Name)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	b, ok := readBid(t, s, ir.BidKey{Commitment: ir.Hash{0xc1}, Bidder: "a"})
	require.True(t, ok)
	assert.Equal(t, ir.Balance(top), b.Amount)

	var n int
	commit(t, s, func(tx state.Tx) {
		var err error
		n, err = tx.DeleteBidsPlacedBefore(ctx, mid+1, false)
		require.NoError(t, err)
	})
	assert.Equal(t, 2, n, "ordering holds across the signed boundary")

	_, ok = readBid(t, s, ir.BidKey{Commitment: ir.Hash{0xc3}, Bidder: "a"})
	assert.True(t, ok)
}

func testUseAfterCommit(t *testing.T, s state.Store) {
	ctx := context.Background()
	tx := begin(t, s)
	require.NoError(t, tx.Commit())

	assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")
	assert.Error(t, tx.PutEntry(ctx, ir.Entry{Name: ir.Hash{9}}))
}
