package registrar_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
	"github.com/roach88/registrar/internal/store"
	"github.com/roach88/registrar/internal/testutil"
)

func TestNewBid_MinPrice(t *testing.T) {
	cfg := registrar.DefaultConfig()
	cfg.MinPrice = 10
	f := newFixture(t, cfg)
	c := salt(0xaa)

	err := f.reg.Bids().NewBid(f.ctx, c, 9)
	assert.ErrorIs(t, err, registrar.ErrInvalidBidPrice)
	assert.Empty(t, f.mem.Bids())

	require.NoError(t, f.reg.Bids().NewBid(f.ctx, c, 10))
	bid, err := f.reg.Bids().Bid(f.ctx, c, alice)
	require.NoError(t, err)
	assert.Equal(t, ir.SealedBid{Commitment: c, Bidder: alice, Amount: 10}, bid)
}

func TestNewBid_LastWriteWins(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	c := salt(0xaa)

	require.NoError(t, f.at(1, alice).reg.Bids().NewBid(f.ctx, c, 5))
	require.NoError(t, f.at(2, alice).reg.Bids().NewBid(f.ctx, c, 8))

	bid, err := f.reg.Bids().Bid(f.ctx, c, alice)
	require.NoError(t, err)
	assert.Equal(t, ir.Balance(8), bid.Amount)
	assert.Equal(t, ir.Timestamp(2), bid.PlacedAt)
	assert.Len(t, f.mem.Bids(), 1)
}

func TestNewBid_SameCommitmentDifferentBidders(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	c := salt(0xaa)

	require.NoError(t, f.at(1, alice).reg.Bids().NewBid(f.ctx, c, 5))
	require.NoError(t, f.at(1, bob).reg.Bids().NewBid(f.ctx, c, 7))

	a, err := f.reg.Bids().Bid(f.ctx, c, alice)
	require.NoError(t, err)
	b, err := f.reg.Bids().Bid(f.ctx, c, bob)
	require.NoError(t, err)
	assert.Equal(t, ir.Balance(5), a.Amount)
	assert.Equal(t, ir.Balance(7), b.Amount)
}

func TestCancelBid(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	c := salt(0xaa)

	err := f.reg.Bids().CancelBid(f.ctx, c)
	assert.ErrorIs(t, err, registrar.ErrBidNonExistent)

	require.NoError(t, f.at(1, alice).reg.Bids().NewBid(f.ctx, c, 5))
	assert.ErrorIs(t, f.at(2, bob).reg.Bids().CancelBid(f.ctx, c), registrar.ErrBidNonExistent,
		"only the bidder's own pledge")

	require.NoError(t, f.at(3, alice).reg.Bids().CancelBid(f.ctx, c))
	bid, err := f.reg.Bids().Bid(f.ctx, c, alice)
	require.NoError(t, err)
	assert.Equal(t, ir.Balance(0), bid.Amount, "slot is retained with amount 0")

	// Canceling twice is allowed; the slot still exists.
	require.NoError(t, f.reg.Bids().CancelBid(f.ctx, c))
}

func TestBid_NotFound(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	_, err := f.reg.Bids().Bid(f.ctx, salt(1), alice)
	assert.ErrorIs(t, err, registrar.ErrBidNonExistent)
}

func TestSweep(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	old := salt(1)
	fresh := salt(2)

	require.NoError(t, f.at(10, alice).reg.Bids().NewBid(f.ctx, old, 5))
	require.NoError(t, f.at(500, alice).reg.Bids().NewBid(f.ctx, fresh, 5))

	// Retention is raised to a full auction (600), so nothing is old enough yet.
	n, err := f.at(600, alice).reg.Bids().Sweep(f.ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.at(611, alice).reg.Bids().Sweep(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bids := f.mem.Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, fresh, bids[0].Commitment)

	n, err = f.at(2000, alice).reg.Bids().Sweep(f.ctx, 5000)
	require.NoError(t, err)
	assert.Zero(t, n, "now is within retention")
	assert.Empty(t, f.rec.Kinds()[2:], "sweep emits no events")
}

func TestSweep_KeepsPledgePlacedBeforeAuction(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	s1 := salt(1)

	f.at(0, alice).pledge(fooName, s1, 5)
	require.NoError(t, f.at(100, bob).reg.StartAuction(f.ctx, fooName))

	// The pledge is older than a full auction, but foo's reveal window is
	// open until 700.
	n, err := f.at(650, bob).reg.Bids().Sweep(f.ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, f.at(660, alice).reg.RevealBid(f.ctx, fooName, s1))
	assert.Equal(t, alice, f.entry(fooName).Owner)
}

func TestSweep_OpenWindowStillSweepsRevealedBids(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	barName := commit.MustNameHash("bar.eth")

	require.NoError(t, f.at(0, alice).reg.StartAuction(f.ctx, barName))
	revealed := f.at(0, alice).pledge(barName, salt(1), 5)
	idle := f.at(0, bob).pledge(fooName, salt(2), 5)
	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, barName, salt(1)))
	require.NoError(t, f.at(400, carol).reg.StartAuction(f.ctx, fooName))

	n, err := f.at(650, carol).reg.Bids().Sweep(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.reg.Bids().Bid(f.ctx, revealed, alice)
	assert.ErrorIs(t, err, registrar.ErrBidNonExistent)
	_, err = f.reg.Bids().Bid(f.ctx, idle, bob)
	assert.NoError(t, err, "foo still accepts reveals until 1000")

	// Once every window has closed, old unrevealed pledges go too.
	n, err = f.at(1001, carol).reg.Bids().Sweep(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, f.mem.Bids())
}

func TestNewBid_FullBalanceRangeOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := testutil.NewManualClock(0)
	id := testutil.NewIdentity(alice)
	reg, err := registrar.New(db, registrar.DefaultConfig(), registrar.Options{Clock: clock, Identity: id})
	require.NoError(t, err)

	const amount = ir.Balance(math.MaxInt64 + 1)
	s1 := salt(1)
	require.NoError(t, reg.StartAuction(ctx, fooName))
	require.NoError(t, reg.Bids().NewBid(ctx, commit.Commit(fooName, s1), amount))

	clock.Set(300)
	require.NoError(t, reg.RevealBid(ctx, fooName, s1))

	e, err := reg.Entry(ctx, fooName)
	require.NoError(t, err)
	assert.Equal(t, amount, e.HighestBid)
	assert.Equal(t, alice, e.Owner)
}
