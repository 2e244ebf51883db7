package registrar_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
	"github.com/roach88/registrar/internal/state"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := registrar.DefaultConfig()
	cfg.RenewPolicy = "everyone"

	_, err := registrar.New(state.NewMemory(), cfg, registrar.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renew policy")
}

func TestNew_NilStore(t *testing.T) {
	_, err := registrar.New(nil, registrar.DefaultConfig(), registrar.Options{})
	require.Error(t, err)
}

func TestNew_EmptyPolicyDefaultsToOwnerOnly(t *testing.T) {
	cfg := registrar.DefaultConfig()
	cfg.RenewPolicy = ""

	reg, err := registrar.New(state.NewMemory(), cfg, registrar.Options{})
	require.NoError(t, err)
	assert.Equal(t, registrar.RenewOwnerOnly, reg.Config().RenewPolicy)
}

func TestStartAuction_CreatesEntry(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())

	require.NoError(t, f.at(42, alice).reg.StartAuction(f.ctx, fooName))

	assert.Equal(t, ir.Entry{
		Name:         fooName,
		RegisteredAt: 42,
		HighestBid:   1,
		Owner:        ir.NoOwner,
		Mode:         ir.ModeAuction,
	}, f.entry(fooName))
	assert.Equal(t, []ir.EventKind{ir.EventAuctionStarted}, f.rec.Kinds())
}

func TestStartAuction_Duplicate(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	before := f.snapshot()

	err := f.at(10, bob).reg.StartAuction(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrAuctionStartedAlready)
	assert.Equal(t, before, f.snapshot())
	assert.Len(t, f.rec.Events(), 1)
}

func TestStartAuction_ExpiredEntry(t *testing.T) {
	for _, restart := range []bool{false, true} {
		t.Run(map[bool]string{false: "literal", true: "restart"}[restart], func(t *testing.T) {
			cfg := registrar.DefaultConfig()
			cfg.AllowRestartExpired = restart
			f := newFixture(t, cfg)
			f.ownFoo(alice, 100)

			require.NoError(t, f.at(901, carol).reg.Expire(f.ctx, fooName))
			require.Equal(t, ir.ModeExpired, f.entry(fooName).Mode)

			err := f.at(1000, carol).reg.StartAuction(f.ctx, fooName)
			if !restart {
				assert.ErrorIs(t, err, registrar.ErrAuctionStartedAlready)
				assert.Equal(t, ir.ModeExpired, f.entry(fooName).Mode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ir.Entry{
				Name:         fooName,
				RegisteredAt: 1000,
				HighestBid:   1,
				Owner:        ir.NoOwner,
				Mode:         ir.ModeAuction,
			}, f.entry(fooName))
		})
	}
}

// TestScenario_AliceAndBob walks the canonical two-bidder auction.
func TestScenario_AliceAndBob(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	name := commit.MustNameHash("foo")
	s1, s2 := salt(1), salt(2)

	require.NoError(t, f.at(0, alice).reg.StartAuction(f.ctx, name))
	f.at(10, alice).pledge(name, s1, 100)
	f.at(10, bob).pledge(name, s2, 200)

	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, name, s1))
	e := f.entry(name)
	assert.Equal(t, ir.Balance(100), e.HighestBid)
	assert.Equal(t, alice, e.Owner)
	assert.Equal(t, ir.ModeReveal, e.Mode)

	require.NoError(t, f.at(400, bob).reg.RevealBid(f.ctx, name, s2))
	e = f.entry(name)
	assert.Equal(t, ir.Balance(200), e.HighestBid)
	assert.Equal(t, bob, e.Owner)
	assert.Equal(t, ir.ModeReveal, e.Mode)

	err := f.at(500, bob).reg.FinalizeAuction(f.ctx, name)
	assert.ErrorIs(t, err, registrar.ErrAuctionInProgress)

	require.NoError(t, f.at(700, bob).reg.FinalizeAuction(f.ctx, name))
	e = f.entry(name)
	assert.Equal(t, ir.ModeOwned, e.Mode)
	assert.Equal(t, bob, e.Owner)
	assert.Equal(t, ir.Balance(200), e.HighestBid)

	assert.Equal(t, []ir.EventKind{
		ir.EventAuctionStarted,
		ir.EventNewBid,
		ir.EventNewBid,
		ir.EventRevealBid,
		ir.EventRevealBid,
		ir.EventAuctionFinalized,
	}, f.rec.Kinds())
	assert.Empty(t, f.mem.Bids(), "revealed bids are pruned on finalize")
}

func TestRevealBid_WindowBoundaries(t *testing.T) {
	tests := []struct {
		name string
		at   ir.Timestamp
		want error
	}{
		{"before window", 299, registrar.ErrAuctionInProgress},
		{"window opens", 300, nil},
		{"window closes", 600, nil},
		{"after window", 601, registrar.ErrRevealPeriodHasEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, registrar.DefaultConfig())
			require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
			f.pledge(fooName, salt(1), 5)

			err := f.at(tt.at, alice).reg.RevealBid(f.ctx, fooName, salt(1))
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, alice, f.entry(fooName).Owner)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, ir.ModeAuction, f.entry(fooName).Mode)
		})
	}
}

func TestRevealBid_Rejections(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())

	err := f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1))
	assert.ErrorIs(t, err, registrar.ErrInvalidNameHash)

	f = newFixture(t, registrar.DefaultConfig())
	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	f.pledge(fooName, salt(1), 5)

	// Wrong salt, and right salt from the wrong bidder.
	err = f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(2))
	assert.ErrorIs(t, err, registrar.ErrInvalidBidReveal)
	err = f.at(300, bob).reg.RevealBid(f.ctx, fooName, salt(1))
	assert.ErrorIs(t, err, registrar.ErrInvalidBidReveal)

	assert.Equal(t, []ir.EventKind{ir.EventAuctionStarted, ir.EventNewBid}, f.rec.Kinds())
}

func TestRevealBid_AfterFinalize(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	f.ownFoo(alice, 100)

	err := f.at(700, alice).reg.RevealBid(f.ctx, fooName, salt(1))
	assert.ErrorIs(t, err, registrar.ErrAuctionHasEnded)
}

func TestRevealBid_LowerOrEqualDoesNotLead(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	f.at(1, alice).pledge(fooName, salt(1), 100)
	f.at(1, bob).pledge(fooName, salt(2), 100)
	f.at(1, carol).pledge(fooName, salt(3), 50)

	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1)))
	require.NoError(t, f.at(301, bob).reg.RevealBid(f.ctx, fooName, salt(2)))
	require.NoError(t, f.at(302, carol).reg.RevealBid(f.ctx, fooName, salt(3)))

	e := f.entry(fooName)
	assert.Equal(t, alice, e.Owner, "ties keep the first revealer")
	assert.Equal(t, ir.Balance(100), e.HighestBid)
	assert.Equal(t, 3, countKind(f.rec, ir.EventRevealBid))
}

func TestRevealBid_BelowMinPriceKeepsAuctionMode(t *testing.T) {
	cfg := registrar.DefaultConfig()
	cfg.MinPrice = 10
	f := newFixture(t, cfg)
	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	f.pledge(fooName, salt(1), 10)

	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1)))
	e := f.entry(fooName)
	assert.Equal(t, ir.ModeAuction, e.Mode)
	assert.True(t, e.Owner.IsNone())

	err := f.at(601, alice).reg.FinalizeAuction(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrAuctionInProgress)
}

func TestRevealBid_CanceledPledge(t *testing.T) {
	tests := []struct {
		minPrice  ir.Balance
		wantOwner ir.AccountID
		wantMode  ir.Mode
	}{
		{minPrice: 1, wantOwner: ir.NoOwner, wantMode: ir.ModeAuction},
		{minPrice: 0, wantOwner: ir.NoOwner, wantMode: ir.ModeAuction},
	}
	for _, tt := range tests {
		cfg := registrar.DefaultConfig()
		cfg.MinPrice = tt.minPrice
		f := newFixture(t, cfg)
		require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
		c := f.pledge(fooName, salt(1), 5)
		require.NoError(t, f.reg.Bids().CancelBid(f.ctx, c))

		require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1)))
		e := f.entry(fooName)
		assert.Equal(t, tt.wantOwner, e.Owner, "min_price %d", tt.minPrice)
		assert.Equal(t, tt.wantMode, e.Mode, "min_price %d", tt.minPrice)
		assert.Equal(t, tt.minPrice, e.HighestBid)
	}
}

func TestFinalizeAuction_Boundaries(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())

	err := f.reg.FinalizeAuction(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrInvalidNameHash)

	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	err = f.at(700, alice).reg.FinalizeAuction(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrAuctionInProgress, "no reveal, mode still Auction")

	f = newFixture(t, registrar.DefaultConfig())
	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	f.pledge(fooName, salt(1), 5)
	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1)))

	err = f.at(600, alice).reg.FinalizeAuction(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrAuctionInProgress)
	require.NoError(t, f.at(601, bob).reg.FinalizeAuction(f.ctx, fooName))
	assert.Equal(t, alice, f.entry(fooName).Owner, "anyone may finalize")

	err = f.at(602, alice).reg.FinalizeAuction(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrAuctionInProgress, "already owned")
}

func TestFinalizeAuction_PrunesOnlyRevealedBids(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	other := commit.MustNameHash("bar.eth")
	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	require.NoError(t, f.reg.StartAuction(f.ctx, other))
	f.at(1, alice).pledge(fooName, salt(1), 5)
	f.at(1, bob).pledge(fooName, salt(2), 3)
	keep := f.at(1, bob).pledge(other, salt(3), 7)

	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1)))
	require.NoError(t, f.at(300, bob).reg.RevealBid(f.ctx, fooName, salt(2)))
	require.NoError(t, f.at(601, alice).reg.FinalizeAuction(f.ctx, fooName))

	bids := f.mem.Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, keep, bids[0].Commitment)
}

func TestRenew(t *testing.T) {
	tests := []struct {
		name    string
		policy    registrar.RenewPolicy
		caller    ir.AccountID
		wantOwner ir.AccountID
		wantErr   error
	}{
		{"owner, owner-only", registrar.RenewOwnerOnly, alice, alice, nil},
		{"stranger, owner-only", registrar.RenewOwnerOnly, carol, alice, registrar.ErrInvalidRenew},
		{"owner, any-caller", registrar.RenewAnyCaller, alice, alice, nil},
		{"stranger, any-caller", registrar.RenewAnyCaller, carol, carol, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := registrar.DefaultConfig()
			cfg.RenewPolicy = tt.policy
			f := newFixture(t, cfg)
			f.ownFoo(alice, 100)
			before := f.entry(fooName)

			err := f.at(700, tt.caller).reg.Renew(f.ctx, fooName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, f.entry(fooName))
				return
			}
			require.NoError(t, err)
			after := f.entry(fooName)
			assert.Equal(t, before.RegisteredAt+300, after.RegisteredAt)
			assert.Equal(t, tt.wantOwner, after.Owner)
			assert.Equal(t, ir.ModeOwned, after.Mode)
			assert.Equal(t, ir.EventRenewBid, f.rec.Kinds()[len(f.rec.Kinds())-1])
		})
	}
}

func TestRenew_WrongMode(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())

	assert.ErrorIs(t, f.reg.Renew(f.ctx, fooName), registrar.ErrInvalidNameHash)

	require.NoError(t, f.reg.StartAuction(f.ctx, fooName))
	assert.ErrorIs(t, f.reg.Renew(f.ctx, fooName), registrar.ErrInvalidRenew)

	f.pledge(fooName, salt(1), 5)
	require.NoError(t, f.at(300, alice).reg.RevealBid(f.ctx, fooName, salt(1)))
	assert.ErrorIs(t, f.reg.Renew(f.ctx, fooName), registrar.ErrInvalidRenew, "Reveal mode")
}

func TestRenew_ExpiredReturnsToOwned(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	f.ownFoo(alice, 100)
	require.NoError(t, f.at(901, bob).reg.Expire(f.ctx, fooName))

	require.NoError(t, f.at(950, alice).reg.Renew(f.ctx, fooName))
	e := f.entry(fooName)
	assert.Equal(t, ir.ModeOwned, e.Mode)
	assert.Equal(t, ir.Timestamp(300), e.RegisteredAt)

	// Expires again at 300+900.
	assert.ErrorIs(t, f.at(1200, bob).reg.Expire(f.ctx, fooName), registrar.ErrNameNotExpired)
	require.NoError(t, f.at(1201, bob).reg.Expire(f.ctx, fooName))
}

func TestExpire(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())

	assert.ErrorIs(t, f.reg.Expire(f.ctx, fooName), registrar.ErrInvalidNameHash)

	f.ownFoo(alice, 100)
	assert.ErrorIs(t, f.at(900, bob).reg.Expire(f.ctx, fooName), registrar.ErrNameNotExpired)
	require.NoError(t, f.at(901, bob).reg.Expire(f.ctx, fooName))
	assert.Equal(t, ir.ModeExpired, f.entry(fooName).Mode)
	assert.Equal(t, alice, f.entry(fooName).Owner)

	assert.ErrorIs(t, f.at(902, bob).reg.Expire(f.ctx, fooName), registrar.ErrNameNotExpired)
}

func TestEntry_NotFound(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	_, err := f.reg.Entry(f.ctx, fooName)
	assert.ErrorIs(t, err, registrar.ErrInvalidNameHash)
}

func TestRejectedCallsLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	f.ownFoo(alice, 100)
	c := f.at(650, bob).pledge(fooName, salt(9), 4)
	before := f.snapshot()
	events := len(f.rec.Events())

	calls := []func() error{
		func() error { return f.reg.StartAuction(f.ctx, fooName) },
		func() error { return f.reg.RevealBid(f.ctx, fooName, salt(9)) },
		func() error { return f.reg.FinalizeAuction(f.ctx, fooName) },
		func() error { return f.reg.Renew(f.ctx, fooName) },
		func() error { return f.reg.Expire(f.ctx, fooName) },
		func() error { return f.reg.Bids().NewBid(f.ctx, c, 0) },
		func() error { return f.reg.Bids().CancelBid(f.ctx, salt(7)) },
	}
	f.at(660, bob)
	for i, call := range calls {
		err := call()
		require.Error(t, err, "call %d", i)
		_, ok := registrar.KindOf(err)
		assert.True(t, ok, "call %d: %v", i, err)
	}

	assert.Equal(t, before, f.snapshot())
	assert.Len(t, f.rec.Events(), events)
}

func TestCallsRequireCaller(t *testing.T) {
	reg, err := registrar.New(state.NewMemory(), registrar.DefaultConfig(), registrar.Options{})
	require.NoError(t, err)

	err = reg.StartAuction(context.Background(), fooName)
	require.ErrorIs(t, err, registrar.ErrNoCaller)
	_, ok := registrar.KindOf(err)
	assert.False(t, ok)

	ctx := registrar.WithCaller(context.Background(), alice)
	require.NoError(t, reg.StartAuction(ctx, fooName))
}

func TestEvents_StampedAfterCommit(t *testing.T) {
	f := newFixture(t, registrar.DefaultConfig())
	require.NoError(t, f.at(5, alice).reg.StartAuction(f.ctx, fooName))
	c := f.at(6, bob).pledge(fooName, salt(1), 3)
	require.NoError(t, f.at(7, bob).reg.Bids().CancelBid(f.ctx, c))

	evs := f.rec.Events()
	require.Len(t, evs, 3)
	for i, ev := range evs {
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, ir.Event{Seq: 1, CallID: "call-1", Kind: ir.EventAuctionStarted, Name: fooName, From: alice, At: 5}, evs[0])
	assert.Equal(t, ir.Event{Seq: 2, CallID: "call-2", Kind: ir.EventNewBid, SealedBid: c, From: bob, At: 6}, evs[1])
	// CancelBid carries the commitment in SealedBid, never in Name.
	assert.Equal(t, ir.Event{Seq: 3, CallID: "call-3", Kind: ir.EventCancelBid, SealedBid: c, From: bob, At: 7}, evs[2])
}

func TestEvents_StartSeqResumes(t *testing.T) {
	rec := &registrar.Recorder{}
	reg, err := registrar.New(state.NewMemory(), registrar.DefaultConfig(), registrar.Options{
		Identity: registrar.StaticIdentity(alice),
		Sink:     rec,
		StartSeq: 41,
	})
	require.NoError(t, err)

	require.NoError(t, reg.StartAuction(context.Background(), fooName))
	require.Len(t, rec.Events(), 1)
	assert.Equal(t, int64(42), rec.Events()[0].Seq)
}

type observed struct {
	op  string
	err error
}

type recordingObserver struct{ calls []observed }

func (o *recordingObserver) ObserveCall(op string, err error) {
	o.calls = append(o.calls, observed{op, err})
}

func TestObserverSeesEveryCall(t *testing.T) {
	obs := &recordingObserver{}
	reg, err := registrar.New(state.NewMemory(), registrar.DefaultConfig(), registrar.Options{
		Identity: registrar.StaticIdentity(alice),
		Observer: obs,
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, reg.StartAuction(ctx, fooName))
	require.Error(t, reg.StartAuction(ctx, fooName))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, registrar.OpStartAuction, obs.calls[0].op)
	assert.NoError(t, obs.calls[0].err)
	assert.True(t, errors.Is(obs.calls[1].err, registrar.ErrAuctionStartedAlready))
}

// ownFoo runs a one-bidder auction for fooName starting at t=0, leaving it
// Owned by owner at t=601.
func (f *fixture) ownFoo(owner ir.AccountID, amount ir.Balance) {
	f.t.Helper()
	require.NoError(f.t, f.at(0, owner).reg.StartAuction(f.ctx, fooName))
	f.pledge(fooName, salt(1), amount)
	require.NoError(f.t, f.at(300, owner).reg.RevealBid(f.ctx, fooName, salt(1)))
	require.NoError(f.t, f.at(601, owner).reg.FinalizeAuction(f.ctx, fooName))
}

func countKind(rec *registrar.Recorder, kind ir.EventKind) int {
	n := 0
	for _, k := range rec.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}
