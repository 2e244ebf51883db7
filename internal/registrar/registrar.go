package registrar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/state"
)

// Options wires a Registrar to its host. Zero fields get defaults.
type Options struct {
	// Clock defaults to SystemClock.
	Clock Clock

	// Identity defaults to ContextIdentity.
	Identity IdentityProvider

	// Sink defaults to DiscardSink.
	Sink EventSink

	// CallIDs defaults to UUIDv7Generator.
	CallIDs CallIDGenerator

	// Observer is optional.
	Observer CallObserver

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// StartSeq is the last event seq already delivered; the first event of
	// this Registrar gets StartSeq+1. Used to resume a persisted event log.
	StartSeq int64
}

// Registrar owns the per-name entries and drives their lifecycle.
type Registrar struct {
	cfg  Config
	core *core
	bids *BidBook
}

// New creates a Registrar over st.
func New(st state.Store, cfg Config, opts Options) (*Registrar, error) {
	if st == nil {
		return nil, fmt.Errorf("registrar: nil state store")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("registrar: %w", err)
	}
	cfg.RenewPolicy = cfg.renewPolicy()

	c := &core{
		store:    st,
		clock:    opts.Clock,
		identity: opts.Identity,
		sink:     opts.Sink,
		callIDs:  opts.CallIDs,
		observer: opts.Observer,
		logger:   opts.Logger,
		seq:      opts.StartSeq,
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.identity == nil {
		c.identity = ContextIdentity{}
	}
	if c.sink == nil {
		c.sink = DiscardSink{}
	}
	if c.callIDs == nil {
		c.callIDs = UUIDv7Generator{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return &Registrar{
		cfg:  cfg,
		core: c,
		bids: &BidBook{cfg: cfg, core: c},
	}, nil
}

// Config returns the configuration the Registrar was built with.
func (r *Registrar) Config() Config {
	return r.cfg
}

// Bids returns the sealed-bid book sharing this Registrar's state and host.
func (r *Registrar) Bids() *BidBook {
	return r.bids
}

// Entry returns the current entry for name, or ErrInvalidNameHash.
func (r *Registrar) Entry(ctx context.Context, name ir.Hash) (ir.Entry, error) {
	var e ir.Entry
	err := r.core.read(ctx, func(tx state.Tx) error {
		var ok bool
		var err error
		e, ok, err = tx.Entry(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return reject(KindInvalidNameHash, "entry", name, "")
		}
		return nil
	})
	return e, err
}

// StartAuction opens the bidding window for name.
//
// Any existing entry is a duplicate, whatever its mode, unless
// AllowRestartExpired is set and the entry is Expired.
func (r *Registrar) StartAuction(ctx context.Context, name ir.Hash) error {
	return r.core.run(ctx, OpStartAuction, name, func(ctx context.Context, tx state.Tx, c *call) error {
		existing, ok, err := tx.Entry(ctx, name)
		if err != nil {
			return err
		}
		if ok && !(r.cfg.AllowRestartExpired && existing.Mode == ir.ModeExpired) {
			return reject(KindAuctionStartedAlready, c.op, name, "entry is "+existing.Mode.String())
		}

		e := ir.Entry{
			Name:         name,
			RegisteredAt: c.now,
			HighestBid:   r.cfg.MinPrice,
			Owner:        ir.NoOwner,
			Mode:         ir.ModeAuction,
		}
		if err := tx.PutEntry(ctx, e); err != nil {
			return err
		}
		c.emit(ir.EventAuctionStarted, name, ir.ZeroHash)
		return nil
	})
}

// RevealBid discloses salt for the caller's pledge on name.
//
// The pledge is found under (Commit(name, salt), caller). A strictly higher
// amount than the current highest bid makes the caller the leader and moves
// the entry to Reveal; otherwise the entry is unchanged. Reveals are
// accepted while the entry is in Auction or Reveal mode, within the reveal
// window.
func (r *Registrar) RevealBid(ctx context.Context, name, salt ir.Hash) error {
	return r.core.run(ctx, OpRevealBid, name, func(ctx context.Context, tx state.Tx, c *call) error {
		e, ok, err := tx.Entry(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return reject(KindInvalidNameHash, c.op, name, "")
		}
		if e.Mode != ir.ModeAuction && e.Mode != ir.ModeReveal {
			return reject(KindAuctionHasEnded, c.op, name, "entry is "+e.Mode.String())
		}
		if c.now < r.cfg.RevealOpensAt(e) {
			return reject(KindAuctionInProgress, c.op, name,
				fmt.Sprintf("reveal opens at %d", r.cfg.RevealOpensAt(e)))
		}
		if c.now > r.cfg.RevealClosesAt(e) {
			return reject(KindRevealPeriodHasEnded, c.op, name,
				fmt.Sprintf("reveal closed at %d", r.cfg.RevealClosesAt(e)))
		}

		key := ir.BidKey{Commitment: commit.Commit(name, salt), Bidder: c.caller}
		bid, found, err := r.bids.lookup(ctx, tx, key)
		if err != nil {
			return err
		}
		if !found {
			return reject(KindInvalidBidReveal, c.op, name, "")
		}

		if bid.Amount > e.HighestBid {
			e.HighestBid = bid.Amount
			e.Owner = c.caller
			e.Mode = ir.ModeReveal
			if err := tx.PutEntry(ctx, e); err != nil {
				return err
			}
			c.logger.DebugContext(ctx, "new leader", "amount", uint64(bid.Amount))
		}
		if err := r.bids.markRevealed(ctx, tx, bid, name); err != nil {
			return err
		}
		c.emit(ir.EventRevealBid, name, ir.ZeroHash)
		return nil
	})
}

// FinalizeAuction hands name to the leader once the reveal window closed.
// Pledges revealed for name are pruned.
func (r *Registrar) FinalizeAuction(ctx context.Context, name ir.Hash) error {
	return r.core.run(ctx, OpFinalizeAuction, name, func(ctx context.Context, tx state.Tx, c *call) error {
		e, ok, err := tx.Entry(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return reject(KindInvalidNameHash, c.op, name, "")
		}
		if e.Mode != ir.ModeReveal {
			return reject(KindAuctionInProgress, c.op, name, "entry is "+e.Mode.String())
		}
		if c.now <= r.cfg.RevealClosesAt(e) {
			return reject(KindAuctionInProgress, c.op, name,
				fmt.Sprintf("reveal window open until %d", r.cfg.RevealClosesAt(e)))
		}

		e.Mode = ir.ModeOwned
		if err := tx.PutEntry(ctx, e); err != nil {
			return err
		}
		pruned, err := r.bids.pruneRevealed(ctx, tx, name)
		if err != nil {
			return err
		}
		c.logger.DebugContext(ctx, "auction finalized", "owner", string(e.Owner), "pruned_bids", pruned)
		c.emit(ir.EventAuctionFinalized, name, ir.ZeroHash)
		return nil
	})
}

// Renew extends an Owned or Expired name by ExpirationDuration and returns it
// to Owned. Under RenewOwnerOnly only the owner may renew; under
// RenewAnyCaller the caller takes ownership.
func (r *Registrar) Renew(ctx context.Context, name ir.Hash) error {
	return r.core.run(ctx, OpRenew, name, func(ctx context.Context, tx state.Tx, c *call) error {
		e, ok, err := tx.Entry(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return reject(KindInvalidNameHash, c.op, name, "")
		}
		if e.Mode != ir.ModeOwned && e.Mode != ir.ModeExpired {
			return reject(KindInvalidRenew, c.op, name, "entry is "+e.Mode.String())
		}
		if r.cfg.RenewPolicy == RenewOwnerOnly && c.caller != e.Owner {
			return reject(KindInvalidRenew, c.op, name, "caller is not the owner")
		}

		e.RegisteredAt = addSat(e.RegisteredAt, r.cfg.ExpirationDuration)
		e.Mode = ir.ModeOwned
		if r.cfg.RenewPolicy == RenewAnyCaller {
			e.Owner = c.caller
		}
		if err := tx.PutEntry(ctx, e); err != nil {
			return err
		}
		c.emit(ir.EventRenewBid, name, ir.ZeroHash)
		return nil
	})
}

// Expire marks an Owned name Expired once ExpiresAt has passed.
func (r *Registrar) Expire(ctx context.Context, name ir.Hash) error {
	return r.core.run(ctx, OpExpire, name, func(ctx context.Context, tx state.Tx, c *call) error {
		e, ok, err := tx.Entry(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return reject(KindInvalidNameHash, c.op, name, "")
		}
		if e.Mode != ir.ModeOwned {
			return reject(KindNameNotExpired, c.op, name, "entry is "+e.Mode.String())
		}
		if c.now <= r.cfg.ExpiresAt(e) {
			return reject(KindNameNotExpired, c.op, name,
				fmt.Sprintf("held until %d", r.cfg.ExpiresAt(e)))
		}

		e.Mode = ir.ModeExpired
		if err := tx.PutEntry(ctx, e); err != nil {
			return err
		}
		c.emit(ir.EventNameExpired, name, ir.ZeroHash)
		return nil
	})
}
