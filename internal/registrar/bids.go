package registrar

import (
	"context"
	"fmt"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/state"
)

// BidBook owns sealed pledges keyed by (commitment, bidder).
//
// Pledges are never bound to a name until they are revealed. Canceling keeps
// the row with amount 0; rows disappear only through pruning on finalize or
// an explicit Sweep.
type BidBook struct {
	cfg  Config
	core *core
}

// NewBid pledges amount under (commitment, caller), replacing any earlier
// pledge by the same caller on the same commitment.
func (b *BidBook) NewBid(ctx context.Context, commitment ir.Hash, amount ir.Balance) error {
	return b.core.run(ctx, OpNewBid, commitment, func(ctx context.Context, tx state.Tx, c *call) error {
		if amount < b.cfg.MinPrice {
			return reject(KindInvalidBidPrice, c.op, commitment,
				fmt.Sprintf("%d below minimum %d", amount, b.cfg.MinPrice))
		}

		bid := ir.SealedBid{
			Commitment: commitment,
			Bidder:     c.caller,
			Amount:     amount,
			PlacedAt:   c.now,
		}
		if err := tx.PutBid(ctx, bid); err != nil {
			return err
		}
		c.emit(ir.EventNewBid, ir.ZeroHash, commitment)
		return nil
	})
}

// CancelBid zeroes the caller's pledge under commitment.
//
// The CancelBid event carries the commitment in its SealedBid field.
func (b *BidBook) CancelBid(ctx context.Context, commitment ir.Hash) error {
	return b.core.run(ctx, OpCancelBid, commitment, func(ctx context.Context, tx state.Tx, c *call) error {
		bid, found, err := b.lookup(ctx, tx, ir.BidKey{Commitment: commitment, Bidder: c.caller})
		if err != nil {
			return err
		}
		if !found {
			return reject(KindBidNonExistent, c.op, commitment, "")
		}

		bid.Amount = 0
		if err := tx.PutBid(ctx, bid); err != nil {
			return err
		}
		c.emit(ir.EventCancelBid, ir.ZeroHash, commitment)
		return nil
	})
}

// Bid returns the pledge under (commitment, bidder), or ErrBidNonExistent.
func (b *BidBook) Bid(ctx context.Context, commitment ir.Hash, bidder ir.AccountID) (ir.SealedBid, error) {
	var bid ir.SealedBid
	err := b.core.read(ctx, func(tx state.Tx) error {
		var found bool
		var err error
		bid, found, err = b.lookup(ctx, tx, ir.BidKey{Commitment: commitment, Bidder: bidder})
		if err != nil {
			return err
		}
		if !found {
			return reject(KindBidNonExistent, "bid", commitment, "")
		}
		return nil
	})
	return bid, err
}

// Sweep deletes pledges placed more than retention ago and returns how many
// were removed. retention is raised to AuctionDuration+RevealPeriodDuration.
//
// A pledge is bound to a name only when revealed, so while any auction can
// still accept a reveal, unrevealed pledges are kept whatever their age.
// Otherwise an old unrevealed pledge is swept, even if its name is auctioned
// later.
func (b *BidBook) Sweep(ctx context.Context, retention ir.Timestamp) (int, error) {
	var removed int
	err := b.core.run(ctx, OpSweep, ir.ZeroHash, func(ctx context.Context, tx state.Tx, c *call) error {
		if floor := addSat(b.cfg.AuctionDuration, b.cfg.RevealPeriodDuration); retention < floor {
			retention = floor
		}
		if c.now <= retention {
			return nil
		}

		revealedOnly, err := b.revealPending(ctx, tx, c.now)
		if err != nil {
			return err
		}
		n, err := tx.DeleteBidsPlacedBefore(ctx, c.now-retention, revealedOnly)
		if err != nil {
			return err
		}
		removed = n
		c.logger.DebugContext(ctx, "swept bids", "removed", n,
			"cutoff", uint64(c.now-retention), "revealed_only", revealedOnly)
		return nil
	})
	return removed, err
}

// revealPending reports whether some entry still accepts reveals at now or
// later.
func (b *BidBook) revealPending(ctx context.Context, tx state.Tx, now ir.Timestamp) (bool, error) {
	open, err := tx.OpenEntries(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range open {
		if now <= b.cfg.RevealClosesAt(e) {
			return true, nil
		}
	}
	return false, nil
}

func (b *BidBook) lookup(ctx context.Context, tx state.Tx, key ir.BidKey) (ir.SealedBid, bool, error) {
	return tx.Bid(ctx, key)
}

func (b *BidBook) markRevealed(ctx context.Context, tx state.Tx, bid ir.SealedBid, name ir.Hash) error {
	bid.RevealedFor = name
	return tx.PutBid(ctx, bid)
}

func (b *BidBook) pruneRevealed(ctx context.Context, tx state.Tx, name ir.Hash) (int, error) {
	return tx.DeleteRevealedBids(ctx, name)
}
