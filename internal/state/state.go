// Package state defines the transactional state object the registrar runs on.
//
// Every registrar call opens exactly one Tx, performs all reads and
// validation, stages its writes, and then either commits or rolls back.
// A rolled-back Tx leaves Entries and SealedBids exactly as they were.
//
// Two implementations exist: Memory in this package, and the SQLite-backed
// store in internal/store.
package state

import (
	"context"
	"errors"

	"github.com/roach88/registrar/internal/ir"
)

// ErrTxDone is returned when a Tx is used after Commit or Rollback.
var ErrTxDone = errors.New("transaction already finished")

// Store hands out transactions.
type Store interface {
	// Begin opens a transaction. Implementations serialize writers, so a
	// caller must finish one Tx before beginning the next.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single unit of work over entries and sealed bids.
//
// Rollback after Commit is a no-op, so callers can always defer Rollback.
type Tx interface {
	// Entry returns the entry for name and whether it exists.
	Entry(ctx context.Context, name ir.Hash) (ir.Entry, bool, error)

	// PutEntry inserts or replaces the entry keyed by e.Name.
	PutEntry(ctx context.Context, e ir.Entry) error

	// OpenEntries returns every entry in Auction or Reveal mode.
	OpenEntries(ctx context.Context) ([]ir.Entry, error)

	// Bid returns the pledge stored under key and whether it exists.
	Bid(ctx context.Context, key ir.BidKey) (ir.SealedBid, bool, error)

	// PutBid inserts or replaces the pledge keyed by b.Key().
	PutBid(ctx context.Context, b ir.SealedBid) error

	// DeleteRevealedBids removes every pledge revealed for name.
	DeleteRevealedBids(ctx context.Context, name ir.Hash) (int, error)

	// DeleteBidsPlacedBefore removes every pledge placed strictly before
	// cutoff. With revealedOnly set, pledges not yet revealed are kept.
	DeleteBidsPlacedBefore(ctx context.Context, cutoff ir.Timestamp, revealedOnly bool) (int, error)

	Commit() error
	Rollback() error
}
