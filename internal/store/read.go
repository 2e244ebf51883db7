package store

import (
	"context"
	"fmt"

	"github.com/roach88/registrar/internal/ir"
)

// ListEntries returns every entry ordered by name.
// Returns an empty slice (not nil) if no entries exist.
func (s *Store) ListEntries(ctx context.Context) ([]ir.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, registered_at, highest_bid, owner, mode
		FROM entries
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// ListBids returns every pledge placed by bidder, ordered by commitment.
// Returns an empty slice (not nil) if the bidder has none.
func (s *Store) ListBids(ctx context.Context, bidder ir.AccountID) ([]ir.SealedBid, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT commitment, bidder, amount, placed_at, revealed_for
		FROM sealed_bids
		WHERE bidder = ?
		ORDER BY commitment ASC
	`, string(bidder))
	if err != nil {
		return nil, fmt.Errorf("query bids: %w", err)
	}
	defer rows.Close()

	bids := []ir.SealedBid{}
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return bids, nil
}
