package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/state"
)

// sqlTx adapts a database/sql transaction to state.Tx.
type sqlTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqlTx) Entry(ctx context.Context, name ir.Hash) (ir.Entry, bool, error) {
	if t.done {
		return ir.Entry{}, false, state.ErrTxDone
	}
	row := t.tx.QueryRowContext(ctx, `
		SELECT name, registered_at, highest_bid, owner, mode
		FROM entries
		WHERE name = ?
	`, name[:])

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Entry{}, false, nil
	}
	if err != nil {
		return ir.Entry{}, false, fmt.Errorf("read entry: %w", err)
	}
	return e, true, nil
}

func (t *sqlTx) PutEntry(ctx context.Context, e ir.Entry) error {
	if t.done {
		return state.ErrTxDone
	}
	if !e.Mode.Valid() {
		return fmt.Errorf("write entry: invalid mode %d", e.Mode)
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO entries (name, registered_at, highest_bid, owner, mode)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			registered_at = excluded.registered_at,
			highest_bid   = excluded.highest_bid,
			owner         = excluded.owner,
			mode          = excluded.mode
	`,
		e.Name[:],
		encodeUint64(uint64(e.RegisteredAt)),
		encodeUint64(uint64(e.HighestBid)),
		string(e.Owner),
		e.Mode.String(),
	)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

func (t *sqlTx) OpenEntries(ctx context.Context) ([]ir.Entry, error) {
	if t.done {
		return nil, state.ErrTxDone
	}
	rows, err := t.tx.QueryContext(ctx, `
		SELECT name, registered_at, highest_bid, owner, mode
		FROM entries
		WHERE mode IN ('auction', 'reveal')
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query open entries: %w", err)
	}
	defer rows.Close()

	var entries []ir.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open entries: %w", err)
	}
	return entries, nil
}

func (t *sqlTx) Bid(ctx context.Context, key ir.BidKey) (ir.SealedBid, bool, error) {
	if t.done {
		return ir.SealedBid{}, false, state.ErrTxDone
	}
	row := t.tx.QueryRowContext(ctx, `
		SELECT commitment, bidder, amount, placed_at, revealed_for
		FROM sealed_bids
		WHERE commitment = ? AND bidder = ?
	`, key.Commitment[:], string(key.Bidder))

	b, err := scanBid(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SealedBid{}, false, nil
	}
	if err != nil {
		return ir.SealedBid{}, false, fmt.Errorf("read bid: %w", err)
	}
	return b, true, nil
}

func (t *sqlTx) PutBid(ctx context.Context, b ir.SealedBid) error {
	if t.done {
		return state.ErrTxDone
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO sealed_bids (commitment, bidder, amount, placed_at, revealed_for)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(commitment, bidder) DO UPDATE SET
			amount       = excluded.amount,
			placed_at    = excluded.placed_at,
			revealed_for = excluded.revealed_for
	`,
		b.Commitment[:],
		string(b.Bidder),
		encodeUint64(uint64(b.Amount)),
		encodeUint64(uint64(b.PlacedAt)),
		nullableHash(b.RevealedFor),
	)
	if err != nil {
		return fmt.Errorf("write bid: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteRevealedBids(ctx context.Context, name ir.Hash) (int, error) {
	if t.done {
		return 0, state.ErrTxDone
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM sealed_bids WHERE revealed_for = ?`, name[:])
	if err != nil {
		return 0, fmt.Errorf("delete revealed bids: %w", err)
	}
	return rowsAffected(res)
}

func (t *sqlTx) DeleteBidsPlacedBefore(ctx context.Context, cutoff ir.Timestamp, revealedOnly bool) (int, error) {
	if t.done {
		return 0, state.ErrTxDone
	}
	query := `DELETE FROM sealed_bids WHERE placed_at < ?`
	if revealedOnly {
		query += ` AND revealed_for IS NOT NULL`
	}
	res, err := t.tx.ExecContext(ctx, query, encodeUint64(uint64(cutoff)))
	if err != nil {
		return 0, fmt.Errorf("delete bids: %w", err)
	}
	return rowsAffected(res)
}

func (t *sqlTx) Commit() error {
	if t.done {
		return state.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
