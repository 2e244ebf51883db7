package store

import (
	"database/sql"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/roach88/registrar/internal/ir"
)

// eventEncMode produces deterministic CBOR so that event IDs are stable.
var eventEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// marshalEvent encodes an event for the payload column.
func marshalEvent(ev ir.Event) ([]byte, error) {
	data, err := eventEncMode.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// unmarshalEvent decodes a payload column back into an event.
func unmarshalEvent(data []byte) (ir.Event, error) {
	var ev ir.Event
	if err := cbor.Unmarshal(data, &ev); err != nil {
		return ir.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// signBit flips uint64 column values into SQLite's signed INTEGER range.
const signBit = 1 << 63

// encodeUint64 maps v onto int64 keeping the unsigned order, so 0 is stored
// as MinInt64 and MaxUint64 as MaxInt64. Range comparisons in SQL must use
// encoded operands.
func encodeUint64(v uint64) int64 {
	return int64(v ^ signBit)
}

func decodeUint64(v int64) uint64 {
	return uint64(v) ^ signBit
}

func nullableHash(h ir.Hash) any {
	if h.IsZero() {
		return nil
	}
	return h[:]
}

func scanHash(field string, b []byte) (ir.Hash, error) {
	h, err := ir.HashFromBytes(b)
	if err != nil {
		return ir.Hash{}, fmt.Errorf("scan %s: %w", field, err)
	}
	return h, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (ir.Entry, error) {
	var (
		name         []byte
		registeredAt int64
		highestBid   int64
		owner        string
		mode         string
	)
	if err := row.Scan(&name, &registeredAt, &highestBid, &owner, &mode); err != nil {
		return ir.Entry{}, err
	}

	h, err := scanHash("name", name)
	if err != nil {
		return ir.Entry{}, err
	}
	m, err := ir.ParseMode(mode)
	if err != nil {
		return ir.Entry{}, fmt.Errorf("scan mode: %w", err)
	}

	return ir.Entry{
		Name:         h,
		RegisteredAt: ir.Timestamp(decodeUint64(registeredAt)),
		HighestBid:   ir.Balance(decodeUint64(highestBid)),
		Owner:        ir.AccountID(owner),
		Mode:         m,
	}, nil
}

func scanBid(row rowScanner) (ir.SealedBid, error) {
	var (
		commitment  []byte
		bidder      string
		amount      int64
		placedAt    int64
		revealedFor []byte
	)
	if err := row.Scan(&commitment, &bidder, &amount, &placedAt, &revealedFor); err != nil {
		return ir.SealedBid{}, err
	}

	c, err := scanHash("commitment", commitment)
	if err != nil {
		return ir.SealedBid{}, err
	}
	b := ir.SealedBid{
		Commitment: c,
		Bidder:     ir.AccountID(bidder),
		Amount:     ir.Balance(decodeUint64(amount)),
		PlacedAt:   ir.Timestamp(decodeUint64(placedAt)),
	}
	if revealedFor != nil {
		if b.RevealedFor, err = scanHash("revealed_for", revealedFor); err != nil {
			return ir.SealedBid{}, err
		}
	}
	return b, nil
}

var _ rowScanner = (*sql.Row)(nil)
