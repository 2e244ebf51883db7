package state

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/registrar/internal/ir"
)

// Memory is an in-process Store.
//
// A Tx holds the store lock from Begin until Commit or Rollback, and stages
// writes in an overlay that is only applied on Commit.
type Memory struct {
	mu      sync.Mutex
	entries map[ir.Hash]ir.Entry
	bids    map[ir.BidKey]ir.SealedBid
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[ir.Hash]ir.Entry),
		bids:    make(map[ir.BidKey]ir.SealedBid),
	}
}

// Begin implements Store.
func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	return &memTx{
		m:       m,
		entries: make(map[ir.Hash]ir.Entry),
		bids:    make(map[ir.BidKey]*ir.SealedBid),
	}, nil
}

// Entries returns every committed entry ordered by name.
func (m *Memory) Entries() []ir.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ir.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return lessHash(out[i].Name, out[j].Name)
	})
	return out
}

// Bids returns every committed pledge ordered by commitment, then bidder.
func (m *Memory) Bids() []ir.SealedBid {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ir.SealedBid, 0, len(m.bids))
	for _, b := range m.bids {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commitment != out[j].Commitment {
			return lessHash(out[i].Commitment, out[j].Commitment)
		}
		return out[i].Bidder < out[j].Bidder
	})
	return out
}

func lessHash(a, b ir.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

type memTx struct {
	m       *Memory
	entries map[ir.Hash]ir.Entry
	bids    map[ir.BidKey]*ir.SealedBid // nil marks a staged delete
	done    bool
}

func (tx *memTx) Entry(_ context.Context, name ir.Hash) (ir.Entry, bool, error) {
	if tx.done {
		return ir.Entry{}, false, ErrTxDone
	}
	if e, ok := tx.entries[name]; ok {
		return e, true, nil
	}
	e, ok := tx.m.entries[name]
	return e, ok, nil
}

func (tx *memTx) PutEntry(_ context.Context, e ir.Entry) error {
	if tx.done {
		return ErrTxDone
	}
	tx.entries[e.Name] = e
	return nil
}

func (tx *memTx) OpenEntries(_ context.Context) ([]ir.Entry, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	var out []ir.Entry
	for name, e := range tx.m.entries {
		if staged, ok := tx.entries[name]; ok {
			e = staged
		}
		if isOpen(e) {
			out = append(out, e)
		}
	}
	for name, e := range tx.entries {
		if _, committed := tx.m.entries[name]; !committed && isOpen(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessHash(out[i].Name, out[j].Name)
	})
	return out, nil
}

func isOpen(e ir.Entry) bool {
	return e.Mode == ir.ModeAuction || e.Mode == ir.ModeReveal
}

func (tx *memTx) Bid(_ context.Context, key ir.BidKey) (ir.SealedBid, bool, error) {
	if tx.done {
		return ir.SealedBid{}, false, ErrTxDone
	}
	if b, ok := tx.bids[key]; ok {
		if b == nil {
			return ir.SealedBid{}, false, nil
		}
		return *b, true, nil
	}
	b, ok := tx.m.bids[key]
	return b, ok, nil
}

func (tx *memTx) PutBid(_ context.Context, b ir.SealedBid) error {
	if tx.done {
		return ErrTxDone
	}
	tx.bids[b.Key()] = &b
	return nil
}

func (tx *memTx) DeleteRevealedBids(_ context.Context, name ir.Hash) (int, error) {
	return tx.deleteWhere(func(b ir.SealedBid) bool {
		return !b.RevealedFor.IsZero() && b.RevealedFor == name
	})
}

func (tx *memTx) DeleteBidsPlacedBefore(_ context.Context, cutoff ir.Timestamp, revealedOnly bool) (int, error) {
	return tx.deleteWhere(func(b ir.SealedBid) bool {
		if revealedOnly && b.RevealedFor.IsZero() {
			return false
		}
		return b.PlacedAt < cutoff
	})
}

// deleteWhere stages a delete for every visible pledge matching pred.
func (tx *memTx) deleteWhere(pred func(ir.SealedBid) bool) (int, error) {
	if tx.done {
		return 0, ErrTxDone
	}
	var doomed []ir.BidKey
	for key, b := range tx.m.bids {
		if _, staged := tx.bids[key]; !staged && pred(b) {
			doomed = append(doomed, key)
		}
	}
	for key, b := range tx.bids {
		if b != nil && pred(*b) {
			doomed = append(doomed, key)
		}
	}
	for _, key := range doomed {
		tx.bids[key] = nil
	}
	return len(doomed), nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	for name, e := range tx.entries {
		tx.m.entries[name] = e
	}
	for key, b := range tx.bids {
		if b == nil {
			delete(tx.m.bids, key)
			continue
		}
		tx.m.bids[key] = *b
	}
	tx.finish()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.finish()
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	tx.entries = nil
	tx.bids = nil
	tx.m.mu.Unlock()
}
