package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/state"
)

// Operation names, as used in errors, logs and metrics.
const (
	OpStartAuction    = "start_auction"
	OpNewBid          = "new_bid"
	OpRevealBid       = "reveal_bid"
	OpCancelBid       = "cancel_bid"
	OpRenew           = "renew"
	OpFinalizeAuction = "finalize_auction"
	OpExpire          = "expire"
	OpSweep           = "sweep"
)

// core runs calls: one identity read, one clock read, one transaction.
type core struct {
	mu       sync.Mutex
	store    state.Store
	clock    Clock
	identity IdentityProvider
	sink     EventSink
	callIDs  CallIDGenerator
	observer CallObserver
	logger   *slog.Logger
	seq      int64
}

// call is the per-call context handed to an operation body.
type call struct {
	id     string
	op     string
	caller ir.AccountID
	now    ir.Timestamp
	logger *slog.Logger
	events []ir.Event
}

// emit queues an event; it is delivered only if the call commits.
func (c *call) emit(kind ir.EventKind, name, sealedBid ir.Hash) {
	c.events = append(c.events, ir.Event{
		CallID:    c.id,
		Kind:      kind,
		Name:      name,
		SealedBid: sealedBid,
		From:      c.caller,
		At:        c.now,
	})
}

type body func(ctx context.Context, tx state.Tx, c *call) error

// run executes fn as one call. fn must perform every check before its first
// write; run rolls back on any error so partial writes never survive either
// way.
func (c *core) run(ctx context.Context, op string, subject ir.Hash, fn body) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.observer != nil {
		defer func() { c.observer.ObserveCall(op, err) }()
	}

	caller, err := c.identity.Caller(ctx)
	if err != nil {
		return fmt.Errorf("%s: identify caller: %w", op, err)
	}
	if caller.IsNone() {
		return fmt.Errorf("%s: %w", op, ErrNoCaller)
	}

	cl := &call{
		id:     c.callIDs.Generate(),
		op:     op,
		caller: caller,
		now:    c.clock.Now(),
	}
	cl.logger = c.logger.With("op", op, "call_id", cl.id, "caller", string(caller))
	cl.logger.DebugContext(ctx, "call", "subject", subject.String(), "now", uint64(cl.now))

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(ctx, tx, cl); err != nil {
		if kind, ok := KindOf(err); ok {
			cl.logger.InfoContext(ctx, "call rejected", "kind", string(kind))
			return err
		}
		cl.logger.ErrorContext(ctx, "call failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		cl.logger.ErrorContext(ctx, "commit failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, ev := range cl.events {
		c.seq++
		ev.Seq = c.seq
		c.sink.Emit(ctx, ev)
	}
	cl.logger.DebugContext(ctx, "call committed", "events", len(cl.events))
	return nil
}

// read runs fn in a transaction that is always rolled back.
func (c *core) read(ctx context.Context, fn func(tx state.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return fn(tx)
}
