package harness

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/config"
	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
	"github.com/roach88/registrar/internal/state"
	"github.com/roach88/registrar/internal/store"
	"github.com/roach88/registrar/internal/testutil"
)

// Harness drives one scenario against a fresh registrar.
type Harness struct {
	reg   *registrar.Registrar
	clock *testutil.ManualClock
	id    *testutil.Identity
	rec   *registrar.Recorder
	db    *store.Store

	// aliases maps name and commitment hashes back to scenario labels.
	aliases map[ir.Hash]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in an isolated store. A returned error means the
// scenario could not be executed; expectation mismatches are reported in
// Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := config.Parse([]byte(scenario.Config), scenario.Name+".config")
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		clock:   testutil.NewManualClock(0),
		id:      testutil.NewIdentity(ir.NoOwner),
		rec:     &registrar.Recorder{},
		aliases: make(map[ir.Hash]string),
	}

	var st state.Store
	sink := registrar.MultiSink{h.rec}
	switch scenario.Backend {
	case BackendSQLite:
		db, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer db.Close()
		h.db = db
		st = db
		sink = append(sink, store.NewEventLog(db, logger))
	default:
		st = state.NewMemory()
	}

	h.reg, err = registrar.New(st, cfg, registrar.Options{
		Clock:    h.clock,
		Identity: h.id,
		Sink:     sink,
		CallIDs:  testutil.NewSequenceCallIDs("step"),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow: %w", err)
		}
	}

	for _, ev := range h.rec.Events() {
		result.Events = append(result.Events, h.traceEvent(ev))
	}

	if err := h.checkPersistedEvents(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range h.evaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.At != nil {
		h.clock.Set(ir.Timestamp(*step.At))
	}
	if step.Caller != "" {
		h.id.As(ir.AccountID(step.Caller))
	}
	caller, _ := h.id.Caller(ctx)

	removed, err := h.invoke(ctx, step)
	outcome := OutcomeOK
	if err != nil {
		kind, ok := registrar.KindOf(err)
		if !ok {
			return fmt.Errorf("flow[%d] %s: %w", i, step.Invoke, err)
		}
		outcome = string(kind)
	}

	result.Steps = append(result.Steps, TraceStep{
		Step:    i + 1,
		At:      uint64(h.clock.Now()),
		Caller:  string(caller),
		Op:      step.Invoke,
		Outcome: outcome,
		Removed: removed,
	})

	want := step.Expect
	if want == "" {
		want = OutcomeOK
	}
	if outcome != want {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s", i, step.Invoke, want, outcome))
	}
	return nil
}

// invoke dispatches a step. removed is only set by sweep.
func (h *Harness) invoke(ctx context.Context, step Step) (int, error) {
	a := step.Args
	switch step.Invoke {
	case registrar.OpStartAuction:
		name, err := h.name(a.Name)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.StartAuction(ctx, name)

	case registrar.OpRevealBid:
		name, err := h.name(a.Name)
		if err != nil {
			return 0, err
		}
		salt, err := saltHash(a.Salt)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.RevealBid(ctx, name, salt)

	case registrar.OpFinalizeAuction:
		name, err := h.name(a.Name)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.FinalizeAuction(ctx, name)

	case registrar.OpRenew:
		name, err := h.name(a.Name)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.Renew(ctx, name)

	case registrar.OpExpire:
		name, err := h.name(a.Name)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.Expire(ctx, name)

	case registrar.OpNewBid:
		c, err := h.commitment(a.Name, a.Salt, a.Commitment)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.Bids().NewBid(ctx, c, ir.Balance(a.Amount))

	case registrar.OpCancelBid:
		c, err := h.commitment(a.Name, a.Salt, a.Commitment)
		if err != nil {
			return 0, err
		}
		return 0, h.reg.Bids().CancelBid(ctx, c)

	case registrar.OpSweep:
		return h.reg.Bids().Sweep(ctx, ir.Timestamp(a.Retention))
	}
	return 0, fmt.Errorf("unknown operation %q", step.Invoke)
}

func (h *Harness) name(label string) (ir.Hash, error) {
	name, err := commit.NameHash(label)
	if err != nil {
		return ir.ZeroHash, err
	}
	h.aliases[name] = label
	return name, nil
}

func (h *Harness) commitment(label, salt, explicit string) (ir.Hash, error) {
	if explicit != "" {
		return ir.ParseHash(explicit)
	}
	name, err := h.name(label)
	if err != nil {
		return ir.ZeroHash, err
	}
	s, err := saltHash(salt)
	if err != nil {
		return ir.ZeroHash, err
	}
	c := commit.Commit(name, s)
	h.aliases[c] = label + "/" + salt
	return c, nil
}

// saltHash parses a 0x hash or hashes an arbitrary word to 32 bytes.
func saltHash(s string) (ir.Hash, error) {
	if strings.HasPrefix(s, "0x") {
		return ir.ParseHash(s)
	}
	return ir.Hash(sha256.Sum256([]byte(s))), nil
}

func (h *Harness) alias(x ir.Hash) string {
	if x.IsZero() {
		return ""
	}
	if a, ok := h.aliases[x]; ok {
		return a
	}
	return x.String()
}

func (h *Harness) traceEvent(ev ir.Event) TraceEvent {
	return TraceEvent{
		Seq:       ev.Seq,
		CallID:    ev.CallID,
		Kind:      string(ev.Kind),
		Name:      h.alias(ev.Name),
		SealedBid: h.alias(ev.SealedBid),
		From:      string(ev.From),
		At:        uint64(ev.At),
	}
}

// checkPersistedEvents compares the SQLite event log with the in-memory
// recording.
func (h *Harness) checkPersistedEvents(ctx context.Context, result *Result) error {
	if h.db == nil {
		return nil
	}
	persisted, err := h.db.ReadEvents(ctx)
	if err != nil {
		return fmt.Errorf("read persisted events: %w", err)
	}
	recorded := h.rec.Events()
	if len(persisted) != len(recorded) {
		result.AddError(fmt.Sprintf("event log: persisted %d events, emitted %d", len(persisted), len(recorded)))
		return nil
	}
	for i := range persisted {
		if persisted[i] != recorded[i] {
			result.AddError(fmt.Sprintf("event log: seq %d differs from emitted event", recorded[i].Seq))
		}
	}
	return nil
}
