package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func (h *Harness) evaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEntry:
			err = h.assertEntry(ctx, a)
		case AssertBid:
			err = h.assertBid(ctx, a)
		case AssertEventOrder:
			err = assertEventOrder(result.Events, a)
		case AssertEventCount:
			err = assertEventCount(result.Events, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func (h *Harness) assertEntry(ctx context.Context, a Assertion) error {
	name, err := h.name(a.Name)
	if err != nil {
		return err
	}
	e, err := h.reg.Entry(ctx, name)
	if errors.Is(err, registrar.ErrInvalidNameHash) {
		if a.Absent {
			return nil
		}
		return &AssertionError{Type: AssertEntry, Expected: "entry " + a.Name, Actual: "no entry"}
	}
	if err != nil {
		return err
	}
	if a.Absent {
		return &AssertionError{Type: AssertEntry, Expected: "no entry " + a.Name, Actual: "mode " + e.Mode.String()}
	}

	var diffs []string
	x := a.Expect
	if x.Mode != "" {
		want, _ := ir.ParseMode(x.Mode)
		if e.Mode != want {
			diffs = append(diffs, fmt.Sprintf("mode %s != %s", e.Mode, want))
		}
	}
	if x.Owner != nil && string(e.Owner) != *x.Owner {
		diffs = append(diffs, fmt.Sprintf("owner %q != %q", e.Owner, *x.Owner))
	}
	if x.HighestBid != nil && uint64(e.HighestBid) != *x.HighestBid {
		diffs = append(diffs, fmt.Sprintf("highest_bid %d != %d", e.HighestBid, *x.HighestBid))
	}
	if x.RegisteredAt != nil && uint64(e.RegisteredAt) != *x.RegisteredAt {
		diffs = append(diffs, fmt.Sprintf("registered_at %d != %d", e.RegisteredAt, *x.RegisteredAt))
	}
	if len(diffs) > 0 {
		return &AssertionError{Type: AssertEntry, Expected: "entry " + a.Name, Actual: strings.Join(diffs, ", ")}
	}
	return nil
}

func (h *Harness) assertBid(ctx context.Context, a Assertion) error {
	c, err := h.commitment(a.Name, a.Salt, a.Commitment)
	if err != nil {
		return err
	}
	label := h.alias(c) + " by " + a.Bidder
	bid, err := h.reg.Bids().Bid(ctx, c, ir.AccountID(a.Bidder))
	if errors.Is(err, registrar.ErrBidNonExistent) {
		if a.Absent {
			return nil
		}
		return &AssertionError{Type: AssertBid, Expected: "pledge " + label, Actual: "no pledge"}
	}
	if err != nil {
		return err
	}
	if a.Absent {
		return &AssertionError{Type: AssertBid, Expected: "no pledge " + label, Actual: fmt.Sprintf("amount %d", bid.Amount)}
	}
	if a.Expect.Amount != nil && uint64(bid.Amount) != *a.Expect.Amount {
		return &AssertionError{
			Type:     AssertBid,
			Expected: fmt.Sprintf("pledge %s amount %d", label, *a.Expect.Amount),
			Actual:   fmt.Sprintf("amount %d", bid.Amount),
		}
	}
	return nil
}

func assertEventOrder(events []TraceEvent, a Assertion) error {
	got := make([]string, len(events))
	for i, ev := range events {
		got[i] = ev.Kind
	}
	if strings.Join(got, ",") != strings.Join(a.Events, ",") {
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("%v", a.Events),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func assertEventCount(events []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range events {
		if ev.Kind == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d", count),
		}
	}
	return nil
}
