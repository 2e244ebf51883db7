package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

// EntryView is an entry with its derived deadlines.
type EntryView struct {
	Name           string `json:"name"`
	Mode           string `json:"mode"`
	Owner          string `json:"owner"`
	HighestBid     uint64 `json:"highest_bid"`
	RegisteredAt   uint64 `json:"registered_at"`
	RevealOpensAt  uint64 `json:"reveal_opens_at"`
	RevealClosesAt uint64 `json:"reveal_closes_at"`
	ExpiresAt      uint64 `json:"expires_at"`
}

func newEntryView(cfg registrar.Config, e ir.Entry) EntryView {
	return EntryView{
		Name:           e.Name.String(),
		Mode:           e.Mode.String(),
		Owner:          string(e.Owner),
		HighestBid:     uint64(e.HighestBid),
		RegisteredAt:   uint64(e.RegisteredAt),
		RevealOpensAt:  uint64(cfg.RevealOpensAt(e)),
		RevealClosesAt: uint64(cfg.RevealClosesAt(e)),
		ExpiresAt:      uint64(cfg.ExpiresAt(e)),
	}
}

func (v EntryView) String() string {
	owner := v.Owner
	if owner == "" {
		owner = "-"
	}
	return fmt.Sprintf("%s %-7s owner=%s highest_bid=%d registered_at=%d reveal=[%d,%d] expires_at=%d",
		v.Name, v.Mode, owner, v.HighestBid, v.RegisteredAt, v.RevealOpensAt, v.RevealClosesAt, v.ExpiresAt)
}

// EntryList renders one entry per line in text mode.
type EntryList []EntryView

func (l EntryList) String() string {
	if len(l) == 0 {
		return "No entries."
	}
	lines := make([]string, len(l))
	for i, v := range l {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

// BidView is a stored pledge.
type BidView struct {
	Commitment  string `json:"commitment"`
	Bidder      string `json:"bidder"`
	Amount      uint64 `json:"amount"`
	PlacedAt    uint64 `json:"placed_at"`
	RevealedFor string `json:"revealed_for,omitempty"`
}

// BidList renders one pledge per line in text mode.
type BidList []BidView

func (l BidList) String() string {
	if len(l) == 0 {
		return "No bids."
	}
	lines := make([]string, len(l))
	for i, b := range l {
		line := fmt.Sprintf("%s amount=%d placed_at=%d", b.Commitment, b.Amount, b.PlacedAt)
		if b.RevealedFor != "" {
			line += " revealed_for=" + b.RevealedFor
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// EventList renders one event per line in text mode.
type EventList []ir.Event

func (l EventList) String() string {
	if len(l) == 0 {
		return "No events."
	}
	lines := make([]string, len(l))
	for i, ev := range l {
		subject := ev.Name
		if subject.IsZero() {
			subject = ev.SealedBid
		}
		lines[i] = fmt.Sprintf("%d %s %s from=%s at=%d", ev.Seq, ev.Kind, subject, ev.From, ev.At)
	}
	return strings.Join(lines, "\n")
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <name>",
		Short:         "Show the entry for a name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				name, err := parseName(args[0])
				if err != nil {
					return nil, err
				}
				e, err := s.reg.Entry(ctx, name)
				if err != nil {
					return nil, err
				}
				return newEntryView(s.reg.Config(), e), nil
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every entry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				entries, err := s.db.ListEntries(ctx)
				if err != nil {
					return nil, err
				}
				views := make(EntryList, len(entries))
				for i, e := range entries {
					views[i] = newEntryView(s.reg.Config(), e)
				}
				return views, nil
			})
		},
	}
}

// NewBidsCommand creates the bids command.
func NewBidsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bids [bidder]",
		Short: "List sealed bids of a bidder",
		Long:  `List the pledges placed by bidder, or by --caller when omitted.`,
		Args:  cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bidder := opts.Caller
			if len(args) == 1 {
				bidder = args[0]
			}
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				bids, err := s.db.ListBids(ctx, ir.AccountID(bidder))
				if err != nil {
					return nil, err
				}
				views := make(BidList, len(bids))
				for i, b := range bids {
					views[i] = BidView{
						Commitment: b.Commitment.String(),
						Bidder:     string(b.Bidder),
						Amount:     uint64(b.Amount),
						PlacedAt:   uint64(b.PlacedAt),
					}
					if !b.RevealedFor.IsZero() {
						views[i].RevealedFor = b.RevealedFor.String()
					}
				}
				return views, nil
			})
		},
	}
}

// NewEventsCommand creates the events command.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "events [name]",
		Short:         "Print the event log",
		Long:          `Print every logged event in order, or only those about one name.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				if len(args) == 0 {
					events, err := s.db.ReadEvents(ctx)
					return EventList(events), err
				}
				name, err := parseName(args[0])
				if err != nil {
					return nil, err
				}
				events, err := s.db.ReadEventsForName(ctx, name)
				return EventList(events), err
			})
		},
	}
}
