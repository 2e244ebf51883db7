package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

// CallResult is the output of a successful registrar call.
type CallResult struct {
	Op      string `json:"op"`
	Subject string `json:"subject"`
	Caller  string `json:"caller"`
}

func (r CallResult) String() string {
	return fmt.Sprintf("ok: %s %s by %s", r.Op, r.Subject, r.Caller)
}

// nameCall builds a command that runs one registrar call on a name. call is
// a method expression such as (*registrar.Registrar).Renew.
func nameCall(opts *RootOptions, op, use, short, long string, call func(r *registrar.Registrar, ctx context.Context, name ir.Hash) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				name, err := parseName(args[0])
				if err != nil {
					return nil, err
				}
				if err := call(s.reg, ctx, name); err != nil {
					return nil, err
				}
				return CallResult{Op: op, Subject: name.String(), Caller: opts.Caller}, nil
			})
		},
	}
}

// NewStartCommand creates the start command.
func NewStartCommand(opts *RootOptions) *cobra.Command {
	return nameCall(opts, registrar.OpStartAuction, "start <name>", "Start an auction for a name",
		`Open the bidding window for a name.

Example:
  registrar start foo.eth --caller alice`,
		(*registrar.Registrar).StartAuction)
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(opts *RootOptions) *cobra.Command {
	return nameCall(opts, registrar.OpFinalizeAuction, "finalize <name>", "Hand a name to the highest revealed bidder",
		`Finalize an auction after its reveal window has closed. Anyone may
finalize; the name goes to the highest revealed bidder.`,
		(*registrar.Registrar).FinalizeAuction)
}

// NewRenewCommand creates the renew command.
func NewRenewCommand(opts *RootOptions) *cobra.Command {
	return nameCall(opts, registrar.OpRenew, "renew <name>", "Extend ownership of a name",
		`Extend an owned or expired name by the expiration duration.`,
		(*registrar.Registrar).Renew)
}

// NewExpireCommand creates the expire command.
func NewExpireCommand(opts *RootOptions) *cobra.Command {
	return nameCall(opts, registrar.OpExpire, "expire <name>", "Mark a lapsed name as expired",
		`Move an owned name to Expired once its ownership period has passed.`,
		(*registrar.Registrar).Expire)
}

// NewRevealCommand creates the reveal command.
func NewRevealCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <name> <salt>",
		Short: "Reveal a sealed bid",
		Long: `Reveal the salt of a sealed bid during the reveal window. The pledge
placed under commit(name, salt) by the caller is compared with the current
highest bid.

Example:
  registrar reveal foo.eth 0x5a1f... --caller alice`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				name, err := parseName(args[0])
				if err != nil {
					return nil, err
				}
				salt, err := parseHash("salt", args[1])
				if err != nil {
					return nil, err
				}
				if err := s.reg.RevealBid(ctx, name, salt); err != nil {
					return nil, err
				}
				return CallResult{Op: registrar.OpRevealBid, Subject: name.String(), Caller: opts.Caller}, nil
			})
		},
	}
}

// NewBidCommand creates the bid command.
func NewBidCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bid <commitment> <amount>",
		Short: "Place a sealed bid",
		Long: `Pledge an amount under a commitment. Compute the commitment offline
with "registrar commit <name> <salt>" so the name stays hidden until reveal.

Example:
  registrar bid 0x9c2e... 100 --caller alice`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				c, err := parseHash("commitment", args[0])
				if err != nil {
					return nil, err
				}
				amount, err := parseAmount(args[1])
				if err != nil {
					return nil, err
				}
				if err := s.reg.Bids().NewBid(ctx, c, amount); err != nil {
					return nil, err
				}
				return CallResult{Op: registrar.OpNewBid, Subject: c.String(), Caller: opts.Caller}, nil
			})
		},
	}
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "cancel <commitment>",
		Short:         "Cancel a sealed bid",
		Long:          `Zero the caller's pledge under a commitment. The slot is kept.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				c, err := parseHash("commitment", args[0])
				if err != nil {
					return nil, err
				}
				if err := s.reg.Bids().CancelBid(ctx, c); err != nil {
					return nil, err
				}
				return CallResult{Op: registrar.OpCancelBid, Subject: c.String(), Caller: opts.Caller}, nil
			})
		},
	}
}

// SweepResult is the output of the sweep command.
type SweepResult struct {
	Removed int `json:"removed"`
}

func (r SweepResult) String() string {
	return fmt.Sprintf("swept %d bid(s)", r.Removed)
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	var olderThan uint64

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stale sealed bids",
		Long: `Delete pledges placed more than --older-than ago. The retention is never
shorter than one full auction (auction + reveal duration).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, s *session) (any, error) {
				n, err := s.reg.Bids().Sweep(ctx, ir.Timestamp(olderThan))
				if err != nil {
					return nil, err
				}
				return SweepResult{Removed: n}, nil
			})
		},
	}

	cmd.Flags().Uint64Var(&olderThan, "older-than", 0, "retention in clock units")
	return cmd
}
