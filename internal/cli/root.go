package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/registrar/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	Database    string
	Config      string
	Caller      string
	Now         uint64
	MetricsFile string

	// nowSet is true when --now was given, so --now 0 is a fixed clock too.
	nowSet bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the registrar CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "registrar",
		Short:   "Sealed-bid name registrar",
		Version: ir.RegistrarVersion,
		Long: `A commit-reveal sealed-bid auction for unique names.

Each invocation is one registrar call against a SQLite state file. Names are
given either as dotted labels ("foo.eth"), which are namehashed, or as 0x hex
hashes. Salts and commitments are always 0x hex hashes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.nowSet = cmd.Flags().Changed("now")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "registrar.db", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to CUE config file (defaults when empty)")
	cmd.PersistentFlags().StringVar(&opts.Caller, "caller", os.Getenv("USER"), "caller identity")
	cmd.PersistentFlags().Uint64Var(&opts.Now, "now", 0, "fixed call timestamp (defaults to Unix time)")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	// Registrar calls
	cmd.AddCommand(NewStartCommand(opts))
	cmd.AddCommand(NewBidCommand(opts))
	cmd.AddCommand(NewRevealCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewRenewCommand(opts))
	cmd.AddCommand(NewFinalizeCommand(opts))
	cmd.AddCommand(NewExpireCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

	// Queries
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewBidsCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	// Offline tools
	cmd.AddCommand(NewCommitCommand(opts))
	cmd.AddCommand(NewNameHashCommand(opts))
	cmd.AddCommand(NewSaltCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
