package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/registrar/internal/commit"
)

// HashResult is the output of the offline hashing commands.
type HashResult struct {
	Hash string `json:"hash"`
}

func (r HashResult) String() string {
	return r.Hash
}

// NewCommitCommand creates the commit command.
func NewCommitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <name> <salt>",
		Short: "Compute a bid commitment",
		Long: `Print keccak256(name || salt), the commitment to pass to "bid".
No database is touched.

Example:
  registrar commit foo.eth $(registrar salt)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(cmd, opts)
			name, err := parseName(args[0])
			if err != nil {
				return out.Fail(err)
			}
			salt, err := parseHash("salt", args[1])
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(HashResult{Hash: commit.Commit(name, salt).String()})
		},
	}
}

// NewNameHashCommand creates the namehash command.
func NewNameHashCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "namehash <name>",
		Short:         "Print the namehash of a dotted name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(cmd, opts)
			h, err := commit.NameHash(args[0])
			if err != nil {
				return out.Fail(WrapExitError(ExitCommandError, "invalid name", err))
			}
			return out.Success(HashResult{Hash: h.String()})
		},
	}
}

// NewSaltCommand creates the salt command.
func NewSaltCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "salt",
		Short:         "Generate a random salt",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(cmd, opts)
			s, err := commit.NewSalt()
			if err != nil {
				return out.Fail(err)
			}
			return out.Success(HashResult{Hash: s.String()})
		},
	}
}
