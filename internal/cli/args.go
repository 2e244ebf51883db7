package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/registrar/internal/commit"
	"github.com/roach88/registrar/internal/ir"
)

// parseName accepts a 0x hash or a dotted label to namehash.
func parseName(arg string) (ir.Hash, error) {
	if strings.HasPrefix(arg, "0x") {
		h, err := ir.ParseHash(arg)
		if err != nil {
			return ir.ZeroHash, WrapExitError(ExitCommandError, "invalid name", err)
		}
		return h, nil
	}
	h, err := commit.NameHash(arg)
	if err != nil {
		return ir.ZeroHash, WrapExitError(ExitCommandError, "invalid name", err)
	}
	return h, nil
}

// parseHash parses a 0x hash argument; what names it in errors.
func parseHash(what, arg string) (ir.Hash, error) {
	h, err := ir.ParseHash(arg)
	if err != nil {
		return ir.ZeroHash, WrapExitError(ExitCommandError, "invalid "+what, err)
	}
	return h, nil
}

func parseAmount(arg string) (ir.Balance, error) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", arg), err)
	}
	return ir.Balance(n), nil
}
