// Package config loads registrar configuration from CUE files.
//
// A config file is a plain CUE struct unified with the embedded #Config
// schema, so omitted fields take their defaults and unknown fields are
// rejected:
//
//	auction_duration: 3600
//	min_price:        10
//	renew_policy:     "any-caller"
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/registrar/internal/ir"
	"github.com/roach88/registrar/internal/registrar"
)

//go:embed schema.cue
var schemaSrc string

// Error is a config problem, with the CUE position when one is known.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: config: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return "config: " + e.Message
}

// file mirrors #Config.
type file struct {
	AuctionDuration      uint64 `json:"auction_duration"`
	RevealPeriodDuration uint64 `json:"reveal_period_duration"`
	ExpirationDuration   uint64 `json:"expiration_duration"`
	MinPrice             uint64 `json:"min_price"`
	RenewPolicy          string `json:"renew_policy"`
	AllowRestartExpired  bool   `json:"allow_restart_expired"`
}

// Load reads the CUE file at path. An empty path yields the defaults.
func Load(path string) (registrar.Config, error) {
	if path == "" {
		return Parse(nil, "defaults.cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return registrar.Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse unifies src with the schema and decodes the result. filename is
// used only for error positions.
func Parse(src []byte, filename string) (registrar.Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return registrar.Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return registrar.Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return registrar.Config{}, formatCUEError(err)
	}

	var f file
	if err := v.Decode(&f); err != nil {
		return registrar.Config{}, formatCUEError(err)
	}

	cfg := registrar.Config{
		AuctionDuration:      ir.Timestamp(f.AuctionDuration),
		RevealPeriodDuration: ir.Timestamp(f.RevealPeriodDuration),
		ExpirationDuration:   ir.Timestamp(f.ExpirationDuration),
		MinPrice:             ir.Balance(f.MinPrice),
		RenewPolicy:          registrar.RenewPolicy(f.RenewPolicy),
		AllowRestartExpired:  f.AllowRestartExpired,
	}
	if err := cfg.Validate(); err != nil {
		return registrar.Config{}, &Error{Message: err.Error(), Pos: user.Pos()}
	}
	return cfg, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
