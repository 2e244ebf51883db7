package registrar

import (
	"fmt"
	"math"

	"github.com/roach88/registrar/internal/ir"
)

// RenewPolicy decides who may renew a name.
type RenewPolicy string

const (
	// RenewOwnerOnly lets only the current owner renew.
	RenewOwnerOnly RenewPolicy = "owner-only"

	// RenewAnyCaller lets any caller renew any Owned or Expired name, and
	// the renewing caller becomes its owner.
	RenewAnyCaller RenewPolicy = "any-caller"
)

// Config is fixed at construction.
type Config struct {
	// RevealPeriodDuration is the length of the reveal window that follows
	// the bidding window.
	RevealPeriodDuration ir.Timestamp `json:"reveal_period_duration"`

	// AuctionDuration is the length of the bidding window.
	AuctionDuration ir.Timestamp `json:"auction_duration"`

	// ExpirationDuration is how long ownership lasts, and how much each
	// renew extends it.
	ExpirationDuration ir.Timestamp `json:"expiration_duration"`

	// MinPrice is the pledge floor and the starting highest bid.
	MinPrice ir.Balance `json:"min_price"`

	// RenewPolicy defaults to RenewOwnerOnly.
	RenewPolicy RenewPolicy `json:"renew_policy"`

	// AllowRestartExpired lets StartAuction reset an Expired entry into a
	// fresh auction. When false any existing entry is a duplicate.
	AllowRestartExpired bool `json:"allow_restart_expired"`
}

// DefaultConfig returns {reveal: 300, auction: 300, expiration: 300, min_price: 1}.
func DefaultConfig() Config {
	return Config{
		RevealPeriodDuration: 300,
		AuctionDuration:      300,
		ExpirationDuration:   300,
		MinPrice:             1,
		RenewPolicy:          RenewOwnerOnly,
	}
}

// Validate checks that the window arithmetic cannot overflow and the policy
// is known. An empty policy is accepted and treated as RenewOwnerOnly.
func (c Config) Validate() error {
	switch c.RenewPolicy {
	case "", RenewOwnerOnly, RenewAnyCaller:
	default:
		return fmt.Errorf("invalid renew policy %q", c.RenewPolicy)
	}

	total := uint64(c.AuctionDuration)
	for _, d := range []ir.Timestamp{c.RevealPeriodDuration, c.ExpirationDuration} {
		if total > math.MaxInt64-uint64(d) {
			return fmt.Errorf("durations overflow: auction %d + reveal %d + expiration %d",
				c.AuctionDuration, c.RevealPeriodDuration, c.ExpirationDuration)
		}
		total += uint64(d)
	}
	return nil
}

func (c Config) renewPolicy() RenewPolicy {
	if c.RenewPolicy == "" {
		return RenewOwnerOnly
	}
	return c.RenewPolicy
}

// RevealOpensAt is the first instant a reveal is accepted.
func (c Config) RevealOpensAt(e ir.Entry) ir.Timestamp {
	return addSat(e.RegisteredAt, c.AuctionDuration)
}

// RevealClosesAt is the last instant a reveal is accepted.
func (c Config) RevealClosesAt(e ir.Entry) ir.Timestamp {
	return addSat(c.RevealOpensAt(e), c.RevealPeriodDuration)
}

// ExpiresAt is the last instant the name is still held; Expire succeeds
// strictly after it.
func (c Config) ExpiresAt(e ir.Entry) ir.Timestamp {
	return addSat(c.RevealClosesAt(e), c.ExpirationDuration)
}

// addSat adds two timestamps, saturating at the maximum value.
func addSat(a, b ir.Timestamp) ir.Timestamp {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
