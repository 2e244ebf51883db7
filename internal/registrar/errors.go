package registrar

import (
	"errors"
	"fmt"

	"github.com/roach88/registrar/internal/ir"
)

// ErrorKind categorizes a rejected operation. The set is flat: an Error
// never wraps another cause.
type ErrorKind string

const (
	// KindAuctionStartedAlready indicates an entry already exists for the name.
	KindAuctionStartedAlready ErrorKind = "AuctionStartedAlready"

	// KindInvalidBidPrice indicates a pledge below the minimum price.
	KindInvalidBidPrice ErrorKind = "InvalidBidPrice"

	// KindInvalidSealedBidHash is reserved; no operation returns it.
	KindInvalidSealedBidHash ErrorKind = "InvalidSealedBidHash"

	// KindAuctionInProgress indicates a reveal or finalize before its window.
	KindAuctionInProgress ErrorKind = "AuctionInProgress"

	// KindAuctionHasEnded indicates a reveal on a name no longer being auctioned.
	KindAuctionHasEnded ErrorKind = "AuctionHasEnded"

	// KindRevealPeriodHasEnded indicates a reveal after the reveal window.
	KindRevealPeriodHasEnded ErrorKind = "RevealPeriodHasEnded"

	// KindBidNonExistent indicates a cancel of a pledge that does not exist.
	KindBidNonExistent ErrorKind = "BidNonExistent"

	// KindInvalidNameHash indicates there is no entry for the name.
	KindInvalidNameHash ErrorKind = "InvalidNameHash"

	// KindInvalidBidReveal indicates no pledge matches the revealed salt.
	KindInvalidBidReveal ErrorKind = "InvalidBidReveal"

	// KindInvalidRenew indicates a renew in the wrong mode or by a non-owner.
	KindInvalidRenew ErrorKind = "InvalidRenew"

	// KindNameNotExpired indicates an expiration check on a live name.
	KindNameNotExpired ErrorKind = "NameNotExpired"
)

// Kinds lists every ErrorKind in declaration order.
var Kinds = []ErrorKind{
	KindAuctionStartedAlready,
	KindInvalidBidPrice,
	KindInvalidSealedBidHash,
	KindAuctionInProgress,
	KindAuctionHasEnded,
	KindRevealPeriodHasEnded,
	KindBidNonExistent,
	KindInvalidNameHash,
	KindInvalidBidReveal,
	KindInvalidRenew,
	KindNameNotExpired,
}

// ParseKind converts the string form of a kind back to an ErrorKind.
func ParseKind(s string) (ErrorKind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown error kind %q", s)
}

// Error is a rejected registrar operation.
type Error struct {
	// Kind identifies the rejection.
	Kind ErrorKind

	// Op is the operation that was rejected, e.g. "reveal_bid".
	Op string

	// Subject is the name or commitment the operation targeted.
	Subject ir.Hash

	// Detail is an optional human-readable explanation.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if !e.Subject.IsZero() {
		msg = fmt.Sprintf("%s (%s)", msg, e.Subject)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any *Error with the same Kind, so
// errors.Is(err, ErrInvalidRenew) works regardless of Op and Subject.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrAuctionStartedAlready = &Error{Kind: KindAuctionStartedAlready}
	ErrInvalidBidPrice       = &Error{Kind: KindInvalidBidPrice}
	ErrInvalidSealedBidHash  = &Error{Kind: KindInvalidSealedBidHash}
	ErrAuctionInProgress     = &Error{Kind: KindAuctionInProgress}
	ErrAuctionHasEnded       = &Error{Kind: KindAuctionHasEnded}
	ErrRevealPeriodHasEnded  = &Error{Kind: KindRevealPeriodHasEnded}
	ErrBidNonExistent        = &Error{Kind: KindBidNonExistent}
	ErrInvalidNameHash       = &Error{Kind: KindInvalidNameHash}
	ErrInvalidBidReveal      = &Error{Kind: KindInvalidBidReveal}
	ErrInvalidRenew          = &Error{Kind: KindInvalidRenew}
	ErrNameNotExpired        = &Error{Kind: KindNameNotExpired}
)

// ErrNoCaller is returned when the identity provider yields no caller.
var ErrNoCaller = errors.New("no caller identity")

// KindOf returns the kind of a rejection. Uses errors.As to handle wrapped
// errors. The boolean is false for infrastructure errors and nil.
func KindOf(err error) (ErrorKind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return "", false
}

func reject(kind ErrorKind, op string, subject ir.Hash, detail string) *Error {
	return &Error{Kind: kind, Op: op, Subject: subject, Detail: detail}
}
