package ir

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the size of every digest handled by the registrar.
const HashSize = 32

// Hash is an opaque 256-bit digest. Names, salts and bid commitments all use it.
type Hash [HashSize]byte

// ZeroHash is the all-zero digest.
var ZeroHash Hash

// String returns the 0x-prefixed lowercase hex form.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the digest as a slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash parses a 64-digit hex string, with or without a 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*HashSize {
		return h, fmt.Errorf("hash must be %d hex digits, got %d", 2*HashSize, len(raw))
	}
	if _, err := hex.Decode(h[:], []byte(raw)); err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return h, nil
}

// HashFromBytes copies b into a Hash. b must be exactly HashSize bytes.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// AccountID is an opaque caller identity supplied by the host.
type AccountID string

// NoOwner marks an entry that nobody holds yet.
const NoOwner AccountID = ""

// IsNone reports whether the identity is the "none" sentinel.
func (a AccountID) IsNone() bool {
	return a == NoOwner
}

// Balance is a pledged amount in the smallest currency unit.
type Balance uint64

// Timestamp is a clock reading in host time units.
type Timestamp uint64

// Mode is the lifecycle state of an Entry.
type Mode uint8

const (
	ModeAuction Mode = iota
	ModeReveal
	ModeOwned
	ModeExpired
)

var modeNames = [...]string{
	ModeAuction: "auction",
	ModeReveal:  "reveal",
	ModeOwned:   "owned",
	ModeExpired: "expired",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Valid reports whether m is one of the four known modes.
func (m Mode) Valid() bool {
	return int(m) < len(modeNames)
}

// ParseMode converts the text form produced by String back to a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Entry is the registration record for one name.
type Entry struct {
	Name         Hash      `json:"name"`
	RegisteredAt Timestamp `json:"registered_at"`
	HighestBid   Balance   `json:"highest_bid"`
	Owner        AccountID `json:"owner"`
	Mode         Mode      `json:"mode"`
}

// BidKey identifies one pledge.
type BidKey struct {
	Commitment Hash
	Bidder     AccountID
}

// SealedBid is a pledged amount bound to a commitment.
// Amount zero means the pledge was canceled.
type SealedBid struct {
	Commitment Hash      `json:"commitment"`
	Bidder     AccountID `json:"bidder"`
	Amount     Balance   `json:"amount"`
	PlacedAt   Timestamp `json:"placed_at"`

	// RevealedFor is the name the bid was revealed against, zero until then.
	RevealedFor Hash `json:"revealed_for"`
}

// Key returns the (commitment, bidder) pair that identifies the pledge.
func (b SealedBid) Key() BidKey {
	return BidKey{Commitment: b.Commitment, Bidder: b.Bidder}
}

// EventKind names a notification emitted after a successful call.
type EventKind string

const (
	EventAuctionStarted   EventKind = "AuctionStarted"
	EventAuctionFinalized EventKind = "AuctionFinalized"
	EventNewBid           EventKind = "NewBid"
	EventCancelBid        EventKind = "CancelBid"
	EventRevealBid        EventKind = "RevealBid"
	EventRenewBid         EventKind = "RenewBid"
	EventNameExpired      EventKind = "NameExpired"
)

// Event is a notification about a committed state change.
//
// Name is set for name-scoped events. SealedBid carries the commitment for
// NewBid and CancelBid.
type Event struct {
	Seq       int64     `json:"seq" cbor:"1,keyasint"`
	CallID    string    `json:"call_id" cbor:"2,keyasint"`
	Kind      EventKind `json:"kind" cbor:"3,keyasint"`
	Name      Hash      `json:"name,omitzero" cbor:"4,keyasint"`
	SealedBid Hash      `json:"sealed_bid,omitzero" cbor:"5,keyasint"`
	From      AccountID `json:"from" cbor:"6,keyasint"`
	At        Timestamp `json:"at" cbor:"7,keyasint"`
}
