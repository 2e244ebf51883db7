// Package commit computes and verifies the binding between a name and a
// secret salt.
//
// A bidder hashes name||salt off-line and publishes only the resulting
// commitment together with a pledge. The salt stays secret until the reveal,
// which is the only step that links a pledge to a name. Both the bidding and
// the reveal path must go through Commit so the byte layout never diverges.
package commit

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/registrar/internal/ir"
)

// Commit returns Keccak-256(name || salt).
//
// Legacy Keccak (pre-FIPS 202 padding) is used, matching the commitments that
// wallets on Keccak-based chains produce.
func Commit(name, salt ir.Hash) ir.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(name[:])
	h.Write(salt[:])

	var out ir.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Verify reports whether commitment was produced from name and salt.
func Verify(name, salt, commitment ir.Hash) bool {
	c := Commit(name, salt)
	return subtle.ConstantTimeCompare(c[:], commitment[:]) == 1
}

// NewSalt draws a fresh random salt.
func NewSalt() (ir.Hash, error) {
	var salt ir.Hash
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// NameHash derives the opaque name key for a human-readable dotted name.
//
// The derivation is recursive over labels from right to left:
//
//	node("") = 0x00..00
//	node(label.rest) = keccak256(node(rest) || keccak256(label))
//
// Each label is NFC normalized and lowercased first, so visually identical
// spellings map to the same key. Empty labels are rejected.
func NameHash(name string) (ir.Hash, error) {
	var node ir.Hash
	if name == "" {
		return node, fmt.Errorf("name is empty")
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label, err := normalizeLabel(labels[i])
		if err != nil {
			return ir.ZeroHash, fmt.Errorf("name %q: %w", name, err)
		}
		node = Commit(node, labelHash(label))
	}
	return node, nil
}

// MustNameHash is like NameHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNameHash(name string) ir.Hash {
	h, err := NameHash(name)
	if err != nil {
		panic(err)
	}
	return h
}

func normalizeLabel(label string) (string, error) {
	if label == "" {
		return "", fmt.Errorf("empty label")
	}
	normalized := strings.ToLower(norm.NFC.String(label))
	if strings.ContainsAny(normalized, " \t\r\n") {
		return "", fmt.Errorf("label %q contains whitespace", label)
	}
	return normalized, nil
}

func labelHash(label string) ir.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(label))

	var out ir.Hash
	copy(out[:], h.Sum(nil))
	return out
}
