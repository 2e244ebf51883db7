package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainEvent prefixes event payloads before hashing.
const DomainEvent = "registrar/event/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an encoded event payload.
// The payload must come from a deterministic encoder so that the same event
// always yields the same ID.
func EventID(payload []byte) string {
	return hashWithDomain(DomainEvent, payload)
}
