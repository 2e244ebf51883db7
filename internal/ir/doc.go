// Package ir provides the shared record types of the registrar.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Names, salts and commitments are opaque 32-byte digests (Hash)
//   - Exactly one Mode type with four variants, used everywhere
//   - Entries are never deleted, only transitioned
//   - Timestamps come from an injected clock, never from time.Now in the core
package ir
