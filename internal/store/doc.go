// Package store provides SQLite-backed durable state for the registrar.
//
// The store keeps three tables:
//   - entries: one row per name, never deleted
//   - sealed_bids: one row per (commitment, bidder); canceled pledges keep
//     their row with amount 0
//   - events: append-only log of emitted notifications
//
// # Transactions
//
// Store implements state.Store. Every registrar call runs inside one SQL
// transaction: all reads and validation happen first, writes are staged in
// the transaction, and a failed call rolls back so no partial mutation
// survives.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// SQLite INTEGER is signed, so balances and timestamps above math.MaxInt64
// are rejected on write.
//
// Event payloads are stored as deterministic CBOR and identified by
// ir.EventID over that encoding.
package store
