// Package harness runs registrar scenarios written in YAML.
//
// A scenario is a timed flow of calls against a fresh registrar, each with
// an expected outcome, followed by assertions on the final entries, pledges
// and emitted events.
//
// # Scenario Format
//
//	name: alice_and_bob
//	description: "Bob outbids Alice during the reveal window"
//	backend: memory            # or sqlite
//	config: |
//	  min_price: 1
//	flow:
//	  - at: 0
//	    caller: alice
//	    invoke: start_auction
//	    args: { name: foo }
//	  - at: 10
//	    invoke: new_bid
//	    args: { name: foo, salt: s1, amount: 100 }
//	  - at: 500
//	    caller: bob
//	    invoke: finalize_auction
//	    args: { name: foo }
//	    expect: AuctionInProgress
//	assertions:
//	  - type: entry
//	    name: foo
//	    expect: { mode: owned, owner: bob, highest_bid: 200 }
//	  - type: event_order
//	    events: [AuctionStarted, NewBid, RevealBid, AuctionFinalized]
//
// Names are labels hashed with commit.NameHash. A salt is either a 0x hex
// hash or an arbitrary word, which is hashed to 32 bytes. new_bid and
// cancel_bid derive their commitment from name and salt unless an explicit
// commitment is given.
//
// "at" and "caller" carry over to later steps until changed; "at" may never
// move backwards. "config" is CUE source in the registrar config format.
//
// # Assertion Types
//
//   - entry: the entry for name matches expect, or is absent
//   - bid: the pledge for (name/salt or commitment, bidder) matches, or is absent
//   - event_order: the full sequence of emitted event kinds
//   - event_count: how many events of one kind were emitted
//
// # Determinism
//
// Every run uses a manual clock, call IDs "step-1", "step-2", ... and an
// isolated store, so traces are reproducible and can be compared against
// golden files with RunWithGolden.
package harness
