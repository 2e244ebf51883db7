// Package registrar implements the sealed-bid name auction.
//
// A name moves through the lifecycle
//
//	Auction -> Reveal -> Owned -> Expired -> Owned ...
//
// driven by six public operations: StartAuction, RevealBid, FinalizeAuction
// and Renew on Registrar, NewBid and CancelBid on BidBook. Expire is the
// explicit expiration check that moves an Owned name to Expired.
//
// # Call model
//
// Every operation is one call. A call reads the Clock and the caller identity
// exactly once, opens a state.Tx, runs all checks, stages its writes and
// commits. Any failed check rolls the transaction back, so a rejected call
// leaves entries and pledges untouched. Events are handed to the EventSink
// only after the commit succeeded.
//
// Calls are serialized by the Registrar; the state layer is never shared
// with another writer while a call is running.
//
// # Time windows
//
// With elapsed = now - RegisteredAt, A = AuctionDuration and
// R = RevealPeriodDuration:
//
//	elapsed <  A          bidding; reveals fail AuctionInProgress
//	A <= elapsed <= A+R   reveal window (both bounds inclusive)
//	elapsed >  A+R        reveals fail RevealPeriodHasEnded; finalize allowed
//
// # Errors
//
// Rejections are *Error values carrying one ErrorKind. Compare with
// errors.Is against the Err* sentinels, or extract the kind with KindOf.
// Infrastructure failures (storage, identity) are wrapped errors without a
// kind.
package registrar
