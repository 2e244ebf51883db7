package registrar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/registrar/internal/ir"
)

// Clock supplies the timestamp of the current call.
// It must be monotonic (non-decreasing).
type Clock interface {
	Now() ir.Timestamp
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() ir.Timestamp

// Now implements Clock.
func (f ClockFunc) Now() ir.Timestamp { return f() }

// SystemClock reads wall time as Unix seconds.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() ir.Timestamp {
	return ir.Timestamp(time.Now().Unix())
}

// IdentityProvider supplies the identity of the current caller.
type IdentityProvider interface {
	Caller(ctx context.Context) (ir.AccountID, error)
}

// StaticIdentity always answers with the same caller.
type StaticIdentity ir.AccountID

// Caller implements IdentityProvider.
func (s StaticIdentity) Caller(context.Context) (ir.AccountID, error) {
	return ir.AccountID(s), nil
}

type callerKey struct{}

// WithCaller attaches a caller identity to ctx for ContextIdentity.
func WithCaller(ctx context.Context, caller ir.AccountID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// ContextIdentity reads the caller attached with WithCaller.
type ContextIdentity struct{}

// Caller implements IdentityProvider. Returns ErrNoCaller when ctx carries
// no identity.
func (ContextIdentity) Caller(ctx context.Context) (ir.AccountID, error) {
	caller, ok := ctx.Value(callerKey{}).(ir.AccountID)
	if !ok {
		return ir.NoOwner, ErrNoCaller
	}
	return caller, nil
}

// CallIDGenerator names each call for logs and events.
type CallIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 call IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CallObserver is told about the outcome of every call. err is nil on
// success, a *Error on rejection, or an infrastructure error.
type CallObserver interface {
	ObserveCall(op string, err error)
}
