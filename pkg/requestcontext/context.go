// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services depend only on context plumbing.
//
// Usage in services (read values):
//
//	caller := requestcontext.Caller(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCaller(ctx, mechanismAddr)
package requestcontext

import (
	"context"
	"time"

	id "keygate/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// WithCaller records the authenticated caller principal on the context.
func WithCaller(ctx context.Context, caller id.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the authenticated caller principal, or the zero address when
// the request is unauthenticated.
func Caller(ctx context.Context) id.Address {
	if a, ok := ctx.Value(callerKey{}).(id.Address); ok {
		return a
	}
	return id.ZeroAddress
}

// WithRequestID records the request correlation ID on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation ID, or "" when unset.
func RequestID(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}

// WithTime pins the request-scoped clock. All time-sensitive checks within a
// request observe the same instant.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request-scoped time, falling back to the wall clock when no
// middleware pinned one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
