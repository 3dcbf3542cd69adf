package testutil

import (
	"context"
	"net/http"
	"time"

	id "keygate/pkg/domain"
	"keygate/pkg/requestcontext"
)

// WithCaller adds an authenticated caller to the request context.
// This simulates what the caller-auth middleware would do for requests
// carrying a valid bearer token. Invalid addresses are silently ignored.
func WithCaller(req *http.Request, caller string) *http.Request {
	if addr, err := id.ParseAddress(caller); err == nil {
		return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
	}
	return req
}

// WithCallerAddress adds a parsed caller address to the request context.
func WithCallerAddress(req *http.Request, caller id.Address) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestTime pins the request-scoped clock, so expiry boundaries can
// be tested deterministically.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
