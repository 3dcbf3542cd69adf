// Package requestid assigns a correlation ID to every request so log lines
// and audit events from one request can be stitched together.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"keygate/pkg/requestcontext"
)

// Header carries the request ID on responses and is honored on requests so
// upstream proxies can propagate their own correlation IDs.
const Header = "X-Request-ID"

// Middleware reuses an incoming request ID or mints a fresh one, stores it in
// the context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
