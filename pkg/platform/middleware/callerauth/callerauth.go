// Package callerauth authenticates the principal behind a request. Hook and
// admin endpoints need to know which principal is calling before the service
// layer can enforce caller==mechanism or caller==referrer.
package callerauth

import (
	"log/slog"
	"net/http"
	"strings"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/httputil"
	"keygate/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns the principal it
// authenticates as.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.Address, error)
}

// Middleware extracts the bearer token, validates it, and stores the caller
// principal in the request context. Requests without any token continue
// unauthenticated, since the eligibility read path is public; handlers that
// need a caller reject requests where none was established. A token that is
// present but invalid is rejected here.
func Middleware(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header"))
				return
			}

			caller, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				if logger != nil {
					logger.WarnContext(r.Context(), "caller token rejected",
						"request_id", requestcontext.RequestID(r.Context()),
						"error", err,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
