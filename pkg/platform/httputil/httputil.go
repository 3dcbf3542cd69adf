// Package httputil centralizes JSON response writing and request decoding so
// handlers stay thin and error envelopes stay consistent.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "keygate/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so infrastructure details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := ""

	var de *dErrors.DomainError
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal && message != "" {
		body["error_description"] = message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// Validatable lets request types run field validation after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes a JSON request body into T and runs its validation
// when T implements Validatable. On failure it writes the error response and
// returns ok=false; the handler should return immediately.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
