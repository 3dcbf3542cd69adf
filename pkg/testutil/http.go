// Package testutil holds shared helpers for handler tests: request
// construction, response decoding, and assertions on the error envelope
// the services return.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewJSONRequest builds a request whose body is v marshaled as JSON.
func NewJSONRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if v != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(v), "encode request body")
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest builds a bodyless request.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody builds a request carrying a raw string body. Used to
// exercise malformed-payload paths that NewJSONRequest cannot produce.
func NewRequestWithBody(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest runs req through the handler and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the recorded body into T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "decode response body")
	return &out
}

// AssertStatus asserts the recorded status code.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code")
}

// AssertStatusOK asserts a 200 response.
func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertStatusAndError asserts the status code and the "error" field of the
// JSON error envelope.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), "decode error envelope")
	assert.Equal(t, expectedCode, envelope["error"], "unexpected error code")
}
