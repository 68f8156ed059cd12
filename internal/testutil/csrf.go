package testutil

import (
	"context"
	"net/http"
)

// csrfTokenKey matches the key gorilla/csrf stores the masked token under.
const csrfTokenKey = "gorilla.csrf.Token"

// TestCSRFToken is the token WithCSRFToken injects.
const TestCSRFToken = "test-csrf-token-12345"

// WithCSRFToken adds a mock CSRF token to the request context so handlers that
// call csrf.Token(r) (directly or via viewdata.New) render a stable value.
func WithCSRFToken(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), csrfTokenKey, TestCSRFToken)
	return r.WithContext(ctx)
}
