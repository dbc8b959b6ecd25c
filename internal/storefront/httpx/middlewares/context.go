// Package middlewares carries request-scoped metadata (request id,
// idempotency key) from headers into the context so handlers and services
// can read them without touching the http.Request.
package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	HeaderXRequestID      = "x-request-id"
	HeaderXIdempotencyKey = "x-idempotency-key"
)

// contextKey is an unexported type for context keys in this package.
// Using a custom type prevents collisions with keys from other packages
// that might use the same underlying string value.
type contextKey string

const (
	ctxKeyRequestID      contextKey = HeaderXRequestID
	ctxKeyIdempotencyKey contextKey = HeaderXIdempotencyKey
)

// AttachRequestMetadata copies the chi request id and the client-supplied
// idempotency key into the request context.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(HeaderXIdempotencyKey)

		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		ctx = context.WithValue(ctx, ctxKeyIdempotencyKey, idempotencyKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored by AttachRequestMetadata, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// IdempotencyKey returns the client-supplied idempotency key, or "".
func IdempotencyKey(ctx context.Context) string {
	key, _ := ctx.Value(ctxKeyIdempotencyKey).(string)
	return key
}
