// Package trace assigns every HTTP request an ID that is echoed back to the
// caller and attached to its log lines.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// ContextKey type for context keys
type ContextKey string

// RequestIDKey is the context key for request ID
const RequestIDKey ContextKey = "request_id"

// HeaderRequestID carries a caller-supplied request ID.
const HeaderRequestID = "X-Request-ID"

const maxIncomingIDLen = 64

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// RequestID returns the ID already on r's context, a well-formed
// X-Request-ID header, or a fresh ID, in that order.
func RequestID(r *http.Request) string {
	if id := GetRequestID(r.Context()); id != "" {
		return id
	}
	if id := r.Header.Get(HeaderRequestID); validIncoming(id) {
		return id
	}
	return GenerateRequestID()
}

func validIncoming(id string) bool {
	if id == "" || len(id) > maxIncomingIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

// Middleware stores the request ID on the context for downstream handlers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), RequestIDKey, RequestID(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
