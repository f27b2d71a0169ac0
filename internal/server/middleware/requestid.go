package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey contextKey = "request_id"

const requestIDHeader = "X-Request-ID"

// maxClientRequestID caps caller-provided trace IDs; anything longer is
// replaced rather than propagated into logs.
const maxClientRequestID = 64

// RequestID is an HTTP middleware that tags each request with a trace ID.
// The gateway in front of this service forwards its own X-Request-ID, which
// is kept when usable; otherwise a UUID v7 is minted so IDs sort by time.
// The ID is echoed on the response header and stored in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := clientRequestID(r)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if len(id) > maxClientRequestID {
		return ""
	}
	return id
}

func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	// NewV7 can fail if the entropy source does; a random v4 still traces.
	return uuid.NewString()
}

// GetRequestID extracts the request ID from the context. Returns an empty
// string if no request ID is present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
