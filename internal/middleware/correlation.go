package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// CorrelationIDKey is the context key for correlation IDs
type contextKey string

const CorrelationIDKey = contextKey("correlation-id")

// HeaderCorrelationID is the wire header carrying the correlation ID.
const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID is a middleware that generates or propagates correlation IDs
// so one request's pipeline stages can be traced end to end.
// It checks for an existing X-Correlation-ID header and generates a new UUID
// if not present. The ID is added to the response header and stored in the
// request context.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		w.Header().Set(HeaderCorrelationID, correlationID)

		ctx := context.WithValue(r.Context(), CorrelationIDKey, correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithCorrelationID returns a context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID extracts the correlation ID from the context.
// Returns empty string if not found.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}
