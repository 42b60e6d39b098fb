package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	visitorIDKey contextKey = "visitor_id"
	requestIDKey contextKey = "request_id"

	VisitorHeader   = "X-Visitor-ID"
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 128
)

// VisitorMiddleware identifies the visitor by the X-Visitor-ID header and
// issues a fresh id when it is missing or malformed. The id is echoed back.
func VisitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID := r.Header.Get(VisitorHeader)
		if _, err := uuid.Parse(visitorID); err != nil {
			visitorID = uuid.NewString()
		}

		w.Header().Set(VisitorHeader, visitorID)
		ctx := context.WithValue(r.Context(), visitorIDKey, visitorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware tags each request with an id for log correlation. A
// caller-supplied X-Request-ID is kept when it is short enough to log.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getVisitorID(ctx context.Context) string {
	if visitorID, ok := ctx.Value(visitorIDKey).(string); ok {
		return visitorID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithVisitorID returns ctx carrying visitorID, as VisitorMiddleware would set it.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, visitorIDKey, visitorID)
}
