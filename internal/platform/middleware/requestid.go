// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"metalab/pkg/requestcontext"
)

// RequestIDHeader carries the id on both request and response.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to the context and echoes it back in the
// response. An id supplied by the caller is kept so traces can span services.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
