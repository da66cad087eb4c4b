// Package request attaches per-request metadata (request ID, arrival time) to
// the context so logs across layers correlate.
package request

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"cinematch/pkg/requestcontext"
)

// Metadata assigns a request ID (honoring an inbound X-Request-ID) and pins
// the request arrival time in the context.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
