package testutil

import (
	"net/http"
	"time"

	id "cinematch/pkg/domain"
	"cinematch/pkg/requestcontext"
)

// WithMemberID adds a member ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the memberID is not a valid UUID, it will not be added to the context.
func WithMemberID(req *http.Request, memberID string) *http.Request {
	if parsed, err := id.ParseMemberID(memberID); err == nil {
		return req.WithContext(requestcontext.WithMemberID(req.Context(), parsed))
	}
	return req
}

// WithRequestTime pins the request-scoped time, simulating the request
// metadata middleware.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
