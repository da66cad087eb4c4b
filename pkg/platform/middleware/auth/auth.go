// Package auth provides the JWT bearer-token middleware guarding the vote
// submission boundary. Identity issuance itself lives with the external
// account system; the core only validates tokens it is handed.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "cinematch/pkg/domain"
	"cinematch/pkg/platform/httputil"
	"cinematch/pkg/requestcontext"

	dErrors "cinematch/pkg/domain-errors"
)

// TokenValidator validates an opaque identity token and yields the member it
// belongs to.
type TokenValidator interface {
	ValidateToken(token string) (id.MemberID, error)
}

// RequireAuth rejects requests without a valid Bearer token and stashes the
// authenticated member ID in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			memberID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithMemberID(ctx, memberID)))
		})
	}
}
