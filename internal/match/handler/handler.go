// Package handler exposes the match history endpoint.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cinematch/internal/match"
	"cinematch/internal/membership"

	dErrors "cinematch/pkg/domain-errors"
	"cinematch/pkg/platform/httputil"
	"cinematch/pkg/platform/sentinel"
	"cinematch/pkg/requestcontext"
)

type Handler struct {
	matches *match.Service
	members membership.Service
	logger  *slog.Logger
}

func New(matches *match.Service, members membership.Service, logger *slog.Logger) *Handler {
	return &Handler{matches: matches, members: members, logger: logger}
}

// Register mounts the match routes onto the router. Callers wrap the router
// with the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/groups/{groupCode}/matches", h.list)
}

type matchResponse struct {
	ID        string    `json:"id"`
	Item      int64     `json:"item"`
	ClaimedBy string    `json:"claimedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	member := requestcontext.MemberID(ctx)

	group, err := h.members.FindGroupByCode(ctx, chi.URLParam(r, "groupCode"))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "group not found"))
			return
		}
		h.logger.ErrorContext(ctx, "resolve group failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "resolve group", err))
		return
	}

	isMember, err := h.members.IsActiveMember(ctx, group.ID, member)
	if err != nil {
		h.logger.ErrorContext(ctx, "membership check failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "membership check", err))
		return
	}
	if !isMember {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not an active member of this group"))
		return
	}

	matches, err := h.matches.History(ctx, group.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list matches failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list matches", err))
		return
	}

	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchResponse{
			ID:        m.ID.String(),
			Item:      int64(m.ItemID),
			ClaimedBy: m.ClaimedBy.String(),
			CreatedAt: m.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"matches": out})
}
