// Package handler exposes the vote submission endpoint.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cinematch/internal/membership"
	"cinematch/internal/vote"

	id "cinematch/pkg/domain"
	dErrors "cinematch/pkg/domain-errors"
	"cinematch/pkg/platform/httputil"
	"cinematch/pkg/platform/sentinel"
	"cinematch/pkg/requestcontext"
)

type Handler struct {
	votes   *vote.Service
	members membership.Service
	logger  *slog.Logger
}

func New(votes *vote.Service, members membership.Service, logger *slog.Logger) *Handler {
	return &Handler{votes: votes, members: members, logger: logger}
}

// Register mounts the vote routes onto the router. Callers wrap the router
// with the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/groups/{groupCode}/votes", h.submit)
}

type submitRequest struct {
	ItemID   int64  `json:"item_id"`
	Decision string `json:"decision"`
}

type matchPayload struct {
	ID         string `json:"id"`
	Enrichment any    `json:"enrichment"`
	Recipients int    `json:"recipients"`
}

type submitResponse struct {
	GroupID   string        `json:"group_id"`
	ItemID    int64         `json:"item_id"`
	Decision  string        `json:"decision"`
	Approvers []string      `json:"approvers"`
	Matched   bool          `json:"matched"`
	Match     *matchPayload `json:"match,omitempty"`
	VotedAt   time.Time     `json:"voted_at"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
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

	req, ok := httputil.Decode[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.ItemID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "item_id must be a positive integer"))
		return
	}
	decision, err := vote.ParseDecision(req.Decision)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.votes.Submit(ctx, group.ID, member, id.ItemID(req.ItemID), decision)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
			h.logger.ErrorContext(ctx, "vote submission failed",
				"request_id", requestID,
				"group", group.ID,
				"item", req.ItemID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	resp := submitResponse{
		GroupID:   group.ID.String(),
		ItemID:    req.ItemID,
		Decision:  string(decision),
		Approvers: memberStrings(result.Approvers),
		Matched:   result.Matched,
		VotedAt:   requestcontext.Now(ctx).UTC(),
	}
	if result.Match != nil {
		resp.Match = &matchPayload{
			ID:         result.Match.Match.ID.String(),
			Enrichment: result.Match.Enrichment,
			Recipients: result.Match.Recipients,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func memberStrings(members []id.MemberID) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.String())
	}
	return out
}
