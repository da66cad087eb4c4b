package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"cinematch/internal/broadcast"
	"cinematch/internal/channel"
	"cinematch/internal/membership"
	"cinematch/internal/session/metrics"

	"cinematch/pkg/platform/middleware/auth"
	"cinematch/pkg/requestcontext"
)

// Application close codes, in the 4000-4999 range reserved for applications.
const (
	// StatusAuthFailure closes a connection whose token was missing or invalid.
	StatusAuthFailure websocket.StatusCode = 4001
	// StatusNotMember closes an authenticated connection whose member is not
	// active in the requested group.
	StatusNotMember websocket.StatusCode = 4003
)

const writeTimeout = 5 * time.Second

// Handler upgrades HTTP requests to group-subscription WebSocket sessions.
// It does its own authentication instead of sitting behind the bearer
// middleware because browsers cannot set headers on WebSocket upgrades; the
// token may arrive as a query parameter instead.
type Handler struct {
	validator        auth.TokenValidator
	members          membership.Service
	registry         *channel.Registry
	logger           *slog.Logger
	metrics          *metrics.Metrics
	handshakeTimeout time.Duration
	originPatterns   []string
}

func NewHandler(
	validator auth.TokenValidator,
	members membership.Service,
	registry *channel.Registry,
	logger *slog.Logger,
	m *metrics.Metrics,
	handshakeTimeout time.Duration,
	originPatterns []string,
) *Handler {
	return &Handler{
		validator:        validator,
		members:          members,
		registry:         registry,
		logger:           logger,
		metrics:          m,
		handshakeTimeout: handshakeTimeout,
		originPatterns:   originPatterns,
	}
}

// Register mounts the subscription route onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ws/groups/{groupCode}", h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	groupCode := chi.URLParam(r, "groupCode")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "websocket accept failed",
			"request_id", requestID, "error", err)
		return
	}

	sess := New()
	defer func() {
		h.teardown(sess)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	group, ok := h.handshake(ctx, conn, r, sess, groupCode)
	if !ok {
		return
	}
	h.metrics.ActiveSubscriptions.Inc()
	defer h.metrics.ActiveSubscriptions.Dec()
	defer h.metrics.SessionsClosed.WithLabelValues("disconnected").Inc()

	h.logger.InfoContext(ctx, "session subscribed",
		"request_id", requestID,
		"connection", sess.ID(),
		"member", sess.Member(),
		"group", group.ID,
	)

	writeErr := make(chan error, 1)
	go h.writePump(ctx, conn, sess, writeErr)

	h.readLoop(ctx, conn, sess)

	select {
	case err := <-writeErr:
		h.logger.DebugContext(ctx, "session write pump stopped",
			"connection", sess.ID(), "error", err)
	default:
	}
}

// handshake authenticates the connection and subscribes it to the group,
// under a deadline so a stalled client cannot hold a half-open session. On
// failure it closes the socket with the appropriate application code.
func (h *Handler) handshake(ctx context.Context, conn *websocket.Conn, r *http.Request, sess *Session, groupCode string) (membership.Group, bool) {
	hsCtx, cancel := context.WithTimeout(ctx, h.handshakeTimeout)
	defer cancel()

	token := bearerToken(r)
	if token == "" {
		conn.Close(StatusAuthFailure, "missing token")
		h.metrics.SessionsClosed.WithLabelValues("auth_failure").Inc()
		return membership.Group{}, false
	}
	member, err := h.validator.ValidateToken(token)
	if err != nil {
		h.logger.WarnContext(hsCtx, "session auth failed", "error", err)
		conn.Close(StatusAuthFailure, "authentication failed")
		h.metrics.SessionsClosed.WithLabelValues("auth_failure").Inc()
		return membership.Group{}, false
	}
	if err := sess.Authenticate(member); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return membership.Group{}, false
	}

	group, err := h.members.FindGroupByCode(hsCtx, groupCode)
	if err != nil {
		h.logger.WarnContext(hsCtx, "session group lookup failed",
			"group_code", groupCode, "error", err)
		conn.Close(StatusNotMember, "unknown group")
		h.metrics.SessionsClosed.WithLabelValues("not_member").Inc()
		return membership.Group{}, false
	}
	isMember, err := h.members.IsActiveMember(hsCtx, group.ID, member)
	if err != nil {
		h.logger.ErrorContext(hsCtx, "session membership check failed",
			"group", group.ID, "member", member, "error", err)
		conn.Close(websocket.StatusInternalError, "")
		return membership.Group{}, false
	}
	if !isMember {
		conn.Close(StatusNotMember, "not a member of this group")
		h.metrics.SessionsClosed.WithLabelValues("not_member").Inc()
		return membership.Group{}, false
	}
	if err := sess.Subscribe(group.ID); err != nil {
		conn.Close(websocket.StatusInternalError, "")
		return membership.Group{}, false
	}

	// Register before confirming so an event fired right after the handshake
	// already reaches this connection.
	h.registry.Subscribe(group.ID, sess)
	if err := sess.Deliver(broadcast.NewConnectionEstablished(group.ID, member)); err != nil {
		h.registry.Unsubscribe(sess.ID())
		conn.Close(websocket.StatusInternalError, "")
		return membership.Group{}, false
	}
	return group, true
}

// writePump drains the session outbox to the wire. Each write gets its own
// deadline so one stuck write cannot wedge the pump forever.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, sess *Session, errc chan<- error) {
	for {
		select {
		case payload := <-sess.Outbox():
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, payload)
			cancel()
			if err != nil {
				sess.Close()
				errc <- err
				return
			}
		case <-sess.Done():
			errc <- nil
			return
		case <-ctx.Done():
			sess.Close()
			errc <- ctx.Err()
			return
		}
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

// readLoop consumes client frames until the connection drops. Subscribers
// mostly listen; the only inbound messages are keepalive pings.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sess *Session) {
	for {
		var msg inboundMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, context.Canceled) {
				h.logger.DebugContext(ctx, "session read failed",
					"connection", sess.ID(), "error", err)
			}
			sess.Close()
			return
		}
		switch msg.Type {
		case "ping":
			_ = sess.Deliver(broadcast.NewPong())
		default:
			_ = sess.Deliver(broadcast.NewErrorEvent("unknown message type"))
		}
	}
}

// teardown removes the session from the registry and stops the pumps. Safe on
// every exit path, including handshake failures before registration.
func (h *Handler) teardown(sess *Session) {
	h.registry.Unsubscribe(sess.ID())
	sess.Close()
}

// bearerToken extracts the token from the Authorization header or, for
// browser clients that cannot set upgrade headers, the token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	return r.URL.Query().Get("token")
}
