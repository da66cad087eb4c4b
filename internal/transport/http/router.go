// Package http assembles the server's routes: the vote and match REST API,
// the WebSocket subscription endpoint, health, and metrics.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	matchhandler "cinematch/internal/match/handler"
	"cinematch/internal/session"
	votehandler "cinematch/internal/vote/handler"

	"cinematch/pkg/platform/middleware/auth"
	"cinematch/pkg/platform/middleware/request"
)

// Dependencies carries everything the router mounts.
type Dependencies struct {
	Votes     *votehandler.Handler
	Matches   *matchhandler.Handler
	Sessions  *session.Handler
	Validator auth.TokenValidator
	Registry  *prometheus.Registry
	Health    func(http.ResponseWriter, *http.Request)
	Logger    *slog.Logger
}

// NewRouter builds the chi router. The REST API sits behind bearer-token
// auth; the WebSocket endpoint authenticates inside its own handshake because
// browser clients cannot set upgrade headers.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Metadata)

	r.Get("/healthz", deps.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Use(auth.RequireAuth(deps.Validator, deps.Logger))
		deps.Votes.Register(api)
		deps.Matches.Register(api)
	})

	deps.Sessions.Register(r)
	return r
}
