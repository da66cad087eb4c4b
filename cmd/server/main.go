// Command server runs the group movie-matching service: vote submission over
// HTTP, consensus detection, and match fan-out to live WebSocket subscribers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"cinematch/internal/broadcast"
	broadcastmetrics "cinematch/internal/broadcast/metrics"
	"cinematch/internal/channel"
	"cinematch/internal/consensus"
	"cinematch/internal/match"
	matchhandler "cinematch/internal/match/handler"
	matchmetrics "cinematch/internal/match/metrics"
	"cinematch/internal/membership"
	"cinematch/internal/metadata"
	"cinematch/internal/platform/config"
	"cinematch/internal/platform/httpserver"
	"cinematch/internal/platform/kafka"
	"cinematch/internal/platform/logger"
	"cinematch/internal/platform/postgres"
	"cinematch/internal/platform/redis"
	"cinematch/internal/session"
	sessionmetrics "cinematch/internal/session/metrics"
	"cinematch/internal/token"
	transport "cinematch/internal/transport/http"
	"cinematch/internal/vote"
	votehandler "cinematch/internal/vote/handler"
	votemetrics "cinematch/internal/vote/metrics"
)

func main() {
	log := logger.New()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tokens := token.NewJWTService(cfg.JWTSigningKey, "cinematch")
	members := membership.NewPostgres(db)

	channels := channel.NewRegistry()
	dispatcher := broadcast.NewDispatcher(channels, log, broadcastmetrics.New(registry))

	var describer metadata.Describer
	if cfg.Metadata.APIKey != "" {
		describer = metadata.NewTMDBClient(cfg.Metadata.BaseURL, cfg.Metadata.APIKey, cfg.Metadata.Timeout)
		if redisClient != nil {
			describer = metadata.NewCachedDescriber(describer, redisClient, cfg.Metadata.CacheTTL, log)
		}
	}

	stream := match.NewStreamPublisher(producer, cfg.Kafka.MatchTopic, log)
	matches := match.NewService(match.NewPostgres(db), describer, dispatcher, stream, log, matchmetrics.New(registry))

	votes := vote.NewService(
		vote.NewPostgres(db),
		members,
		consensus.New(members),
		matches,
		log,
		votemetrics.New(registry),
	)

	sessions := session.NewHandler(
		tokens, members, channels, log,
		sessionmetrics.New(registry),
		cfg.HandshakeTimeout, cfg.WSAllowedOrigins,
	)

	router := transport.NewRouter(transport.Dependencies{
		Votes:     votehandler.New(votes, members, log),
		Matches:   matchhandler.New(matches, members, log),
		Sessions:  sessions,
		Validator: tokens,
		Registry:  registry,
		Health:    healthHandler(db, redisClient),
		Logger:    log,
	})

	server := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// healthHandler reports liveness of the core dependencies. Redis and Kafka
// are optional, so only configured dependencies are checked.
func healthHandler(db interface {
	PingContext(ctx context.Context) error
}, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
