// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis    RedisConfig
	Kafka    KafkaConfig
	Metadata MetadataConfig

	// HandshakeTimeout bounds how long a WebSocket connection may sit in the
	// authentication/authorization handshake before it is closed.
	HandshakeTimeout time.Duration

	// WSAllowedOrigins restricts browser origins for WebSocket upgrades.
	// Empty means same-origin only.
	WSAllowedOrigins []string
}

// RedisConfig configures the enrichment cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the match event stream. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    []string
	MatchTopic string
}

// MetadataConfig configures the upstream movie metadata service.
type MetadataConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults. Production deployments override via the environment.
func FromEnv() Config {
	return Config{
		Addr:          getEnv("CINEMATCH_ADDR", ":8080"),
		DatabaseURL:   getEnv("DATABASE_URL", "postgres://localhost:5432/cinematch?sslmode=disable"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			MatchTopic: getEnv("KAFKA_MATCH_TOPIC", "cinematch.matches"),
		},
		Metadata: MetadataConfig{
			BaseURL:  getEnv("METADATA_BASE_URL", "https://api.themoviedb.org/3"),
			APIKey:   os.Getenv("METADATA_API_KEY"),
			Timeout:  getEnvDuration("METADATA_TIMEOUT", 5*time.Second),
			CacheTTL: getEnvDuration("METADATA_CACHE_TTL", 6*time.Hour),
		},
		HandshakeTimeout: getEnvDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		WSAllowedOrigins: splitList(os.Getenv("WS_ALLOWED_ORIGINS")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
