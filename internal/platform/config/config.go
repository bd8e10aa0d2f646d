package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	SessionTTL    time.Duration
	OverrideTTL   time.Duration
	RetryBase     time.Duration
	MaxRetries    int
	RateLimit     int
	RateWindow    time.Duration
}

// RedisConfig tunes the optional Redis-backed consent store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig points the change-event sink at a broker set. Empty Brokers
// disables the sink.
type KafkaConfig struct {
	Brokers string
	Topic   string
}

// Config is the full process configuration.
type Config struct {
	Server      Server
	Redis       RedisConfig
	PostgresDSN string
	Kafka       KafkaConfig
}

// SessionTTL bounds how long an idle visitor session keeps its controller
// and retry timers alive.
var SessionTTL = 30 * time.Minute

// OverrideTTL is the lifetime of the explicit-choice marker. It only needs
// to outlive the races it guards against, not the record itself.
var OverrideTTL = 24 * time.Hour

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("CONSENTD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	if v := os.Getenv("CONSENTD_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			SessionTTL = d
		}
	}
	if v := os.Getenv("CONSENTD_OVERRIDE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			OverrideTTL = d
		}
	}

	retryBase := 1000 * time.Millisecond
	if v := os.Getenv("CONSENTD_RETRY_BASE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			retryBase = d
		}
	}
	maxRetries := 3
	if v := os.Getenv("CONSENTD_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			maxRetries = n
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	topic := os.Getenv("KAFKA_CONSENT_TOPIC")
	if topic == "" {
		topic = "consent.changes"
	}

	return Config{
		Server: Server{
			Addr:          addr,
			JWTSigningKey: jwtSigningKey,
			SessionTTL:    SessionTTL,
			OverrideTTL:   OverrideTTL,
			RetryBase:     retryBase,
			MaxRetries:    maxRetries,
			RateLimit:     envInt("CONSENTD_RATE_LIMIT", 30),
			RateWindow:    envDuration("CONSENTD_RATE_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		PostgresDSN: os.Getenv("DATABASE_URL"),
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
