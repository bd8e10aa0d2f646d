// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"consentd/internal/consent/handler"
	"consentd/internal/consent/notify"
	"consentd/internal/consent/service"
	"consentd/internal/consent/store"
	"consentd/internal/consent/store/migrations"
	"consentd/internal/consent/supervisor"
	"consentd/internal/platform/config"
	"consentd/internal/platform/database"
	"consentd/internal/platform/httpserver"
	"consentd/internal/platform/kafka"
	"consentd/internal/platform/logger"
	"consentd/internal/platform/metrics"
	"consentd/internal/platform/ratelimit"
	platformredis "consentd/internal/platform/redis"
	"consentd/internal/visitor"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx := context.Background()

	// Record slot: Postgres when configured, Redis next, memory as the
	// development fallback.
	var (
		records   store.RecordSlot
		overrides store.OverrideSlot
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.PostgresDSN
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}

	switch {
	case pool != nil:
		if err := database.ApplyMigrations(ctx, pool.DB(), migrations.FS); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		records = store.NewPostgresRecordSlot(pool.DB())
		log.Info("consent records backed by postgres")
	case redisClient != nil:
		records = store.NewRedisRecordSlot(redisClient.Client)
		log.Info("consent records backed by redis")
	default:
		records = store.NewMemoryRecordSlot()
		log.Warn("consent records backed by process memory; decisions will not survive restarts")
	}

	if redisClient != nil {
		overrides = store.NewRedisOverrideSlot(redisClient.Client, cfg.Server.OverrideTTL)
	} else {
		overrides = store.NewMemoryOverrideSlot(cfg.Server.OverrideTTL)
	}

	bus := notify.NewBus()
	consentStore := store.NewNotifying(store.New(records, overrides, log), bus, log)

	// Optional Kafka sink for downstream consumers of consent changes.
	var producer *kafka.Producer
	if cfg.Kafka.Brokers != "" {
		kafkaCfg := kafka.DefaultConfig()
		kafkaCfg.Brokers = cfg.Kafka.Brokers
		producer, err = kafka.NewProducer(kafkaCfg, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		sink := notify.NewKafkaSink(producer, cfg.Kafka.Topic)
		_ = bus.Subscribe(sink.Handle)
		log.Info("consent changes publishing to kafka", "topic", cfg.Kafka.Topic)
	}

	registry := service.NewRegistry(func(visitorID string) service.Session {
		controller := service.NewController(visitorID, consentStore, log)
		return supervisor.New(controller, consentStore, log,
			supervisor.WithRetryBase(cfg.Server.RetryBase),
			supervisor.WithMaxRetries(cfg.Server.MaxRetries),
		)
	}, cfg.Server.SessionTTL, log, m.SessionsActive)

	tokens := visitor.NewTokenService(cfg.Server.JWTSigningKey, "consentd")

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.Server.RateLimit, cfg.Server.RateWindow)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(consentStore, pool, redisClient, producer))
	handler.New(registry, tokens, log, m, handler.WithRateLimit(limiter)).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting consentd", "addr", cfg.Server.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	registry.Close()
	if producer != nil {
		producer.Close()
	}
	if redisClient != nil {
		redisClient.Close() //nolint:errcheck
	}
	pool.Close() //nolint:errcheck

	if err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// healthz reports liveness plus per-dependency health, without touching any
// visitor data. Only the consent medium itself turns the overall status
// degraded; the kafka sink is best-effort.
func healthz(st *store.Notifying, pool *database.Pool, rc *platformredis.Client, producer *kafka.Producer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body := map[string]string{"status": "ok"}

		if pool != nil {
			body["postgres"] = "ok"
			if err := pool.Health(ctx); err != nil {
				body["postgres"] = "unavailable"
			}
		}
		if rc != nil {
			body["redis"] = "ok"
			if err := rc.Health(ctx); err != nil {
				body["redis"] = "unavailable"
			}
		}
		if producer != nil {
			body["kafka"] = "ok"
			if !producer.Healthy(ctx) {
				body["kafka"] = "unavailable"
			}
		}

		status := http.StatusOK
		if !st.Available(ctx) {
			body["status"] = "degraded"
			body["store"] = "unavailable"
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
