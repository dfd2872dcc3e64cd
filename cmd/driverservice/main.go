package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/example/driverhub/internal/driver/domain"
	"github.com/example/driverhub/internal/driver/handler"
	"github.com/example/driverhub/internal/driver/index"
	"github.com/example/driverhub/internal/driver/profile"
	"github.com/example/driverhub/internal/driver/registry"
	"github.com/example/driverhub/internal/ingest"
	outboxworker "github.com/example/driverhub/internal/outbox"
	"github.com/example/driverhub/pkg/events"
	"github.com/example/driverhub/pkg/observability"
)

type appConfig struct {
	HTTPAddr      string
	GRPCAddr      string
	PostgresDSN   string
	RedisAddr     string
	NATSURL       string
	EventsSubject string
	LocationTTL   time.Duration
	OutboxPoll    time.Duration
	OutboxBatch   int
	OutboxRetry   int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("driver-service")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "driver-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	cfg := loadConfig()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}
	defer redisClient.Close()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres connect", zap.Error(err))
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal("postgres ping", zap.Error(err))
		}
		if _, err := db.ExecContext(ctx, profile.Schema); err != nil {
			logger.Fatal("postgres schema", zap.Error(err))
		}
		defer db.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		if conn, err := nats.Connect(cfg.NATSURL, nats.Name("driverservice")); err == nil {
			natsConn = conn
			defer conn.Drain() //nolint:errcheck
		} else {
			logger.Warn("nats connection failed", zap.Error(err))
		}
	}

	var profiles domain.ProfileStore
	if db != nil {
		profiles = profile.NewPostgresStore(db, domain.SystemClock{}, cfg.EventsSubject)
	} else {
		logger.Warn("no postgres DSN, using in-memory profile store")
		profiles = profile.NewMemoryStore()
	}

	locations := index.NewRedisIndex(redisClient, cfg.LocationTTL)
	publisher := events.NewPublisher(natsConn, cfg.EventsSubject)
	reg := registry.New(profiles, locations, publisher, domain.SystemClock{}, logger.Named("registry"))

	r := chi.NewRouter()
	r.Mount("/", handler.NewHTTP(reg).Router())
	r.Mount("/observability", observability.MetricsRouter())

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if db != nil && natsConn != nil {
		worker := outboxworker.NewWorker(db, natsConn, logger.Named("outbox"), outboxworker.WorkerConfig{
			PollInterval: cfg.OutboxPoll,
			BatchSize:    cfg.OutboxBatch,
			RetryMax:     cfg.OutboxRetry,
		})
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("outbox worker disabled", zap.Bool("db", db != nil), zap.Bool("nats", natsConn != nil))
	}

	if cfg.GRPCAddr != "" {
		go runIngest(cfg.GRPCAddr, reg, logger)
	}

	go func() {
		logger.Info("driver service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func runIngest(addr string, reg *registry.Registry, logger *zap.Logger) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal("listen grpc", zap.Error(err))
	}
	srv := grpc.NewServer()
	ingest.RegisterPingServer(srv, ingest.NewServer(reg, logger.Named("ingest")))
	logger.Info("location ingest listening", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil {
		logger.Fatal("grpc serve", zap.Error(err))
	}
}

func loadConfig() appConfig {
	return appConfig{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		GRPCAddr:      os.Getenv("INGEST_GRPC_ADDR"),
		PostgresDSN:   firstNonEmpty(os.Getenv("POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		NATSURL:       os.Getenv("NATS_URL"),
		EventsSubject: getenv("EVENTS_SUBJECT", "driver.events"),
		LocationTTL:   time.Duration(parseIntEnv("LOCATION_TTL_SEC", int(domain.LocationTTL.Seconds()))) * time.Second,
		OutboxPoll:    time.Duration(parseIntEnv("OUTBOX_POLL_MS", 200)) * time.Millisecond,
		OutboxBatch:   parseIntEnv("OUTBOX_BATCH", 100),
		OutboxRetry:   parseIntEnv("OUTBOX_RETRY_MAX", 3),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
