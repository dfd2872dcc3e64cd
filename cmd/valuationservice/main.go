package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/driverhub/internal/valuation/handler"
	"github.com/example/driverhub/internal/valuation/routing"
	valsvc "github.com/example/driverhub/internal/valuation/service"
	"github.com/example/driverhub/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.SetupLogger("valuation-service")
	defer logger.Sync() //nolint:errcheck

	shutdown, err := observability.SetupTracer(ctx, "valuation-service")
	if err != nil {
		logger.Warn("tracer setup failed", zap.Error(err))
	} else {
		defer shutdown(context.Background())
	}

	routingURL := os.Getenv("ROUTING_SERVICE_URL")
	if routingURL == "" {
		logger.Fatal("ROUTING_SERVICE_URL is required")
	}
	timeout := time.Duration(parseIntEnv("ROUTING_TIMEOUT_MS", 5000)) * time.Millisecond

	distances := routing.NewClient(routingURL, timeout, logger.Named("routing"))
	svc := valsvc.New(distances, nil, 0, logger.Named("valuation"))

	r := chi.NewRouter()
	r.Mount("/", handler.New(svc).Router())
	r.Mount("/observability", observability.MetricsRouter())

	srv := &http.Server{
		Addr:              getenv("HTTP_ADDR", ":8082"),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("valuation service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
