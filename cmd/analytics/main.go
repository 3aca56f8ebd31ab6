// Command analytics aggregates search events published by the search
// service and serves the summary at GET /api/v1/analytics. Run it when
// several search replicas share one analytics view.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 0, "HTTP port (defaults to server.port + 1)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port == 0 {
		*port = cfg.Server.Port + 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, *port); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, port int) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("analytics service needs kafka.brokers")
	}
	slog.Info("starting analytics service", "port", port, "topic", cfg.Kafka.Topics.AnalyticsEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, "aggregator", aggregator.HandleEvent())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer stopped", "error", err)
		}
	}()

	checker := health.NewChecker(0)
	checker.Register("kafka_consumer", func(context.Context) health.ComponentHealth {
		select {
		case <-consumerDone:
			return health.ComponentHealth{Status: health.StatusDown, Message: "consumer stopped"}
		default:
			return health.ComponentHealth{Status: health.StatusUp}
		}
	})

	m := metrics.New(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", m.Handler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	<-shutdownDone
	<-consumerDone
	slog.Info("analytics service stopped")
	return nil
}
