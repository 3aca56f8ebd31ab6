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
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Keyword-Search-Service/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
}

// run returns only after the HTTP server has drained, so the deferred
// closers never race in-flight requests.
func run(cfg *config.Config) error {
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"pushdown", cfg.Store.Pushdown,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening posting store: %w", err)
	}
	defer backend.Close()

	var breaker *resilience.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		breaker = resilience.NewCircuitBreaker("posting-store", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
			OnStateChange:    store.BreakerGauge(m),
		})
	}
	postings := store.Guard(backend, breaker, m)

	eng := engine.New(postings, engine.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		Pushdown:     cfg.Store.Pushdown,
		Timeout:      cfg.Search.Timeout,
	})
	slog.Info("ranking engine ready", "pushdown", eng.Pushdown())

	checker := health.NewChecker(0)
	checker.Register("posting_store", health.PingCheck(backend.Ping, true))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			queryCache.SetComputeTimeout(cfg.Search.Timeout)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var tracker handler.EventTracker = aggregator
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, analytics.CollectorConfig{})
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, "analytics", aggregator.HandleEvent())
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer stopped", "error", err)
			}
		}()

		if queryCache != nil {
			invalidator := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, "cache", queryCache.InvalidationHandler())
			go func() {
				if err := invalidator.Start(ctx); err != nil {
					slog.Error("cache invalidation consumer stopped", "error", err)
				}
			}()
		}
		slog.Info("kafka wiring enabled",
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"index_topic", cfg.Kafka.Topics.IndexComplete,
		)
	}

	h := handler.New(eng, queryCache, tracker, m)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	if cfg.Gateway.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewClientLimiter(cfg.Gateway.RateLimit, cfg.Gateway.Burst))(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	<-shutdownDone

	slog.Info("search service stopped")
	return nil
}
