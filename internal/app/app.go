// Package app wires the storefront's dependency graph and owns its
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/bus"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/catalog"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/checkout"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/config"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/event"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/guest"
	handler "github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/handler/http"
	redisrepo "github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/repository/redis"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/internal/upstream/cartapi"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/database"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/health"
	pkgkafka "github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/kafka"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/middleware"
	"github.com/mayuri-bharti/medical-shop-frontend-sub002/pkg/tracing"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	rdb             *redis.Client
	producer        *pkgkafka.Producer
	httpServer      *http.Server
	tracingShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Tracing.
	traceCfg := tracing.DefaultConfig("storefront")
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
	traceCfg.Enabled = cfg.TracingEnabled
	tracingShutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Redis backs guest carts and checkout selections.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", cfg.RedisAddr),
		slog.Int("db", cfg.RedisDB),
	)

	// The in-process event bus every cart mutation broadcasts on.
	eventBus := bus.New(logger)

	// Optional Kafka fan-out of cart events.
	var producer *pkgkafka.Producer
	if cfg.KafkaEnabled() {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		event.NewForwarder(producer, logger).Attach(eventBus)
		logger.Info("kafka fan-out enabled", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	guestTTL := time.Duration(cfg.GuestCartTTL) * time.Hour
	guestStore := guest.NewStore(redisrepo.NewGuestCartRepository(rdb, guestTTL), eventBus, logger)

	upstreamClient := cartapi.New(cfg.CartAPIURL, eventBus, logger)

	selectionTTL := time.Duration(cfg.SelectionTTL) * time.Minute
	checkoutSvc := checkout.NewService(checkout.NewSelectionStore(rdb, selectionTTL), logger)

	catalogue, err := catalog.NewFromEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load catalogue: %w", err)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if producer != nil {
		// Kafka fan-out is best-effort; a dead broker degrades but does not
		// unready the storefront.
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// HTTP router.
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins

	router := handler.NewRouter(
		handler.NewCartHandler(guestStore, upstreamClient, catalogue, logger),
		handler.NewCheckoutHandler(guestStore, upstreamClient, checkoutSvc, logger),
		handler.NewCatalogHandler(catalogue, logger),
		healthHandler,
		logger,
		handler.RouterConfig{
			JWTSecret:      cfg.JWTSecret,
			SessionTTL:     guestTTL,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			CORS:           corsCfg,
		},
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		rdb:             rdb,
		producer:        producer,
		httpServer:      httpServer,
		tracingShutdown: tracingShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	if err := a.tracingShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
