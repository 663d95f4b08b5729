package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/client"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	filestore "github.com/utafrali/storefront/internal/repository/file"
	"github.com/utafrali/storefront/internal/repository/memory"
	redisstore "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dispatcher     *pkgkafka.Dispatcher
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	traceCfg := tracing.DefaultConfig(serviceName)
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.OTELEndpoint
	traceCfg.SampleRate = cfg.OTELSampleRate
	traceCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}

	store, err := a.openSnapshotStore(ctx)
	if err != nil {
		return nil, err
	}

	// Storefront API client with retries and a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.APITimeout()
	httpCfg.MaxRetries = cfg.APIMaxRetries
	baseClient := httpclient.New(httpCfg)

	cbCfg := httpclient.DefaultCircuitBreakerConfig("storefront-api")
	cbCfg.MaxRequests = cfg.CBMaxRequests
	cbCfg.Interval = time.Duration(cfg.CBInterval) * time.Second
	cbCfg.Timeout = time.Duration(cfg.CBTimeout) * time.Second
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	apiClient := client.New(cfg.APIURL, cbClient, logger)
	logger.Info("storefront api client initialized",
		slog.String("api_url", cfg.APIURL),
		slog.Int("max_retries", cfg.APIMaxRetries),
		slog.Int("cb_timeout_seconds", cfg.CBTimeout),
	)

	// Domain events.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		dispatchCfg := pkgkafka.DefaultDispatcherConfig()
		dispatchCfg.QueueSize = cfg.EventQueueSize
		a.dispatcher = pkgkafka.NewDispatcher(a.producer, dispatchCfg, logger)
		publisher = event.NewProducer(a.dispatcher, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	session := service.NewSessionService(ctx, apiClient, repository.NewTokenRepository(store), logger)
	apiClient.SetTokenSource(session)

	cartService := service.NewCartService(ctx, repository.NewCartRepository(store), publisher, cfg.ShopperID, logger)
	checkoutService := service.NewCheckoutService(cartService, apiClient, publisher, cfg.ShopperID, logger)
	catalogService := service.NewCatalogService(apiClient, logger)
	orderService := service.NewOrderService(apiClient, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("storage", store.Ping)
	healthHandler.Register("storefront-api", apiClient.Ping)
	healthHandler.Register("storefront-api-breaker", cbClient.Check)
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	router := handler.NewRouter(handler.Services{
		Cart:     cartService,
		Checkout: checkoutService,
		Session:  session,
		Catalog:  catalogService,
		Orders:   orderService,
	}, healthHandler, handler.RouterConfig{
		ServiceName:    serviceName,
		RequestTimeout: cfg.RequestTimeout(),
		CatalogMaxAge:  cfg.CatalogCacheSeconds,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
		RateLimit: middleware.RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openSnapshotStore builds the local store selected by STORAGE_DRIVER.
func (a *App) openSnapshotStore(ctx context.Context) (repository.SnapshotStore, error) {
	switch a.cfg.StorageDriver {
	case config.StorageRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = a.cfg.RedisAddr
		redisCfg.Password = a.cfg.RedisPass
		redisCfg.DB = a.cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		a.logger.Info("connected to Redis",
			slog.String("addr", a.cfg.RedisAddr),
			slog.Int("db", a.cfg.RedisDB),
		)
		return redisstore.NewStore(rdb, a.cfg.ShopperID, a.cfg.SnapshotTTLDuration()), nil

	case config.StorageMemory:
		a.logger.Warn("using in-memory snapshot store; the cart is lost on restart")
		return memory.NewStore(), nil

	default:
		store, err := filestore.NewStore(a.cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("open snapshot dir: %w", err)
		}
		a.logger.Info("using file snapshot store", slog.String("dir", a.cfg.StorageDir))
		return store, nil
	}
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully stops all components in order: the HTTP server, the
// tracer, the event queue and Kafka producer, then Redis.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.dispatcher != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		if err := a.dispatcher.Close(drainCtx); err != nil {
			a.logger.Warn("event queue not drained",
				slog.Int("pending", a.dispatcher.Pending()),
				slog.String("error", err.Error()),
			)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
