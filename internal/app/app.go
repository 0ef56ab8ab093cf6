package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/donMuregi/tepstore/internal/audit"
	"github.com/donMuregi/tepstore/internal/auth"
	"github.com/donMuregi/tepstore/internal/config"
	"github.com/donMuregi/tepstore/internal/event"
	handler "github.com/donMuregi/tepstore/internal/handler/http"
	"github.com/donMuregi/tepstore/internal/notify"
	"github.com/donMuregi/tepstore/internal/repository/postgres"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/internal/session"
	"github.com/donMuregi/tepstore/migrations"
	"github.com/donMuregi/tepstore/pkg/database"
	"github.com/donMuregi/tepstore/pkg/health"
	pkgkafka "github.com/donMuregi/tepstore/pkg/kafka"
	"github.com/donMuregi/tepstore/pkg/tracing"
)

// App wires together all dependencies and runs the store backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "tepstore",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampling,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "tepstore")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryTime > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryTime, logger)
	}

	// Redis backs the guest session store.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	financingRepo := postgres.NewFinancingRepository(pool)
	enterpriseRepo := postgres.NewEnterpriseRepository(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	publisher := event.NewKafkaPublisher(producer, logger)
	notifier := notify.NewKafkaNotifier(producer, logger)
	auditor := audit.NewPostgresRecorder(pool, logger)
	sessions := session.NewStore(redisClient, cfg.SessionTTL)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	cartService := service.NewCartService(cartRepo, catalogRepo, publisher, logger)
	orderService := service.NewOrderService(orderRepo, cartRepo, catalogRepo, publisher, notifier, auditor, cfg.ShippingCost, logger)
	financingService := service.NewFinancingService(financingRepo, catalogRepo, publisher, notifier, auditor, logger)
	enterpriseService := service.NewEnterpriseService(enterpriseRepo, catalogRepo, publisher, notifier, auditor, logger)
	accountService := service.NewAccountService(accountRepo, cartService, jwtManager, auditor, logger)
	catalogService := service.NewCatalogService(catalogRepo)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Carts:      cartService,
		Orders:     orderService,
		Financing:  financingService,
		Enterprise: enterpriseService,
		Accounts:   accountService,
		Catalog:    catalogService,
	}, handler.RouterConfig{
		Sessions:       sessions,
		TokenValidator: jwtManager.Validate,
		Health:         healthHandler,
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		PprofCIDRs:     pprofCIDRs(cfg),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

func pprofCIDRs(cfg *config.Config) []string {
	if !cfg.PprofEnabled {
		return nil
	}
	return cfg.PprofAllowed
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
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

// Shutdown gracefully stops all components in order: drain HTTP, flush
// spans, close Kafka, close Redis, close the pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
