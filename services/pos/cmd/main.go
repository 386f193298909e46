package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/pos-engine/pkg/config"
	"github.com/sakashimaa/pos-engine/pkg/db"
	kafka2 "github.com/sakashimaa/pos-engine/pkg/kafka"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	outboxRepository "github.com/sakashimaa/pos-engine/pkg/outbox/repository"
	"github.com/sakashimaa/pos-engine/pkg/outbox/worker"
	"github.com/sakashimaa/pos-engine/pkg/utils"
	"github.com/sakashimaa/pos-engine/services/pos/internal/metrics"
	"github.com/sakashimaa/pos-engine/services/pos/internal/repository"
	"github.com/sakashimaa/pos-engine/services/pos/internal/service"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/grpc"
	httpTransport "github.com/sakashimaa/pos-engine/services/pos/internal/transport/http"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/http/handler"
	"github.com/sakashimaa/pos-engine/services/pos/internal/transport/kafka"
	"go.uber.org/zap"
)

const serviceName = "pos-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not found: %v\n", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.LoggerConfig(serviceName))
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	tp, err := utils.InitTracer(ctx, utils.TracerConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		Disabled:    cfg.Tracing.Disabled,
	})
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}

	if err := db.Migrate(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	pool, err := db.NewPostgresDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to create pool", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	grpc_prometheus.EnableHandlingTimeHistogram()
	reg.MustRegister(grpc_prometheus.DefaultServerMetrics)

	posMetrics := metrics.New(reg)

	var (
		catalog     repository.CatalogRepository = repository.NewCatalogRepository(pool, logger)
		invalidator repository.CatalogInvalidator
		redisClient *redis.Client
	)
	if !cfg.Catalog.DisableCache {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			mylogger.Warn(ctx, logger, "Redis unreachable, catalog reads fall through to postgres", zap.Error(err))
		}

		cached := repository.NewCachedCatalogRepository(catalog, redisClient, cfg.Catalog.CacheTTL, logger)
		catalog = cached
		invalidator = cached
	}

	orderRepo := repository.NewOrderRepository(pool, logger)
	tableRepo := repository.NewTableRepository(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)

	orderService := service.NewOrderService(pool, logger, orderRepo, catalog, outboxRepo, posMetrics)
	tableService := service.NewTableService(pool, logger, tableRepo, orderRepo, outboxRepo, posMetrics)
	catalogService := service.NewCatalogService(catalog, logger)

	kafkaProducer, err := kafka2.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Fatal("error creating kafka producer", zap.Error(err))
	}

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	consumer := kafka.NewConsumer(orderService, invalidator, pool, logger)
	go func() {
		if err := consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID); err != nil {
			mylogger.Error(ctx, logger, "Kafka consumer stopped", zap.Error(err))
		}
	}()

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		mylogger.Info(ctx, logger, "Metrics server listening", zap.String("addr", cfg.Metrics.Port))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylogger.Error(ctx, logger, "Metrics serving failed", zap.Error(err))
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPC.Port)
	if err != nil {
		logger.Fatal("error listening on grpc port", zap.String("addr", cfg.GRPC.Port), zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		logger,
		grpc.NewOrderHandler(orderService, logger),
		grpc.NewTableHandler(tableService, logger),
	)
	go func() {
		mylogger.Info(ctx, logger, "gRPC server listening", zap.String("addr", cfg.GRPC.Port))
		if err := grpcServer.Serve(lis); err != nil {
			mylogger.Error(ctx, logger, "Error serving gRPC", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          httpTransport.ErrorHandler,
	})

	app.Use(otelfiber.Middleware())

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Limiter.Max,
		Expiration: cfg.Limiter.Expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Try again later.",
				"code":  "RATE_LIMITED",
			})
		},
	}))

	handlers := &httpTransport.Handlers{
		Order:   handler.NewOrderHandler(orderService, logger, cfg.HTTP.Timeout),
		Table:   handler.NewTableHandler(tableService, logger, cfg.HTTP.Timeout),
		Catalog: handler.NewCatalogHandler(catalogService, logger, cfg.HTTP.Timeout),
	}

	httpTransport.RegisterRoutes(app, handlers, cfg.Auth.AccessSecret)

	go func() {
		mylogger.Info(ctx, logger, "HTTP server listening", zap.String("addr", cfg.HTTP.Port))
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			mylogger.Error(ctx, logger, "Error listening on HTTP", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mylogger.Info(shutdownCtx, logger, "Shutting down pos service")

	grpcServer.GracefulStop()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Error shutting down HTTP", zap.Error(err))
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Error shutting down metrics server", zap.Error(err))
	}

	if err := kafkaProducer.Close(); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Kafka close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			mylogger.Warn(shutdownCtx, logger, "Redis close error", zap.Error(err))
		}
	}

	pool.Close()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(shutdownCtx, logger, "Failed to shut down telemetry", zap.Error(err))
	}

	mylogger.Info(shutdownCtx, logger, "Pos service stopped")
}
