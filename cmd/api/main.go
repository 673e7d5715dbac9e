package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/salesorders-backend/api/routes"
	"github.com/angelmondragon/salesorders-backend/internal/conversions"
	"github.com/angelmondragon/salesorders-backend/internal/discounts"
	"github.com/angelmondragon/salesorders-backend/internal/orders"
	"github.com/angelmondragon/salesorders-backend/internal/products"
	"github.com/angelmondragon/salesorders-backend/internal/stats"
	"github.com/angelmondragon/salesorders-backend/pkg/config"
	"github.com/angelmondragon/salesorders-backend/pkg/db"
	"github.com/angelmondragon/salesorders-backend/pkg/instance"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
	"github.com/angelmondragon/salesorders-backend/pkg/metrics"
	"github.com/angelmondragon/salesorders-backend/pkg/migrate"
	"github.com/angelmondragon/salesorders-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     logger.IsConsoleFormat(cfg.App.LogFormat),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; order locks are process-local and idempotency replay is off")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(registry)

	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	discountRepo := discounts.NewRepository(conn)

	resolver, err := products.NewResolver(productRepo, engineMetrics, logg)
	requireService(ctx, logg, "product resolver", err)
	productService, err := products.NewService(productRepo, resolver)
	requireService(ctx, logg, "product service", err)
	aliasRegistry, err := conversions.NewRegistry(productRepo, dbClient, logg)
	requireService(ctx, logg, "conversion registry", err)
	discountService, err := discounts.NewService(discountRepo, dbClient)
	requireService(ctx, logg, "discount service", err)

	var locker orders.OrderLocker = orders.NewLocalLocker()
	if redisClient != nil {
		locker = orders.NewLeaseLocker(redisClient, cfg.Pricing.LockTTL, cfg.Pricing.LockWait, cfg.Pricing.LockRetryInterval, logg)
	}
	ordersService, err := orders.NewService(orders.NewRepository(conn), productRepo, discountRepo, dbClient, locker, engineMetrics, logg)
	requireService(ctx, logg, "orders service", err)
	statsService, err := stats.NewService(stats.NewRepository(conn), cfg.Stats)
	requireService(ctx, logg, "stats service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient,
			productService, aliasRegistry, discountService, ordersService, statsService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to build service", err)
	os.Exit(1)
}
