package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	auditsvc "github.com/rmoreno-dev/mesa-backend/internal/audit"
	cartsvc "github.com/rmoreno-dev/mesa-backend/internal/cart"
	"github.com/rmoreno-dev/mesa-backend/internal/cron"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	"github.com/rmoreno-dev/mesa-backend/pkg/db"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	"github.com/rmoreno-dev/mesa-backend/pkg/metrics"
	"github.com/rmoreno-dev/mesa-backend/pkg/migrate"
	"github.com/rmoreno-dev/mesa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	auditService, err := auditsvc.NewService(auditsvc.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	cartTTLJob, err := cron.NewCartTTLJob(cron.CartTTLJobParams{
		Logger: logg,
		Carts:  cartsvc.NewRepository(dbClient.DB()),
		TTL:    cfg.Cart.AnonymousTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart ttl job", err)
		os.Exit(1)
	}

	auditRetentionJob, err := cron.NewAuditRetentionJob(cron.AuditRetentionJobParams{
		Logger:    logg,
		Audit:     auditService,
		Retention: cfg.Audit.Retention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create audit retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(cartTTLJob, cfg.Cron.CartSweepInterval)
	registry.Register(auditRetentionJob, cfg.Cron.AuditSweepInterval)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     redisClient,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		LockTTL:  cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
