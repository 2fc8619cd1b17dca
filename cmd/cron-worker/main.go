// Command cron-worker prunes the outbox and notification tables on a fixed
// interval. With -once it runs a single cycle and exits, for schedulers that
// own the timing themselves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run one maintenance cycle and exit")
	flag.Parse()

	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, once bool) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind, cfg.App.Env), 0)
	if err != nil {
		return err
	}
	jobs, err := buildJobs(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Jobs:       jobs,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(reg),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"serviceKind": serviceKind, "once": once})
	if once {
		ran, err := service.RunOnce(ctx)
		logg.Info(logg.WithField(ctx, "ran", ran), "single cycle finished")
		return err
	}

	go func() {
		if err := metrics.Serve(ctx, ":"+cfg.App.Port, reg, logg); err != nil {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) ([]cron.Job, error) {
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionParams{
		Logger:           logg,
		DB:               dbClient,
		Repository:       outbox.NewRepository(dbClient.DB()),
		Retention:        cfg.Cron.OutboxRetention,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return []cron.Job{outboxJob, notificationJob}, nil
}
