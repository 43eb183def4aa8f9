package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/fleetparts-backend/internal/cron"
	"github.com/angelmondragon/fleetparts-backend/internal/parts"
	"github.com/angelmondragon/fleetparts-backend/internal/reports"
	"github.com/angelmondragon/fleetparts-backend/internal/sequence"
	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
	"github.com/angelmondragon/fleetparts-backend/pkg/metrics"
	"github.com/angelmondragon/fleetparts-backend/pkg/migrate"
	"github.com/angelmondragon/fleetparts-backend/pkg/redis"
)

const lockKeyFormat = "fp:cron-worker:lock:%s:%s"

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

	sequenceService, err := sequence.NewService(sequence.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create sequence service", err)
		os.Exit(1)
	}

	partsService, err := parts.NewService(dbClient, parts.NewRepository(dbClient.DB()), sequenceService, parts.ServiceConfig{})
	if err != nil {
		logg.Error(context.Background(), "failed to create parts service", err)
		os.Exit(1)
	}

	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)
	stockRepo := stock.NewRepository(dbClient.DB())
	stockService, err := stock.NewService(dbClient, stockRepo, partsService, sequenceService, nil, stock.ServiceConfig{
		ReconcileMaxRetries: cfg.Stock.ReconcileMaxRetries,
		Metrics:             stockMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	verifyJob, err := cron.NewSnapshotVerifyJob(cron.SnapshotVerifyJobParams{
		Logger:   logg,
		Parts:    stockRepo,
		Verifier: stockService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create snapshot verify job", err)
		os.Exit(1)
	}

	lowStockJob, err := cron.NewLowStockScanJob(cron.LowStockScanJobParams{
		Logger:    logg,
		Shortages: reportsService,
		Metrics:   stockMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock scan job", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	group, groupCtx := errgroup.WithContext(ctx)
	schedules := []struct {
		job      cron.Job
		interval cronInterval
	}{
		{verifyJob, cronInterval{name: "snapshot-verify", every: cfg.Cron.SnapshotVerifySchedule}},
		{lowStockJob, cronInterval{name: "low-stock-scan", every: cfg.Cron.LowStockScanSchedule}},
	}
	for _, schedule := range schedules {
		lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env, schedule.interval.name), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cron lock", err)
			os.Exit(1)
		}
		service, err := cron.NewService(cron.ServiceParams{
			Logger:   logg,
			Registry: cron.NewRegistry(schedule.job),
			Lock:     lock,
			Metrics:  cronMetrics,
			Interval: schedule.interval.every,
		})
		if err != nil {
			logg.Error(ctx, "failed to create cron service", err)
			os.Exit(1)
		}
		group.Go(func() error {
			return service.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

type cronInterval struct {
	name  string
	every time.Duration
}

func lockKey(env, job string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env, job)
}
