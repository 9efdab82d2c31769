package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/gksmfly/convenience-store-system/internal/app"
	"github.com/gksmfly/convenience-store-system/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	if cfg.StoreBackend == app.BackendMemory {
		logger.Warn("worker running against the memory backend sees only its own empty store")
	}

	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer c.Close()

	warmupJob := jobs.NewAnalyticsWarmupJob(c.Analytics, logger, c.JobMetrics)
	expiryJob := jobs.NewExpiryScanJob(c.Inventory, logger, c.JobMetrics)
	reportJob := jobs.NewDailyReportJob(c.Reports, logger, c.JobMetrics)

	cron, err := jobs.DefaultCron()
	if err != nil {
		logger.Error("build cron tasks", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Location:  cfg.Location,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskInventoryExpiryScan, Handler: expiryJob.Handle},
			{Type: jobs.TaskReportDaily, Handler: reportJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if c.Cache != nil {
		go warmupJob.Follow(ctx, c.Cache.Invalidations(ctx))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
