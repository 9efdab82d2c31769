package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	jobmetrics "github.com/gksmfly/convenience-store-system/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmupTimeout = 20 * time.Second

// AnalyticsWarmupJob pre-populates the analytics cache for common windows.
type AnalyticsWarmupJob struct {
	Analytics *analytics.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(analyticsSvc *analytics.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{Analytics: analyticsSvc, Logger: logger, Metrics: metrics}
}

// Handle processes analytics:warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	windows := payload.Windows
	if len(windows) == 0 {
		windows = DefaultWarmupWindows
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	start := time.Now()
	logger := j.logger().With(slog.Any("windows", windows))
	logger.Info("starting analytics warmup")

	if err := j.Warm(ctx, windows); err != nil {
		logger.Error("analytics warmup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("completed analytics warmup", slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

// Warm computes each window and its daily trend concurrently, filling the cache.
func (j *AnalyticsWarmupJob) Warm(ctx context.Context, windows []int) error {
	ctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	for _, days := range windows {
		g.Go(func() error {
			if _, err := j.Analytics.Window(gctx, days); err != nil {
				return err
			}
			_, err := j.Analytics.DailyTrend(gctx, days)
			return err
		})
	}
	return g.Wait()
}

// Follow re-warms today's window after every cache version bump until updates closes.
func (j *AnalyticsWarmupJob) Follow(ctx context.Context, updates <-chan int64) {
	for version := range updates {
		if err := j.Warm(ctx, []int{1}); err != nil && ctx.Err() == nil {
			j.logger().Warn("rewarm after invalidation", slog.Int64("version", version), slog.Any("error", err))
		}
	}
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
