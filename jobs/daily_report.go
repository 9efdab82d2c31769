package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gksmfly/convenience-store-system/internal/jobs"
	"github.com/gksmfly/convenience-store-system/internal/report"
)

// DailyReportJob renders the dashboard, or selected sections, into the log.
type DailyReportJob struct {
	Reports *report.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewDailyReportJob wires the report:daily handler.
func NewDailyReportJob(reports *report.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *DailyReportJob {
	return &DailyReportJob{Reports: reports, Logger: logger, Metrics: metrics}
}

// Handle executes report:daily tasks.
func (j *DailyReportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("daily report: handler not configured")
	}
	var payload DailyReportPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	tracker := j.metrics().Track(TaskReportDaily)
	text, err := j.Render(ctx, payload.Sections)
	if err != nil {
		j.logger().Error("daily report failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("daily report", slog.String("report", text))
	return tracker.End(nil)
}

// Render builds the report text. Unknown section keys fail the run without retry.
func (j *DailyReportJob) Render(ctx context.Context, sections []string) (string, error) {
	if len(sections) == 0 {
		return j.Reports.Dashboard(ctx)
	}
	parts := make([]string, 0, len(sections))
	for _, key := range sections {
		sec, err := j.Reports.Section(ctx, key)
		if err != nil {
			return "", errors.Join(err, asynq.SkipRetry)
		}
		parts = append(parts, sec.String())
	}
	return strings.Join(parts, "\n\n"), nil
}

func (j *DailyReportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportDaily))
	}
	return slog.Default().With(slog.String("job", TaskReportDaily))
}

func (j *DailyReportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
