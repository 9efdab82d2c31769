package jobs

import "github.com/hibiken/asynq"

// DefaultCron returns the store's nightly schedule: warmup at 05:00, expiry scan at 06:00
// and the daily report at 23:50, in the worker's location.
func DefaultCron() ([]CronRegistration, error) {
	warmup, err := NewAnalyticsWarmupTask()
	if err != nil {
		return nil, err
	}
	scan, err := NewExpiryScanTask(0)
	if err != nil {
		return nil, err
	}
	daily, err := NewDailyReportTask()
	if err != nil {
		return nil, err
	}
	retry := []asynq.Option{asynq.MaxRetry(3)}
	return []CronRegistration{
		{Spec: "0 5 * * *", Task: warmup, Options: retry},
		{Spec: "0 6 * * *", Task: scan, Options: retry},
		{Spec: "50 23 * * *", Task: daily, Options: retry},
	}, nil
}
