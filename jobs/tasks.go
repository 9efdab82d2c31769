package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportDaily renders the end-of-day dashboard into the log.
	TaskReportDaily = "report:daily"
	// TaskAnalyticsWarmup pre-computes cached sales windows.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskInventoryExpiryScan logs products approaching expiry with their sale price.
	TaskInventoryExpiryScan = "inventory:expiry_scan"
)

// DefaultWarmupWindows are the analytics windows warmed when none are given.
var DefaultWarmupWindows = []int{1, 7, 30}

// DailyReportPayload selects what the daily report task renders.
type DailyReportPayload struct {
	Sections []string `json:"sections,omitempty"`
}

// AnalyticsWarmupPayload lists the day windows to warm.
type AnalyticsWarmupPayload struct {
	Windows []int `json:"windows,omitempty"`
}

// ExpiryScanPayload overrides the expiry warning window.
type ExpiryScanPayload struct {
	WarnDays int `json:"warn_days,omitempty"`
}

// NewDailyReportTask builds a report:daily task. No sections means the full dashboard.
func NewDailyReportTask(sections ...string) (*asynq.Task, error) {
	return newTask(TaskReportDaily, DailyReportPayload{Sections: sections})
}

// NewAnalyticsWarmupTask builds an analytics:warmup task.
func NewAnalyticsWarmupTask(windows ...int) (*asynq.Task, error) {
	return newTask(TaskAnalyticsWarmup, AnalyticsWarmupPayload{Windows: windows})
}

// NewExpiryScanTask builds an inventory:expiry_scan task. Zero uses the configured window.
func NewExpiryScanTask(warnDays int) (*asynq.Task, error) {
	return newTask(TaskInventoryExpiryScan, ExpiryScanPayload{WarnDays: warnDays})
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, data), nil
}

func decodePayload(t *asynq.Task, dest any) error {
	if len(t.Payload()) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.Payload(), dest); err != nil {
		return asynq.SkipRetry
	}
	return nil
}
