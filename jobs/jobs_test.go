package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	jobmetrics "github.com/gksmfly/convenience-store-system/internal/jobs"
	"github.com/gksmfly/convenience-store-system/internal/report"
)

var today = clock.Date(2025, 10, 11)

type fixture struct {
	inv      *inventory.Service
	analysis *analytics.Service
	reports  *report.Service
	mr       *miniredis.Miniredis
	metrics  *jobmetrics.Metrics
	logger   *slog.Logger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := inventory.NewMemoryRepository()
	inv := inventory.NewService(repo, nil, clock.Fixed(today), nil, inventory.ServiceConfig{})
	soon := today.AddDate(0, 0, 1)
	later := today.AddDate(0, 0, 10)
	for _, p := range []inventory.Product{
		{ID: "milk", Name: "우유", Category: inventory.CategoryDairy, Price: 1500, TargetStock: 10, CurrentStock: 6, ExpiryDate: &soon},
		{ID: "ramen", Name: "라면", Category: inventory.CategoryFood, Price: 1000, TargetStock: 10, CurrentStock: 8, ExpiryDate: &later},
		{ID: "cola", Name: "콜라", Category: inventory.CategoryBeverage, Price: 1800, TargetStock: 10, CurrentStock: 10},
	} {
		_, err := inv.AddProduct(ctx, p)
		require.NoError(t, err)
	}
	_, err := inv.Sell(ctx, "cola", 2)
	require.NoError(t, err)

	analysis := analytics.NewService(repo, inv, clock.Fixed(today), analytics.NewCache(client, time.Minute))
	return fixture{
		inv:      inv,
		analysis: analysis,
		reports:  report.NewService(inv, analysis, report.Config{}),
		mr:       mr,
		metrics:  jobmetrics.NewMetrics(prometheus.NewRegistry()),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestAnalyticsWarmupFillsCache(t *testing.T) {
	f := newFixture(t)
	job := NewAnalyticsWarmupJob(f.analysis, f.logger, f.metrics)

	task, err := NewAnalyticsWarmupTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	for _, days := range DefaultWarmupWindows {
		day := today.Format(time.DateOnly)
		require.True(t, f.mr.Exists("store:analytics:window:"+day+":"+strconv.Itoa(days)+":v1"), days)
		require.True(t, f.mr.Exists("store:analytics:trend:"+day+":"+strconv.Itoa(days)+":v1"), days)
	}
}

func TestAnalyticsWarmupRejectsBadWindow(t *testing.T) {
	f := newFixture(t)
	job := NewAnalyticsWarmupJob(f.analysis, f.logger, f.metrics)
	task, err := NewAnalyticsWarmupTask(7, 0)
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))
}

func TestFollowRewarmsAfterBump(t *testing.T) {
	f := newFixture(t)
	job := NewAnalyticsWarmupJob(f.analysis, f.logger, f.metrics)
	updates := make(chan int64, 1)
	updates <- 2
	close(updates)
	job.Follow(context.Background(), updates)
	require.True(t, f.mr.Exists("store:analytics:window:"+today.Format(time.DateOnly)+":1:v1"))
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	f := newFixture(t)
	job := NewExpiryScanJob(f.inv, f.logger, f.metrics)
	err := job.Handle(context.Background(), asynq.NewTask(TaskInventoryExpiryScan, []byte("{")))
	require.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestExpiryScanUsesSalePrice(t *testing.T) {
	f := newFixture(t)
	job := NewExpiryScanJob(f.inv, f.logger, f.metrics)

	items, err := job.Scan(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []ExpiringItem{
		{ProductID: "milk", Name: "우유", DaysLeft: 1, DiscountRate: 0.5, FinalPrice: 750},
	}, items)

	items, err = job.Scan(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	task, err := NewExpiryScanTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
}

func TestDailyReportRender(t *testing.T) {
	f := newFixture(t)
	job := NewDailyReportJob(f.reports, f.logger, f.metrics)
	ctx := context.Background()

	full, err := job.Render(ctx, nil)
	require.NoError(t, err)
	require.Contains(t, full, "기준일: 2025-10-11")

	part, err := job.Render(ctx, []string{"today"})
	require.NoError(t, err)
	require.Contains(t, part, "₩3,600")

	_, err = job.Render(ctx, []string{"nope"})
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewDailyReportTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
}

func TestDefaultCron(t *testing.T) {
	entries, err := DefaultCron()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	got := map[string]string{}
	for _, e := range entries {
		got[e.Task.Type()] = e.Spec
	}
	require.Equal(t, map[string]string{
		TaskAnalyticsWarmup:     "0 5 * * *",
		TaskInventoryExpiryScan: "0 6 * * *",
		TaskReportDaily:         "50 23 * * *",
	}, got)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestJobsHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rec := httptest.NewRecorder()
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Archived: 1}}, logger)
	h.health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, queueHealth{Queue: QueueDefault, Pending: 3, Failed: 1}, body)

	rec = httptest.NewRecorder()
	NewHandler(fakeInspector{err: errors.New("down")}, logger).health(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
