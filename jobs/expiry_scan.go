package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gksmfly/convenience-store-system/internal/inventory"
	jobmetrics "github.com/gksmfly/convenience-store-system/internal/jobs"
)

// ExpiryScanJob logs every product inside the expiry window with the price it sells at today.
type ExpiryScanJob struct {
	Inventory *inventory.Service
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(inv *inventory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpiryScanJob {
	return &ExpiryScanJob{Inventory: inv, Logger: logger, Metrics: metrics}
}

// ExpiringItem is one product flagged by the scan.
type ExpiringItem struct {
	ProductID    string
	Name         string
	DaysLeft     int
	DiscountRate float64
	FinalPrice   int64
}

// Handle executes inventory:expiry_scan tasks.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Inventory == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	tracker := j.metrics().Track(TaskInventoryExpiryScan)
	logger := j.logger()

	items, err := j.Scan(ctx, payload.WarnDays)
	if err != nil {
		logger.Error("expiry scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	for _, item := range items {
		logger.Warn("product nearing expiry",
			slog.String("product_id", item.ProductID),
			slog.String("name", item.Name),
			slog.Int("days_left", item.DaysLeft),
			slog.Float64("discount_rate", item.DiscountRate),
			slog.Int64("final_price", item.FinalPrice),
		)
	}
	j.metrics().SetExpiring(len(items))
	logger.Info("completed expiry scan", slog.Int("expiring", len(items)),
		slog.String("as_of", j.Inventory.Clock().Today().Format(time.DateOnly)))
	return tracker.End(nil)
}

// Scan returns the products within warnDays, most urgent first as the catalog orders them.
func (j *ExpiryScanJob) Scan(ctx context.Context, warnDays int) ([]ExpiringItem, error) {
	if warnDays <= 0 {
		warnDays = j.Inventory.Config().ExpiryWarnDays
	}
	products, err := j.Inventory.AllProducts(ctx)
	if err != nil {
		return nil, err
	}
	expiring := j.Inventory.ExpiringSoon(products, warnDays)
	items := make([]ExpiringItem, 0, len(expiring))
	for _, p := range expiring {
		rate, price := j.Inventory.CurrentPrice(p)
		items = append(items, ExpiringItem{
			ProductID:    p.ID,
			Name:         p.Name,
			DaysLeft:     *j.Inventory.DaysLeft(p),
			DiscountRate: rate,
			FinalPrice:   price,
		})
	}
	return items, nil
}

func (j *ExpiryScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInventoryExpiryScan))
	}
	return slog.Default().With(slog.String("job", TaskInventoryExpiryScan))
}

func (j *ExpiryScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
