package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/gksmfly/convenience-store-system/internal/clock"
)

// DayPoint is the store total for one calendar day.
type DayPoint struct {
	Date    string `json:"date"`
	Qty     int    `json:"qty"`
	Revenue int64  `json:"revenue"`
}

// DailyTrend returns one point per day of the window, oldest first, including empty days.
func (s *Service) DailyTrend(ctx context.Context, days int) ([]DayPoint, error) {
	if err := checkDays(days); err != nil {
		return nil, err
	}
	today := s.clock.Today()
	var loadErr error
	loader := func(ctx context.Context) (any, error) {
		out, err := s.trend(ctx, today, days)
		loadErr = err
		return out, err
	}
	if s.cache == nil {
		return s.trend(ctx, today, days)
	}
	key, err := s.cache.BuildKey(ctx, keyTrend(today, days))
	if err == nil {
		var points []DayPoint
		if err = s.cache.FetchJSON(ctx, key, &points, loader); err == nil {
			return points, nil
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	s.logger.Warn("analytics cache unavailable", slog.Int("days", days), slog.Any("error", err))
	return s.trend(ctx, today, days)
}

func (s *Service) trend(ctx context.Context, today time.Time, days int) ([]DayPoint, error) {
	from, to := clock.Window(today, days)
	sales, err := s.ledger.ByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	points := make([]DayPoint, days)
	for i := range points {
		points[i].Date = from.AddDate(0, 0, i).Format(time.DateOnly)
	}
	for _, sale := range sales {
		i := clock.DaysBetween(from, sale.Timestamp)
		if i < 0 || i >= days {
			continue
		}
		points[i].Qty += sale.Qty
		points[i].Revenue += sale.Amount()
	}
	return points, nil
}
