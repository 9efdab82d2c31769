package report

import (
	"bytes"
	"context"
	"text/template"
	"time"
)

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format(time.DateOnly) },
}).Parse(`=== {{.StoreName}} ===
기준일: {{date .Date}}
{{range .Sections}}
{{.}}
{{end}}`))

type dashboardData struct {
	StoreName string
	Date      time.Time
	Sections  []Section
}

// DashboardSections builds the dashboard sections in their fixed order.
// Reorder suggestions and the short expiry alert list are served separately.
func (s *Service) DashboardSections(ctx context.Context) ([]Section, error) {
	builders := []func(context.Context) (Section, error){
		func(ctx context.Context) (Section, error) { return s.StockAlerts(ctx, 0) },
		func(ctx context.Context) (Section, error) { return s.ExpiringSoon(ctx, 0) },
		s.ManualDiscounts,
		func(ctx context.Context) (Section, error) { return s.BestSellers(ctx, 0, 0) },
		func(ctx context.Context) (Section, error) { return s.TodaySummary(ctx, 0) },
		func(ctx context.Context) (Section, error) { return s.ManagementInsights(ctx, 0, 0) },
		func(ctx context.Context) (Section, error) { return s.OperationsSummary(ctx, 0, 0) },
	}
	out := make([]Section, 0, len(builders))
	for _, build := range builders {
		sec, err := build(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}

// Dashboard renders every dashboard section as one text document.
func (s *Service) Dashboard(ctx context.Context) (string, error) {
	sections, err := s.DashboardSections(ctx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = dashboardTemplate.Execute(&buf, dashboardData{
		StoreName: s.cfg.StoreName,
		Date:      s.inv.Clock().Today(),
		Sections:  sections,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
