package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	"github.com/gksmfly/convenience-store-system/internal/report"
)

// ReportOptions defines the flags of the report command.
type ReportOptions struct {
	// Section renders one report section; empty renders the dashboard.
	Section string
	// Analytics prints one analytics dataset as JSON instead of a report.
	Analytics  string
	Days       int
	N          int
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ReportCLI renders reports and analytics to a writer.
type ReportCLI struct {
	reports  *report.Service
	analysis *analytics.Service
}

// NewReportCLI constructs the report command.
func NewReportCLI(reports *report.Service, analysis *analytics.Service) *ReportCLI {
	return &ReportCLI{reports: reports, analysis: analysis}
}

// AnalyticsKinds lists the datasets accepted by ReportOptions.Analytics.
var AnalyticsKinds = []string{"sales", "top", "top-revenue", "today", "rotation", "excess", "dead", "abc", "trend"}

// Run executes the command and returns the process exit code.
func (c *ReportCLI) Run(ctx context.Context, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.N <= 0 {
		opts.N = 5
	}

	if opts.Analytics != "" {
		data, err := c.dataset(ctx, opts)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
			return 1
		}
		return encode(opts, data)
	}

	if opts.Section == "" {
		if opts.JSONOutput {
			sections, err := c.reports.DashboardSections(ctx)
			if err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
				return 1
			}
			return encode(opts, sections)
		}
		text, err := c.reports.Dashboard(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
			return 1
		}
		_, _ = io.WriteString(opts.Stdout, text)
		return 0
	}

	sec, err := c.reports.Section(ctx, opts.Section)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		return encode(opts, sec)
	}
	_, _ = fmt.Fprintln(opts.Stdout, sec.String())
	return 0
}

func (c *ReportCLI) dataset(ctx context.Context, opts ReportOptions) (any, error) {
	switch opts.Analytics {
	case "sales":
		return c.analysis.Window(ctx, opts.Days)
	case "top":
		return c.analysis.TopN(ctx, opts.N, opts.Days)
	case "top-revenue":
		return c.analysis.TopNByRevenue(ctx, opts.N, opts.Days)
	case "today":
		return c.analysis.TodaySales(ctx)
	case "rotation":
		return c.analysis.RotationRates(ctx, opts.Days)
	case "excess":
		return c.analysis.ExcessInventory(ctx)
	case "dead":
		return c.analysis.DeadStock(ctx, opts.Days)
	case "abc":
		return c.analysis.ABC(ctx, opts.Days)
	case "trend":
		return c.analysis.DailyTrend(ctx, opts.Days)
	default:
		return nil, fmt.Errorf("unknown analytics dataset %q (want one of %v)", opts.Analytics, AnalyticsKinds)
	}
}

func encode(opts ReportOptions, v any) int {
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: encode json: %v\n", err)
		return 1
	}
	return 0
}
