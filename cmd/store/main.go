package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gksmfly/convenience-store-system/cmd/store/cli"
	analytichttp "github.com/gksmfly/convenience-store-system/internal/analytics/http"
	"github.com/gksmfly/convenience-store-system/internal/app"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	"github.com/gksmfly/convenience-store-system/internal/pricing"
	"github.com/gksmfly/convenience-store-system/internal/report"
	"github.com/gksmfly/convenience-store-system/jobs"
)

const usage = `usage: store [serve | report [flags] | jobs trigger <name> | jobs stats | jobs scheduled]`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "report":
		os.Exit(runReport(ctx, cfg, logger, args))
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args, os.Stdout, os.Stderr))
	default:
		_, _ = fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	var jobHandler *jobs.Handler
	if c.Redis != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ProductHandler:   inventory.NewHandler(logger, c.Inventory),
		DiscountHandler:  pricing.NewHandler(logger, c.Pricing, c.Inventory, c.PINs),
		AnalyticsHandler: analytichttp.NewHandler(logger, c.Analytics),
		ReportHandler:    report.NewHandler(logger, c.Reports),
		JobHandler:       jobHandler,
		Metrics:          c.Metrics,
		HealthChecks:     c.Health,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("backend", cfg.StoreBackend),
			slog.String("tiers", cfg.Tiers.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func runReport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	opts := cli.ReportOptions{Stdout: os.Stdout, Stderr: os.Stderr}
	fs.StringVar(&opts.Section, "section", "", "render one section (stock-alerts, expiring-soon, reorder, ...)")
	fs.StringVar(&opts.Analytics, "analytics", "", "print an analytics dataset as JSON (sales, top, abc, ...)")
	fs.IntVar(&opts.Days, "days", 7, "analytics window in days")
	fs.IntVar(&opts.N, "n", 5, "number of ranked entries")
	fs.BoolVar(&opts.JSONOutput, "json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	c, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		return 1
	}
	defer c.Close()
	return cli.NewReportCLI(c.Reports, c.Analytics).Run(ctx, opts)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, usage)
		return 2
	}
	jc := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jc.Close() }()

	var out any
	var err error
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			_, _ = fmt.Fprintln(stderr, "jobs trigger: job name required")
			return 2
		}
		out, err = jc.Trigger(ctx, args[1])
	case "stats":
		out, err = jc.InspectQueue(ctx)
	case "scheduled":
		out, err = jc.ListScheduled(ctx, 20)
	default:
		_, _ = fmt.Fprintln(stderr, usage)
		return 2
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs %s: %v\n", args[0], err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs %s: encode json: %v\n", args[0], err)
		return 1
	}
	return 0
}
