package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gksmfly/convenience-store-system/internal/analytics"
	"github.com/gksmfly/convenience-store-system/internal/auth"
	"github.com/gksmfly/convenience-store-system/internal/clock"
	"github.com/gksmfly/convenience-store-system/internal/inventory"
	jobmetrics "github.com/gksmfly/convenience-store-system/internal/jobs"
	"github.com/gksmfly/convenience-store-system/internal/observability"
	"github.com/gksmfly/convenience-store-system/internal/platform/cache"
	"github.com/gksmfly/convenience-store-system/internal/platform/db"
	"github.com/gksmfly/convenience-store-system/internal/pricing"
	"github.com/gksmfly/convenience-store-system/internal/report"
	"github.com/gksmfly/convenience-store-system/internal/shared"
)

// Container holds the wired services shared by the API server, the worker and the CLI.
type Container struct {
	Config     *Config
	Logger     *slog.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Cache      *analytics.Cache
	Pricing    *pricing.Service
	Inventory  *inventory.Service
	Analytics  *analytics.Service
	Reports    *report.Service
	PINs       *auth.PINVerifier
	Metrics    *observability.Metrics
	JobMetrics *jobmetrics.Metrics
	Health     []HealthCheck

	closers []func()
}

// Build connects the configured backends and wires every service. Redis is optional:
// when it cannot be reached analytics run uncached.
func Build(ctx context.Context, cfg *Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	var (
		repo    inventory.RepositoryPort
		auditor inventory.AuditPort
	)
	switch cfg.StoreBackend {
	case BackendPostgres:
		pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		c.closers = append(c.closers, pool.Close)
		pgRepo := inventory.NewRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			c.Close()
			return nil, err
		}
		repo = pgRepo
		auditor = shared.NewAuditLogger(pool)
		c.Health = append(c.Health, HealthCheck{Name: "postgres", Check: db.Check(pool)})
	default:
		mem := inventory.NewMemoryRepository()
		if cfg.StoreSeed {
			if _, err := inventory.Seed(ctx, mem, time.Now()); err != nil {
				return nil, err
			}
			logger.Info("seeded demo catalog", slog.Int("products", len(inventory.DemoProducts())))
		}
		repo = mem
		auditor = shared.SlogAuditor{Logger: logger}
	}

	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("redis unavailable, analytics cache disabled", slog.Any("error", err))
		} else {
			c.Redis = client
			c.Cache = analytics.NewCache(client, cfg.AnalyticsCacheTTL)
			c.closers = append(c.closers, func() {
				if err := client.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			})
			c.Health = append(c.Health, HealthCheck{Name: "redis", Check: cache.Check(client)})
		}
	}

	clk := clock.System{Location: cfg.Location}
	c.Metrics = observability.NewMetrics()
	c.JobMetrics = jobmetrics.NewMetrics(c.Metrics.Registerer())
	c.PINs = auth.NewPINVerifier(cfg.ManagerPINHash)
	c.Pricing = pricing.NewService(cfg.Tiers)
	c.Inventory = inventory.NewService(repo, c.Pricing, clk, auditor, inventory.ServiceConfig{
		StockThreshold: cfg.StockThreshold,
		ExpiryWarnDays: cfg.ExpiryWarnDays,
	}).WithObserver(c.Metrics).WithLogger(logger)
	if c.Cache != nil {
		c.Inventory.WithCache(c.Cache)
	}
	c.Analytics = analytics.NewService(repo, c.Inventory, clk, c.Cache).WithLogger(logger)
	c.Reports = report.NewService(c.Inventory, c.Analytics, report.Config{
		StoreName:      cfg.StoreName,
		StockThreshold: cfg.StockThreshold,
		ExpiryWarnDays: cfg.ExpiryWarnDays,
		LeadDays:       cfg.ReorderLeadDays,
		SafetyStock:    cfg.ReorderSafetyStock,
	})
	if !c.PINs.Enabled() {
		logger.Warn("MANAGER_PIN_HASH not set, discount changes are unauthenticated")
	}
	return c, nil
}

// Close releases backend connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
