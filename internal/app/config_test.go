package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gksmfly/convenience-store-system/internal/pricing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.StoreBackend)
	require.Equal(t, 0.3, cfg.StockThreshold)
	require.Equal(t, 3, cfg.ExpiryWarnDays)
	require.Equal(t, 2, cfg.ReorderLeadDays)
	require.Equal(t, 5, cfg.ReorderSafetyStock)
	require.Equal(t, "Asia/Seoul", cfg.Location.String())
	require.Equal(t, pricing.DefaultTiers().String(), cfg.Tiers.String())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DISCOUNT_TIERS", "5:0,1:0.4")
	t.Setenv("STORE_TIMEZONE", "UTC")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, BackendPostgres, cfg.StoreBackend)
	require.Equal(t, "5:0,1:0.4", cfg.Tiers.String())
	require.Equal(t, "UTC", cfg.Location.String())
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"backend":   {"STORE_BACKEND", "sqlite"},
		"threshold": {"STOCK_THRESHOLD", "1.5"},
		"tiers":     {"DISCOUNT_TIERS", "x"},
		"timezone":  {"STORE_TIMEZONE", "Mars/Base"},
		"rate":      {"RATE_LIMIT_PER_MINUTE", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
