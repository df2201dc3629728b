package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("LEDGER_AUTH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEDGER_PORT", "")
	t.Setenv("LEDGER_TAX_RATE_PERCENT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 480, cfg.AccessTokenTTLMinutes)
	assert.Equal(t, 300*time.Second, cfg.StudyCacheTTL)
	assert.True(t, cfg.TaxRatePercent.IsZero())
	assert.False(t, cfg.Production())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LEDGER_PORT", "9090")
	t.Setenv("LEDGER_TAX_RATE_PERCENT", "11.5")
	t.Setenv("LEDGER_STUDY_CACHE_TTL_SECONDS", "60")
	t.Setenv("LEDGER_ENV", "Production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.True(t, cfg.TaxRatePercent.Equal(decimal.RequireFromString("11.5")))
	assert.Equal(t, time.Minute, cfg.StudyCacheTTL)
	assert.True(t, cfg.Production())
}

func TestLoadRejectsBadTaxRate(t *testing.T) {
	for _, bad := range []string{"abc", "-1", "101"} {
		t.Run(bad, func(t *testing.T) {
			t.Setenv("LEDGER_TAX_RATE_PERCENT", bad)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
