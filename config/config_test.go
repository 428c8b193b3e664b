package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "SPY", cfg.Symbol)
	assert.Equal(t, "5m", cfg.Timeframe)
	assert.Equal(t, 25000.0, cfg.Account.InitialBalance)
	assert.Equal(t, 3, cfg.Account.MaxPositions)
	assert.Equal(t, 0.75, cfg.Exits.CircuitBreakerPct)
	assert.Equal(t, 240, cfg.Exits.MaxHoldMinutes)
	assert.Equal(t, "synthetic", cfg.Data.Source)
	assert.Equal(t, 5432, cfg.Data.Postgres.Port)

	d, err := cfg.Interval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zdte.yaml")
	body := `
symbol: QQQ
timeframe: 1m
start: "2025-06-02"
end: "2025-06-30"
account:
  initial_balance: 50000
  max_positions: 1
exits:
  stop_loss_pct: 0.35
data:
  source: csv
  csv_path: /data/qqq.csv
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "QQQ", cfg.Symbol)
	assert.Equal(t, 50000.0, cfg.Account.InitialBalance)
	assert.Equal(t, 1, cfg.Account.MaxPositions)
	assert.Equal(t, 0.35, cfg.Exits.StopLossPct)
	// untouched keys keep their defaults
	assert.Equal(t, 1.0, cfg.Exits.TakeProfitPct)
	assert.Equal(t, "csv", cfg.Data.Source)

	start, err := cfg.StartTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ZDTE_ACCOUNT_INITIAL_BALANCE", "100000")
	t.Setenv("ZDTE_SYMBOL", "IWM")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "IWM", cfg.Symbol)
	assert.Equal(t, 100000.0, cfg.Account.InitialBalance)
}

func TestExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Account.InitialBalance = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Execution.SpreadFraction = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Timeframe = "whenever"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Data.Source = "csv"
	cfg.Data.CSVPath = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Data.Source = "carrier-pigeon"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Start = "June 2nd"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Chain.CloseMinute = 2000
	assert.Error(t, cfg.Validate())
}
