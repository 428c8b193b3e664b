// Package config owns every externally tunable number in the engine:
// account limits, execution costs, exit thresholds, strategy tuning, and
// data-source credentials. Values come from a YAML file overridden by
// ZDTE_-prefixed environment variables; nothing here is hard-coded to one
// underlying.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Account sizes the simulated account.
type Account struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	MaxPositions   int     `mapstructure:"max_positions"`
	Multiplier     float64 `mapstructure:"multiplier"`
}

// Pricing sets the valuation inputs shared by the chain and the marks.
type Pricing struct {
	RiskFreeRate  float64 `mapstructure:"risk_free_rate"`
	DividendYield float64 `mapstructure:"dividend_yield"`
	Volatility    float64 `mapstructure:"volatility"` // 0 derives from data
	VolWindow     int     `mapstructure:"vol_window"` // bars of realized vol
}

// Chain shapes the synthetic option chain.
type Chain struct {
	SpreadPct   float64 `mapstructure:"spread_pct"` // half-spread around theo
	SpanPct     float64 `mapstructure:"span_pct"`   // ladder reach, e.g. 0.20
	CloseMinute int     `mapstructure:"close_minute"`
}

// Execution prices the fills.
type Execution struct {
	SpreadFraction        float64 `mapstructure:"spread_fraction"`
	QuoteSpreadFraction   float64 `mapstructure:"quote_spread_fraction"`
	SlippageFraction      float64 `mapstructure:"slippage_fraction"`
	CommissionPerContract float64 `mapstructure:"commission_per_contract"`
}

// Exits carries the default exit thresholds.
type Exits struct {
	CircuitBreakerPct  float64 `mapstructure:"circuit_breaker_pct"`
	StopLossPct        float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct      float64 `mapstructure:"take_profit_pct"`
	MaxHoldMinutes     int     `mapstructure:"max_hold_minutes"`
	MinutesBeforeClose int     `mapstructure:"minutes_before_close"`
}

// Momentum tunes the built-in momentum signal source.
type Momentum struct {
	Lookback        int     `mapstructure:"lookback"`
	RSIPeriod       int     `mapstructure:"rsi_period"`
	RSIOverbought   float64 `mapstructure:"rsi_overbought"`
	RSIOversold     float64 `mapstructure:"rsi_oversold"`
	ATRPeriod       int     `mapstructure:"atr_period"`
	HighVolATR      float64 `mapstructure:"high_vol_atr"`
	MaxTradesPerDay int     `mapstructure:"max_trades_per_day"`
	CooldownMinutes int     `mapstructure:"cooldown_minutes"`
	SizeFraction    float64 `mapstructure:"size_fraction"`
	StopLossPct     float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct   float64 `mapstructure:"take_profit_pct"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
}

// Postgres locates the candle store when data.source is "postgres".
type Postgres struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Table    string `mapstructure:"table"`
}

// Data selects and locates the bar source.
type Data struct {
	Source   string   `mapstructure:"source"` // csv, postgres, or synthetic
	CSVPath  string   `mapstructure:"csv_path"`
	VolCSV   string   `mapstructure:"vol_csv"`
	Postgres Postgres `mapstructure:"postgres"`
}

// Influx points the optional metrics observer at an InfluxDB endpoint.
type Influx struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// Config is the full runnable configuration for one backtest.
type Config struct {
	Symbol    string `mapstructure:"symbol"`
	Timeframe string `mapstructure:"timeframe"` // bar interval, e.g. "5m"
	Start     string `mapstructure:"start"`     // YYYY-MM-DD inclusive
	End       string `mapstructure:"end"`
	Seed      int64  `mapstructure:"seed"`
	LogLevel  string `mapstructure:"log_level"`

	Account   Account   `mapstructure:"account"`
	Pricing   Pricing   `mapstructure:"pricing"`
	Chain     Chain     `mapstructure:"chain"`
	Execution Execution `mapstructure:"execution"`
	Exits     Exits     `mapstructure:"exits"`
	Momentum  Momentum  `mapstructure:"momentum"`
	Data      Data      `mapstructure:"data"`
	Journal   string    `mapstructure:"journal"` // sqlite path, "" disables
	Influx    Influx    `mapstructure:"influx"`
	EquityCSV string    `mapstructure:"equity_csv"` // "" disables
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "SPY")
	v.SetDefault("timeframe", "5m")
	v.SetDefault("seed", 42)
	v.SetDefault("log_level", "info")

	v.SetDefault("account.initial_balance", 25000.0)
	v.SetDefault("account.max_positions", 3)
	v.SetDefault("account.multiplier", 100.0)

	v.SetDefault("pricing.risk_free_rate", 0.044)
	v.SetDefault("pricing.dividend_yield", 0.013)
	v.SetDefault("pricing.volatility", 0.0)
	v.SetDefault("pricing.vol_window", 390)

	v.SetDefault("chain.spread_pct", 0.05)
	v.SetDefault("chain.span_pct", 0.20)
	v.SetDefault("chain.close_minute", 1200)

	v.SetDefault("execution.spread_fraction", 0.5)
	v.SetDefault("execution.quote_spread_fraction", 0.05)
	v.SetDefault("execution.slippage_fraction", 0.005)
	v.SetDefault("execution.commission_per_contract", 0.65)

	v.SetDefault("exits.circuit_breaker_pct", 0.75)
	v.SetDefault("exits.stop_loss_pct", 0.5)
	v.SetDefault("exits.take_profit_pct", 1.0)
	v.SetDefault("exits.max_hold_minutes", 240)
	v.SetDefault("exits.minutes_before_close", 30)

	v.SetDefault("momentum.lookback", 10)
	v.SetDefault("momentum.rsi_period", 14)
	v.SetDefault("momentum.rsi_overbought", 70.0)
	v.SetDefault("momentum.rsi_oversold", 30.0)
	v.SetDefault("momentum.atr_period", 14)
	v.SetDefault("momentum.high_vol_atr", 0.01)
	v.SetDefault("momentum.max_trades_per_day", 5)
	v.SetDefault("momentum.cooldown_minutes", 30)
	v.SetDefault("momentum.size_fraction", 0.05)
	v.SetDefault("momentum.stop_loss_pct", 0.5)
	v.SetDefault("momentum.take_profit_pct", 1.0)
	v.SetDefault("momentum.min_confidence", 55.0)

	v.SetDefault("data.source", "synthetic")
	v.SetDefault("data.postgres.port", 5432)
	v.SetDefault("data.postgres.sslmode", "disable")
	v.SetDefault("data.postgres.table", "candles")
}

// Load reads the configuration. An empty path looks for zdte.yaml in the
// working directory and tolerates its absence; an explicit path must
// exist. Environment variables prefixed ZDTE_ override file values, with
// dots replaced by underscores (ZDTE_ACCOUNT_INITIAL_BALANCE).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ZDTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("zdte")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Interval parses the timeframe.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeframe)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", c.Timeframe)
	}
	return d, nil
}

// StartTime returns the inclusive start date at midnight UTC, zero when
// unset.
func (c *Config) StartTime() (time.Time, error) {
	return parseDate(c.Start)
}

// EndTime returns the inclusive end date at midnight UTC, zero when unset.
func (c *Config) EndTime() (time.Time, error) {
	return parseDate(c.End)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Validate rejects configurations the engine cannot run.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol is required")
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if _, err := c.EndTime(); err != nil {
		return err
	}
	if c.Account.InitialBalance <= 0 {
		return errors.New("account.initial_balance must be positive")
	}
	if c.Account.MaxPositions < 0 {
		return errors.New("account.max_positions cannot be negative")
	}
	if c.Execution.SpreadFraction < 0 || c.Execution.SpreadFraction > 1 {
		return errors.New("execution.spread_fraction must be in [0, 1]")
	}
	if c.Execution.SlippageFraction < 0 {
		return errors.New("execution.slippage_fraction cannot be negative")
	}
	if c.Execution.CommissionPerContract < 0 {
		return errors.New("execution.commission_per_contract cannot be negative")
	}
	if c.Exits.CircuitBreakerPct <= 0 || c.Exits.CircuitBreakerPct > 1 {
		return errors.New("exits.circuit_breaker_pct must be in (0, 1]")
	}
	if c.Chain.SpanPct <= 0 || c.Chain.SpanPct > 1 {
		return errors.New("chain.span_pct must be in (0, 1]")
	}
	if c.Chain.CloseMinute <= 0 || c.Chain.CloseMinute >= 1440 {
		return errors.New("chain.close_minute must fall inside the day")
	}
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVPath == "" {
			return errors.New("data.csv_path is required for the csv source")
		}
	case "postgres":
		if c.Data.Postgres.Host == "" {
			return errors.New("data.postgres.host is required for the postgres source")
		}
	case "synthetic":
	default:
		return fmt.Errorf("unknown data.source %q", c.Data.Source)
	}
	return nil
}
