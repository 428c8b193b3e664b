package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/marketdata"
	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/signals"
)

// loadBars materializes the configured bar source, clipped to the
// configured date window.
func loadBars(ctx context.Context, cfg *config.Config) ([]*models.Bar, error) {
	start, _ := cfg.StartTime()
	end, _ := cfg.EndTime()
	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}

	switch cfg.Data.Source {
	case "csv":
		bars, err := marketdata.LoadCSV(cfg.Data.CSVPath)
		if err != nil {
			return nil, err
		}
		return clip(bars, start, end), nil

	case "postgres":
		if end.IsZero() {
			end = time.Now().UTC()
		}
		pg := cfg.Data.Postgres
		return marketdata.LoadPostgres(ctx, marketdata.PostgresConfig{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			DBName:   pg.DBName,
			SSLMode:  pg.SSLMode,
			Table:    pg.Table,
		}, cfg.Symbol, cfg.Timeframe, start, end)

	case "synthetic":
		synth := marketdata.SyntheticConfig{
			Start:       start,
			Days:        weekdaysBetween(start, end),
			Interval:    interval,
			CloseMinute: cfg.Chain.CloseMinute,
			Volatility:  cfg.Pricing.Volatility,
			Seed:        cfg.Seed,
		}
		return marketdata.Synthetic(synth), nil
	}
	return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
}

// clip bounds the series to the inclusive date window.
func clip(bars []*models.Bar, start, end time.Time) []*models.Bar {
	if start.IsZero() && end.IsZero() {
		return bars
	}
	out := make([]*models.Bar, 0, len(bars))
	for _, b := range bars {
		t := b.Time()
		if !start.IsZero() && t.Before(start) {
			continue
		}
		if !end.IsZero() && !t.Before(end.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// weekdaysBetween counts sessions in the inclusive window, 0 when the
// window is open-ended so generator defaults apply.
func weekdaysBetween(start, end time.Time) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

func momentumCfg(cfg *config.Config) signals.MomentumConfig {
	m := cfg.Momentum
	return signals.MomentumConfig{
		Lookback:        m.Lookback,
		RSIPeriod:       m.RSIPeriod,
		RSIOverbought:   m.RSIOverbought,
		RSIOversold:     m.RSIOversold,
		ATRPeriod:       m.ATRPeriod,
		HighVolATR:      m.HighVolATR,
		MaxTradesPerDay: m.MaxTradesPerDay,
		CooldownMinutes: m.CooldownMinutes,
		SizeFraction:    m.SizeFraction,
		StopLossPct:     m.StopLossPct,
		TakeProfitPct:   m.TakeProfitPct,
		MinConfidence:   m.MinConfidence,
	}
}

func printResult(res *models.Result) {
	fmt.Printf("\nRun %s  %s  %s -> %s\n", res.RunID, res.Symbol,
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	fmt.Printf("Bars            %d\n", res.Bars)
	fmt.Printf("Trading days    %d\n", res.TradingDays)
	fmt.Printf("Trades          %d\n", len(res.Trades))
	fmt.Printf("Balance         %.2f -> %.2f\n", res.InitialBalance, res.FinalBalance)
	fmt.Printf("Total return    %.4f\n", res.TotalReturn)
	fmt.Printf("Annualized      %.4f\n", res.AnnualizedReturn)
	fmt.Printf("Max drawdown    %.4f\n", res.MaxDrawdown)
	fmt.Printf("Sharpe          %.3f\n", res.Sharpe)
	fmt.Printf("Sortino         %.3f\n", res.Sortino)
	fmt.Printf("Win rate        %.4f\n", res.WinRate)
	fmt.Printf("Profit factor   %.4f\n", res.ProfitFactor)
	fmt.Printf("Streaks         %d wins / %d losses\n", res.LongestWinStreak, res.LongestLossStreak)
	if len(res.MonthlyReturns) > 0 {
		months := make([]string, 0, len(res.MonthlyReturns))
		for m := range res.MonthlyReturns {
			months = append(months, m)
		}
		sort.Strings(months)
		fmt.Println("Monthly returns")
		for _, m := range months {
			fmt.Printf("  %s  %+.4f\n", m, res.MonthlyReturns[m])
		}
	}
}
