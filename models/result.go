package models

import "time"

// The Result struct contains the full outcome of one backtest run: summary
// statistics, the ordered equity curve, daily metrics, and the per-trade
// log. The engine defines this schema; output formatting belongs to
// observers and external reporting.
type Result struct {
	RunID          string
	Symbol         string
	Start          time.Time
	End            time.Time
	Bars           int
	TradingDays    int
	Seed           int64
	InitialBalance float64
	FinalBalance   float64

	TotalReturn       float64 // fractional, 0.10 == +10%
	AnnualizedReturn  float64
	MaxDrawdown       float64 // fractional, negative
	Sharpe            float64
	Sortino           float64
	WinRate           float64
	ProfitFactor      float64
	LongestWinStreak  int
	LongestLossStreak int
	MonthlyReturns    map[string]float64 // "2006-01" -> fractional return

	Trades      []TradeRecord
	EquityCurve []EquityPoint
	Daily       []DailyMetric
	Warnings    WarningCounts
}
