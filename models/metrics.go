package models

import "time"

// TradeRecord is one row of the per-trade log: a position from open to
// close. Prices are per-unit net premiums.
type TradeRecord struct {
	PositionID  string    `csv:"position_id"`
	Description string    `csv:"description"`
	OpenedAt    time.Time `csv:"opened_at"`
	ClosedAt    time.Time `csv:"closed_at"`
	Quantity    int       `csv:"quantity"`
	EntryPrice  float64   `csv:"entry_price"`
	ExitPrice   float64   `csv:"exit_price"`
	RealizedPnL float64   `csv:"realized_pnl"`
	Commissions float64   `csv:"commissions"`
	CloseReason string    `csv:"close_reason"`
	Note        string    `csv:"note"`
}

// EquityPoint is one sample of the equity curve, appended every bar.
type EquityPoint struct {
	Timestamp int64   `csv:"timestamp"`
	Equity    float64 `csv:"equity"`
}

// Time returns the sample timestamp as UTC.
func (p EquityPoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp).UTC()
}

// DailyMetric is the end-of-day snapshot, appended once per simulated
// trading day.
type DailyMetric struct {
	Date        string  `csv:"date"`
	Trades      int     `csv:"trades"`
	RealizedPnL float64 `csv:"realized_pnl"`
	Drawdown    float64 `csv:"drawdown"`
	Equity      float64 `csv:"equity"`
}

// WarningCounts tallies the recoverable incidents of a run so reporting can
// audit how clean the data and signal stream were.
type WarningCounts struct {
	InvalidSignals int
	RejectedOrders int
	SignalErrors   int
	DataGaps       int
}
