package models

import "time"

// Bar is a single OHLCV candle for the underlying. Timestamps are unix
// milliseconds so the same struct round-trips csv files and database rows.
type Bar struct {
	Timestamp int64   `csv:"timestamp" db:"timestamp"`
	Open      float64 `csv:"open" db:"open"`
	High      float64 `csv:"high" db:"high"`
	Low       float64 `csv:"low" db:"low"`
	Close     float64 `csv:"close" db:"close"`
	VWAP      float64 `csv:"vwap" db:"vwap"`
	Volume    float64 `csv:"volume" db:"volume"`
}

// Time returns the bar timestamp as UTC.
func (b *Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// Day returns the UTC calendar date of the bar, used as the daily chain key.
func (b *Bar) Day() string {
	return b.Time().Format("2006-01-02")
}
