// Package ta wraps the technical indicators signal sources consume, so
// strategy code never touches slice-length bookkeeping. Point indicators
// return their latest value and degrade to a neutral reading on series too
// short to compute.
package ta

import (
	talib "github.com/markcheno/go-talib"
)

// Rsi returns the latest relative strength index over the series, or the
// neutral 50 when the series cannot cover the period.
func Rsi(close []float64, period int) float64 {
	if period < 1 || len(close) <= period {
		return 50
	}
	v := talib.Rsi(close, period)
	return v[len(v)-1]
}

// Atr returns the latest average true range, 0 on a short series.
func Atr(high, low, close []float64, period int) float64 {
	if period < 1 || len(close) <= period {
		return 0
	}
	v := talib.Atr(high, low, close, period)
	return v[len(v)-1]
}

// Natr is Atr normalized by price, in percent of the close.
func Natr(high, low, close []float64, period int) float64 {
	if period < 1 || len(close) <= period {
		return 0
	}
	v := talib.Natr(high, low, close, period)
	return v[len(v)-1]
}

// Mom returns the latest close-over-close difference across distance bars,
// 0 on a short series.
func Mom(close []float64, distance int) float64 {
	if distance < 1 || len(close) <= distance {
		return 0
	}
	v := talib.Mom(close, distance)
	return v[len(v)-1]
}

// Ema returns the exponential moving average series. Series shorter than
// the length come back unchanged so callers can still index the tail.
func Ema(close []float64, length int) []float64 {
	if length <= 1 || len(close) < length {
		return close
	}
	return talib.Ema(close, length)
}
