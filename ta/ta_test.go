package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func series(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestRsiSaturatesOnMonotonicSeries(t *testing.T) {
	assert.InDelta(t, 100, Rsi(series(30, 100, 1), 14), 1e-9)
	assert.InDelta(t, 0, Rsi(series(30, 100, -1), 14), 1e-9)
}

func TestRsiNeutralOnShortSeries(t *testing.T) {
	assert.Equal(t, 50.0, Rsi(series(10, 100, 1), 14))
	assert.Equal(t, 50.0, Rsi(nil, 14))
}

func TestAtrOfConstantRangeBars(t *testing.T) {
	n := 30
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	for i := 0; i < n; i++ {
		close[i] = 100
		high[i] = 100.5
		low[i] = 99.5
	}
	assert.InDelta(t, 1.0, Atr(high, low, close, 14), 1e-9)
	assert.InDelta(t, 1.0, Natr(high, low, close, 14), 1e-9)
	assert.Equal(t, 0.0, Atr(high[:5], low[:5], close[:5], 14))
}

func TestMomOfLinearSeries(t *testing.T) {
	assert.InDelta(t, 5.0, Mom(series(20, 100, 1), 5), 1e-9)
	assert.Equal(t, 0.0, Mom(series(3, 100, 1), 5))
}

func TestEmaPassesShortSeriesThrough(t *testing.T) {
	short := series(5, 100, 1)
	assert.Equal(t, short, Ema(short, 10))

	long := series(50, 100, 0.5)
	ema := Ema(long, 10)
	assert.Len(t, ema, len(long))
	// an EMA of a rising series trails the close
	assert.Less(t, ema[len(ema)-1], long[len(long)-1])
}
