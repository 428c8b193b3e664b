package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftroch1/0dte-sub000/models"
)

var dayStart = time.Date(2025, 8, 21, 14, 30, 0, 0, time.UTC)

// driftBars alternates an up move and a down move so momentum trends while
// RSI stays off its extremes.
func driftBars(n int, start, up, down float64) []*models.Bar {
	bars := make([]*models.Bar, n)
	price := start
	for i := 0; i < n; i++ {
		if i > 0 {
			if i%2 == 1 {
				price += up
			} else {
				price -= down
			}
		}
		bars[i] = &models.Bar{
			Timestamp: dayStart.Add(time.Duration(i) * 5 * time.Minute).UnixMilli(),
			Open:      price,
			High:      price + 0.3,
			Low:       price - 0.3,
			Close:     price,
			VWAP:      price,
			Volume:    1000,
		}
	}
	return bars
}

func sigChain(price float64) *models.Chain {
	expiry := time.Date(2025, 8, 21, 20, 0, 0, 0, time.UTC).UnixMilli()
	contracts := []models.OptionContract{
		{Symbol: "C450", Strike: 450, Expiry: expiry, Type: models.Call, Theo: 1.5, Volatility: 0.25},
		{Symbol: "C455", Strike: 455, Expiry: expiry, Type: models.Call, Theo: 0.6, Volatility: 0.25},
		{Symbol: "P450", Strike: 450, Expiry: expiry, Type: models.Put, Theo: 1.4, Volatility: 0.25},
		{Symbol: "P445", Strike: 445, Expiry: expiry, Type: models.Put, Theo: 0.5, Volatility: 0.25},
	}
	return models.NewChain("SPY", "2025-08-21", price, expiry, 0.25, contracts)
}

func momentumRequest(bars []*models.Bar) Request {
	return Request{
		Bars:    bars,
		Chain:   sigChain(bars[len(bars)-1].Close),
		Session: &Session{Date: "2025-08-21"},
		Equity:  25000,
	}
}

func TestMomentumBuysCallsIntoUpDrift(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	req := momentumRequest(driftBars(40, 450, 0.6, 0.4))

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, models.BuyCall, sig.Action)
	assert.GreaterOrEqual(t, sig.Confidence, 55.0)
	assert.LessOrEqual(t, sig.Confidence, 100.0)
	assert.Equal(t, req.Chain.ATM(models.Call).Strike, sig.Strike)
	assert.Equal(t, req.Chain.Expiry, sig.Expiry)
	assert.Equal(t, 0.05, sig.SizeFraction)
	assert.Equal(t, 0.5, sig.StopLossPct)
	assert.Equal(t, 1.0, sig.TakeProfitPct)
	assert.NotEmpty(t, sig.Note)
}

func TestMomentumBuysPutsIntoDownDrift(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	req := momentumRequest(driftBars(40, 450, -0.6, -0.4))

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, models.BuyPut, sig.Action)
	assert.Equal(t, req.Chain.ATM(models.Put).Strike, sig.Strike)
}

func TestMomentumStaysQuietWhenFlat(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	req := momentumRequest(driftBars(40, 450, 0, 0))

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMomentumNeedsHistory(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	req := momentumRequest(driftBars(10, 450, 0.6, 0.4))

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMomentumRespectsDailyTradeCap(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	req := momentumRequest(driftBars(40, 450, 0.6, 0.4))
	req.Session.TradesToday = DefaultMomentumConfig().MaxTradesPerDay

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMomentumRespectsCooldown(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	bars := driftBars(40, 450, 0.6, 0.4)
	req := momentumRequest(bars)
	req.Session.RecordTrade(bars[len(bars)-1].Time().Add(-10 * time.Minute))

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, sig)

	// outside the cooldown the same tape trades again
	req.Session.LastTrade = bars[len(bars)-1].Time().Add(-31 * time.Minute)
	sig, err = m.Next(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, sig)
}

func TestMomentumSkipsHighVolRegime(t *testing.T) {
	cfg := DefaultMomentumConfig()
	cfg.HighVolATR = 0.0001
	m := NewMomentum(cfg)
	req := momentumRequest(driftBars(40, 450, 0.6, 0.4))

	sig, err := m.Next(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestMomentumReturnsContextError(t *testing.T) {
	m := NewMomentum(DefaultMomentumConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Next(ctx, momentumRequest(driftBars(40, 450, 0.6, 0.4)))
	assert.Error(t, err)
}
