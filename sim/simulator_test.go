package sim

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftroch1/0dte-sub000/models"
)

var now = time.Date(2025, 8, 21, 14, 30, 0, 0, time.UTC)

func testChain() *models.Chain {
	expiry := time.Date(2025, 8, 21, 20, 0, 0, 0, time.UTC).UnixMilli()
	contracts := []models.OptionContract{
		{Symbol: "C450", Strike: 450, Expiry: expiry, Type: models.Call, Theo: 1.10, Bid: 1.00, Ask: 1.20},
		{Symbol: "C455", Strike: 455, Expiry: expiry, Type: models.Call, Theo: 0.50, Bid: 0.40, Ask: 0.60},
		{Symbol: "P450", Strike: 450, Expiry: expiry, Type: models.Put, Theo: 1.00, Bid: 0.90, Ask: 1.10},
		{Symbol: "P445", Strike: 445, Expiry: expiry, Type: models.Put, Theo: 0.40, Bid: 0.30, Ask: 0.50},
	}
	return models.NewChain("SPY", "2025-08-21", 450.25, expiry, 0.25, contracts)
}

func deterministic(spreadFrac float64) *Simulator {
	return NewSimulator(Config{
		SpreadFraction:        spreadFrac,
		SlippageFraction:      0,
		CommissionPerContract: 0.65,
		Multiplier:            100,
	}, rand.New(rand.NewSource(7)))
}

func TestFillAsymmetricAroundMid(t *testing.T) {
	s := deterministic(0.5)
	ch := testChain()

	buy, err := s.Execute(models.Simple("C450", models.Buy, 1), ch, now, 1e6)
	require.NoError(t, err)
	// mid 1.10, half spread 0.10, pay half of it
	assert.InDelta(t, 1.15, buy.Legs[0].Price, 1e-9)
	assert.InDelta(t, 1.15, buy.NetPremium, 1e-9)

	sell, err := s.Execute(models.Simple("C450", models.Sell, 1), ch, now, 1e6)
	require.NoError(t, err)
	assert.InDelta(t, 1.05, sell.Legs[0].Price, 1e-9)
	assert.InDelta(t, -1.05, sell.NetPremium, 1e-9)
}

func TestSlippageBoundedAndReproducible(t *testing.T) {
	cfg := Config{SpreadFraction: 0.5, SlippageFraction: 0.02, CommissionPerContract: 0.65, Multiplier: 100}
	a := NewSimulator(cfg, rand.New(rand.NewSource(42)))
	b := NewSimulator(cfg, rand.New(rand.NewSource(42)))
	ch := testChain()

	for i := 0; i < 10; i++ {
		fa, err := a.Execute(models.Simple("C450", models.Buy, 1), ch, now, 1e6)
		require.NoError(t, err)
		fb, err := b.Execute(models.Simple("C450", models.Buy, 1), ch, now, 1e6)
		require.NoError(t, err)

		// identical seeds replay identical fills
		assert.Equal(t, fa.Legs[0].Price, fb.Legs[0].Price)
		// adverse and bounded: within [base, base*(1+max)] before rounding
		assert.GreaterOrEqual(t, fa.Legs[0].Price, 1.15-0.005)
		assert.LessOrEqual(t, fa.Legs[0].Price, 1.15*1.02+0.005)
		assert.GreaterOrEqual(t, fa.Slippage, 0.0)
	}
}

func TestCommissionPerContract(t *testing.T) {
	s := deterministic(0)
	ch := testChain()

	fill, err := s.Execute(models.Simple("C450", models.Buy, 3), ch, now, 1e6)
	require.NoError(t, err)
	assert.InDelta(t, 3*0.65, fill.Commission, 1e-9)

	vertical, err := BuildOrder(ch, VerticalSpec(models.Call, 450, 455), 2, now)
	require.NoError(t, err)
	vfill, err := s.Execute(vertical, ch, now, 1e6)
	require.NoError(t, err)
	// two legs, two units: 2 * 2 * 0.65
	assert.InDelta(t, 2.6, vfill.Commission, 1e-9)
}

func TestRejectInsufficientFunds(t *testing.T) {
	s := deterministic(0.5)
	ch := testChain()

	// needs 1.15*100 + 0.65 = 115.65
	_, err := s.Execute(models.Simple("C450", models.Buy, 1), ch, now, 115.0)
	require.Error(t, err)
	var rej *OrderRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Contains(t, rej.Reason, "insufficient funds")
	assert.Equal(t, now, rej.Timestamp)

	fill, err := s.Execute(models.Simple("C450", models.Buy, 1), ch, now, 116.0)
	require.NoError(t, err)
	assert.Equal(t, 1, fill.Quantity)
}

func TestRejectMissingContract(t *testing.T) {
	s := deterministic(0.5)
	_, err := s.Execute(models.Simple("C999", models.Buy, 1), testChain(), now, 1e6)
	var rej *OrderRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "missing contract", rej.Reason)
	assert.Equal(t, "C999", rej.Symbol)
}

func TestCompositeFillsAtomically(t *testing.T) {
	s := deterministic(0.5)
	ch := testChain()

	order, err := BuildOrder(ch, VerticalSpec(models.Call, 450, 455), 1, now)
	require.NoError(t, err)
	require.Len(t, order.Legs, 2)

	// long 450 at 1.15, short 455 at 0.45: net debit 0.70, capital 70 + 1.30
	fill, err := s.Execute(order, ch, now, 1e6)
	require.NoError(t, err)
	assert.InDelta(t, 0.70, fill.NetPremium, 1e-9)
	require.Len(t, fill.Legs, 2)
	assert.Equal(t, models.Buy, fill.Legs[0].Side)
	assert.Equal(t, models.Sell, fill.Legs[1].Side)

	// one leg unaffordable rejects the whole composite
	_, err = s.Execute(order, ch, now, 50.0)
	var rej *OrderRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Contains(t, rej.Reason, "insufficient funds")
}

func TestCompositeRejectsWhenAnyLegMissing(t *testing.T) {
	s := deterministic(0.5)
	ch := testChain()
	order := models.Order{
		Legs: []models.OrderLeg{
			{Symbol: "C450", Side: models.Buy, Ratio: 1},
			{Symbol: "C460", Side: models.Sell, Ratio: 1}, // not in the chain
		},
		Quantity: 1,
	}
	_, err := s.Execute(order, ch, now, 1e6)
	var rej *OrderRejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "missing contract", rej.Reason)
	assert.Equal(t, "C460", rej.Symbol)
}

func TestCloseFillAgainstCurrentTheo(t *testing.T) {
	s := NewSimulator(Config{
		SpreadFraction:        0.5,
		QuoteSpreadFraction:   0.10,
		CommissionPerContract: 0.65,
		Multiplier:            100,
	}, rand.New(rand.NewSource(7)))

	pos := &models.Position{
		Quantity: 2,
		Legs: []models.PositionLeg{
			{Symbol: "C450", Strike: 450, Type: models.Call, Quantity: 1, CurrentTheo: 2.00},
		},
	}
	fill := s.CloseFill(pos, 452, now, false)
	// selling: theo 2.00, half spread 0.20, cross half of it -> 1.90
	require.Len(t, fill.Legs, 1)
	assert.Equal(t, models.Sell, fill.Legs[0].Side)
	assert.InDelta(t, 1.90, fill.Legs[0].Price, 1e-9)
	assert.InDelta(t, 1.90, fill.NetPremium, 1e-9)
	assert.InDelta(t, 2*0.65, fill.Commission, 1e-9)
}

func TestCloseFillShortLegBuysBack(t *testing.T) {
	s := NewSimulator(Config{
		SpreadFraction:      0.5,
		QuoteSpreadFraction: 0.10,
		Multiplier:          100,
	}, rand.New(rand.NewSource(7)))

	pos := &models.Position{
		Quantity: 1,
		Legs: []models.PositionLeg{
			{Symbol: "C450", Strike: 450, Type: models.Call, Quantity: 1, CurrentTheo: 2.00},
			{Symbol: "C455", Strike: 455, Type: models.Call, Quantity: -1, CurrentTheo: 0.80},
		},
	}
	fill := s.CloseFill(pos, 452, now, false)
	require.Len(t, fill.Legs, 2)
	assert.Equal(t, models.Sell, fill.Legs[0].Side)
	assert.Equal(t, models.Buy, fill.Legs[1].Side)
	assert.InDelta(t, 1.90, fill.Legs[0].Price, 1e-9)
	assert.InDelta(t, 0.84, fill.Legs[1].Price, 1e-9)
	// structure value: 1.90 - 0.84
	assert.InDelta(t, 1.06, fill.NetPremium, 1e-9)
}

func TestCloseFillSettlesAtIntrinsic(t *testing.T) {
	s := deterministic(0.5)
	pos := &models.Position{
		Quantity: 1,
		Legs: []models.PositionLeg{
			{Symbol: "C450", Strike: 450, Type: models.Call, Quantity: 1, CurrentTheo: 0.90},
			{Symbol: "P450", Strike: 450, Type: models.Put, Quantity: 1, CurrentTheo: 0.70},
		},
	}
	fill := s.CloseFill(pos, 453.25, now, true)
	assert.Equal(t, 3.25, fill.Legs[0].Price)
	assert.Equal(t, 0.0, fill.Legs[1].Price)
	assert.InDelta(t, 3.25, fill.NetPremium, 1e-9)
	assert.Zero(t, fill.Commission)
}

func TestBuildOrderResolvesNearestStrikes(t *testing.T) {
	ch := testChain()
	order, err := BuildOrder(ch, StraddleSpec(451), 1, now)
	require.NoError(t, err)
	require.Len(t, order.Legs, 2)
	assert.Equal(t, "C450", order.Legs[0].Symbol)
	assert.Equal(t, "P450", order.Legs[1].Symbol)
	assert.NotEmpty(t, order.ID)
}
