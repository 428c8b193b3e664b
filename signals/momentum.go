package signals

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/ta"
	"github.com/raftroch1/0dte-sub000/utils"
)

// MomentumConfig tunes the built-in momentum source. Every threshold here
// is externally owned configuration; nothing is baked to one underlying.
type MomentumConfig struct {
	Lookback        int     // momentum distance in bars
	RSIPeriod       int
	RSIOverbought   float64 // calls are not chased above this
	RSIOversold     float64 // puts are not chased below this
	ATRPeriod       int
	HighVolATR      float64 // skip entries when ATR/price exceeds this
	MaxTradesPerDay int
	CooldownMinutes int
	SizeFraction    float64
	StopLossPct     float64
	TakeProfitPct   float64
	MinConfidence   float64
}

// DefaultMomentumConfig returns the baseline tuning.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Lookback:        10,
		RSIPeriod:       14,
		RSIOverbought:   70,
		RSIOversold:     30,
		ATRPeriod:       14,
		HighVolATR:      0.01,
		MaxTradesPerDay: 5,
		CooldownMinutes: 30,
		SizeFraction:    0.05,
		StopLossPct:     0.5,
		TakeProfitPct:   1.0,
		MinConfidence:   55,
	}
}

// Momentum buys at-the-money calls into upward drift and puts into
// downward drift, filtered by RSI exhaustion and an ATR volatility regime.
type Momentum struct {
	cfg MomentumConfig
}

func NewMomentum(cfg MomentumConfig) *Momentum {
	def := DefaultMomentumConfig()
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = def.RSIPeriod
	}
	if cfg.RSIOverbought <= 0 {
		cfg.RSIOverbought = def.RSIOverbought
	}
	if cfg.RSIOversold <= 0 {
		cfg.RSIOversold = def.RSIOversold
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.HighVolATR <= 0 {
		cfg.HighVolATR = def.HighVolATR
	}
	if cfg.SizeFraction <= 0 {
		cfg.SizeFraction = def.SizeFraction
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	return &Momentum{cfg: cfg}
}

func (m *Momentum) Next(ctx context.Context, req Request) (*models.Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	need := m.cfg.Lookback
	if m.cfg.RSIPeriod > need {
		need = m.cfg.RSIPeriod
	}
	if m.cfg.ATRPeriod > need {
		need = m.cfg.ATRPeriod
	}
	if req.Chain == nil || len(req.Bars) <= need {
		return nil, nil
	}
	if req.Session != nil {
		if m.cfg.MaxTradesPerDay > 0 && req.Session.TradesToday >= m.cfg.MaxTradesPerDay {
			return nil, nil
		}
		if m.cfg.CooldownMinutes > 0 && !req.Session.LastTrade.IsZero() {
			cooldown := time.Duration(m.cfg.CooldownMinutes) * time.Minute
			if req.Bar().Time().Sub(req.Session.LastTrade) < cooldown {
				return nil, nil
			}
		}
	}

	ohlcv := utils.GetOHLCV(req.Bars)
	price := ohlcv.Close[len(ohlcv.Close)-1]

	atr := ta.Atr(ohlcv.High, ohlcv.Low, ohlcv.Close, m.cfg.ATRPeriod)
	if atr/price > m.cfg.HighVolATR {
		return nil, nil
	}

	mom := ta.Mom(ohlcv.Close, m.cfg.Lookback)
	rsi := ta.Rsi(ohlcv.Close, m.cfg.RSIPeriod)
	chg := mom / price
	conf := confidence(chg)
	if conf < m.cfg.MinConfidence {
		return nil, nil
	}

	var action models.SignalAction
	var side models.OptionType
	switch {
	case chg > 0 && rsi < m.cfg.RSIOverbought:
		action = models.BuyCall
		side = models.Call
	case chg < 0 && rsi > m.cfg.RSIOversold:
		action = models.BuyPut
		side = models.Put
	default:
		return nil, nil
	}

	atm := req.Chain.ATM(side)
	if atm == nil {
		return nil, nil
	}
	return &models.Signal{
		Action:        action,
		Confidence:    conf,
		Strike:        atm.Strike,
		Expiry:        req.Chain.Expiry,
		SizeFraction:  m.cfg.SizeFraction,
		StopLossPct:   m.cfg.StopLossPct,
		TakeProfitPct: m.cfg.TakeProfitPct,
		Note:          fmt.Sprintf("mom %.2f rsi %.0f", mom, rsi),
	}, nil
}

// confidence maps the fractional move over the lookback onto [50, 100]:
// a quarter percent drift saturates the scale.
func confidence(chg float64) float64 {
	return math.Min(50+math.Abs(chg)*2e4, 100)
}
