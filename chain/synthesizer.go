// Package chain synthesizes zero-days-to-expiration option chains: one
// strike ladder per trading day, quoted off the pricing engine with a
// configurable synthetic spread and liquidity profile.
package chain

import (
	"fmt"
	"math"
	"time"

	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/pricing"
	"github.com/raftroch1/0dte-sub000/utils"
)

// Config controls ladder construction and quoting.
type Config struct {
	Underlying       string
	SpanPct          float64 // ladder reach each side of spot
	SpreadFraction   float64 // half-spread as a fraction of theo
	RiskFreeRate     float64
	DividendYield    float64
	CloseMinute      int     // market close, minutes after midnight UTC
	MinTick          float64 // quote increment floor
	BaseOpenInterest float64
}

// Synthesizer builds the daily chain. Safe for sequential reuse across days;
// each call returns a fresh immutable chain.
type Synthesizer struct {
	cfg    Config
	pricer *pricing.Engine
}

func NewSynthesizer(cfg Config, pricer *pricing.Engine) *Synthesizer {
	if cfg.SpanPct == 0 {
		cfg.SpanPct = 0.20
	}
	if cfg.SpreadFraction == 0 {
		cfg.SpreadFraction = 0.05
	}
	if cfg.CloseMinute == 0 {
		cfg.CloseMinute = 20 * 60
	}
	if cfg.MinTick == 0 {
		cfg.MinTick = 0.01
	}
	if cfg.BaseOpenInterest == 0 {
		cfg.BaseOpenInterest = 5000
	}
	if pricer == nil {
		pricer = pricing.NewEngine()
	}
	return &Synthesizer{cfg: cfg, pricer: pricer}
}

// StrikeInterval picks the ladder spacing for a price magnitude the way
// listed option chains do: tighter strikes on cheaper underlyings.
func StrikeInterval(price float64) float64 {
	switch {
	case price < 25:
		return 0.5
	case price < 100:
		return 1
	case price < 500:
		return 5
	case price < 1000:
		return 10
	case price < 5000:
		return 25
	default:
		return 50
	}
}

// Daily synthesizes the chain for the day containing asOf. Every contract
// expires at the configured market close of that same day. The ladder is
// centered on the rounded underlying price and spans SpanPct each side.
func (s *Synthesizer) Daily(asOf time.Time, underlying float64, vol float64) (*models.Chain, error) {
	expiry := utils.CloseOfDay(asOf, s.cfg.CloseMinute)
	if !asOf.Before(expiry) {
		return nil, fmt.Errorf("chain valuation time %v is at or after expiry %v", asOf, expiry)
	}
	tte := pricing.MinutesToYears(expiry.Sub(asOf).Minutes())

	interval := StrikeInterval(underlying)
	atm := utils.RoundToNearest(underlying, interval)
	minStrike := utils.RoundToNearest(atm*(1-s.cfg.SpanPct), interval)
	maxStrike := utils.RoundToNearest(atm*(1+s.cfg.SpanPct), interval)
	strikes := utils.Arange(minStrike, maxStrike, interval)

	contracts := make([]models.OptionContract, 0, len(strikes)*2)
	for _, strike := range strikes {
		for _, typ := range []models.OptionType{models.Call, models.Put} {
			quote, err := s.pricer.Quote(pricing.Inputs{
				Underlying: underlying,
				Strike:     strike,
				TTE:        tte,
				Rate:       s.cfg.RiskFreeRate,
				Dividend:   s.cfg.DividendYield,
				Volatility: vol,
				Type:       typ,
			})
			if err != nil {
				return nil, fmt.Errorf("synthesize %s %g %s: %w", s.cfg.Underlying, strike, typ, err)
			}
			contracts = append(contracts, s.contract(strike, atm, interval, expiry, typ, quote, vol))
		}
	}

	return models.NewChain(
		s.cfg.Underlying,
		utils.DayStart(asOf).Format("2006-01-02"),
		underlying,
		utils.TimeToTimestamp(expiry),
		vol,
		contracts,
	), nil
}

func (s *Synthesizer) contract(strike, atm, interval float64, expiry time.Time, typ models.OptionType, q pricing.Quote, vol float64) models.OptionContract {
	bid := utils.Round(q.Price*(1-s.cfg.SpreadFraction), s.cfg.MinTick)
	ask := utils.Round(q.Price*(1+s.cfg.SpreadFraction), s.cfg.MinTick)
	if bid < 0 {
		bid = 0
	}
	if ask < bid+s.cfg.MinTick {
		ask = bid + s.cfg.MinTick
	}

	// synthetic liquidity decays with distance from the money
	dist := math.Abs(strike-atm) / (10 * interval)
	oi := math.Round(s.cfg.BaseOpenInterest * math.Exp(-dist*dist))

	return models.OptionContract{
		Symbol:       utils.OptionSymbol(s.cfg.Underlying, expiry, typ, strike),
		Underlying:   s.cfg.Underlying,
		Strike:       strike,
		Expiry:       utils.TimeToTimestamp(expiry),
		Type:         typ,
		Theo:         q.Price,
		Bid:          bid,
		Ask:          ask,
		Volatility:   vol,
		Greeks:       q.Greeks,
		OpenInterest: oi,
		Volume:       math.Round(oi * 0.35),
	}
}
