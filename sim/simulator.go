// Package sim turns order requests into fills against a chain snapshot:
// spread crossing, bounded random slippage, commission, and capital checks.
// Multi-leg composites fill atomically or not at all.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/utils"
)

// Config holds the execution cost model.
type Config struct {
	SpreadFraction        float64 // fraction of the half-spread paid on crossing
	QuoteSpreadFraction   float64 // synthetic half-spread around theo when quoting unwinds
	SlippageFraction      float64 // upper bound of the random adverse move
	CommissionPerContract float64
	Multiplier            float64 // shares per contract
}

// OrderRejectedError is the recoverable refusal of an order. The run
// continues; the driver logs it and drops the signal.
type OrderRejectedError struct {
	Reason    string
	Symbol    string
	Timestamp time.Time
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected (%s): %s at %s", e.Reason, e.Symbol, e.Timestamp.Format(time.RFC3339))
}

// Simulator executes orders. The random source is injected so replays are
// reproducible; a nil source gets a fixed seed.
type Simulator struct {
	cfg Config
	rng *rand.Rand
}

func NewSimulator(cfg Config, rng *rand.Rand) *Simulator {
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 100
	}
	if cfg.QuoteSpreadFraction == 0 {
		cfg.QuoteSpreadFraction = 0.05
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Simulator{cfg: cfg, rng: rng}
}

// fillPrice crosses the spread off the mid and applies a random bounded
// adverse move, quantized to the cent.
func (s *Simulator) fillPrice(mid, halfSpread float64, side models.OrderSide) float64 {
	base := mid + side.Sign()*s.cfg.SpreadFraction*halfSpread
	slip := s.rng.Float64() * s.cfg.SlippageFraction
	price := utils.AdjustForSlippage(base, side, slip)
	return math.Max(utils.Round(price, 0.01), 0)
}

// Execute fills every leg of the order against the chain snapshot, or
// rejects the whole order: missing contracts and insufficient capital both
// leave the caller's state untouched. NetPremium is the per-unit structure
// value, positive for debits.
func (s *Simulator) Execute(order models.Order, ch *models.Chain, now time.Time, available float64) (models.Fill, error) {
	if order.Quantity < 1 || len(order.Legs) == 0 {
		return models.Fill{}, &OrderRejectedError{Reason: "invalid order", Timestamp: now}
	}

	legs := make([]models.LegFill, 0, len(order.Legs))
	net := 0.0
	netNoSlip := 0.0
	contracts := 0
	for _, leg := range order.Legs {
		c := ch.Lookup(leg.Symbol)
		if c == nil {
			return models.Fill{}, &OrderRejectedError{Reason: "missing contract", Symbol: leg.Symbol, Timestamp: now}
		}
		ratio := leg.Ratio
		if ratio < 1 {
			ratio = 1
		}
		mid := c.Mid()
		half := c.Spread() / 2
		price := s.fillPrice(mid, half, leg.Side)
		base := math.Max(utils.Round(mid+leg.Side.Sign()*s.cfg.SpreadFraction*half, 0.01), 0)

		legs = append(legs, models.LegFill{Symbol: leg.Symbol, Side: leg.Side, Ratio: ratio, Price: price})
		net += leg.Side.Sign() * price * float64(ratio)
		netNoSlip += leg.Side.Sign() * base * float64(ratio)
		contracts += ratio
	}

	commission := float64(order.Quantity*contracts) * s.cfg.CommissionPerContract
	required := math.Abs(net)*float64(order.Quantity)*s.cfg.Multiplier + commission
	if required > available {
		return models.Fill{}, &OrderRejectedError{
			Reason:    fmt.Sprintf("insufficient funds: need %.2f, have %.2f", required, available),
			Symbol:    legs[0].Symbol,
			Timestamp: now,
		}
	}

	id := order.ID
	if id == "" {
		id = uuid.NewString()
	}
	return models.Fill{
		OrderID:    id,
		Legs:       legs,
		Quantity:   order.Quantity,
		NetPremium: net,
		Slippage:   net - netNoSlip,
		Commission: commission,
		Timestamp:  now,
	}, nil
}

// CloseFill builds the unwind fill for an open position. Quotes derive from
// each leg's current theoretical value as refreshed by the last mark pass.
// When settle is true the legs pay exact intrinsic value against the
// settlement price and no costs apply, the expiration path.
func (s *Simulator) CloseFill(pos *models.Position, settlementPrice float64, now time.Time, settle bool) models.Fill {
	legs := make([]models.LegFill, 0, len(pos.Legs))
	net := 0.0
	contracts := 0
	for _, leg := range pos.Legs {
		unwind := models.Sell
		if leg.Quantity < 0 {
			unwind = models.Buy
		}
		var price float64
		if settle {
			price = intrinsic(leg, settlementPrice)
		} else {
			half := leg.CurrentTheo * s.cfg.QuoteSpreadFraction
			price = s.fillPrice(leg.CurrentTheo, half, unwind)
		}
		legs = append(legs, models.LegFill{Symbol: leg.Symbol, Side: unwind, Ratio: abs(leg.Quantity), Price: price})
		net += price * float64(leg.Quantity)
		contracts += abs(leg.Quantity)
	}

	commission := 0.0
	if !settle {
		commission = float64(pos.Quantity*contracts) * s.cfg.CommissionPerContract
	}
	return models.Fill{
		OrderID:    uuid.NewString(),
		Legs:       legs,
		Quantity:   pos.Quantity,
		NetPremium: net,
		Commission: commission,
		Timestamp:  now,
	}
}

// Multiplier reports the configured shares-per-contract.
func (s *Simulator) Multiplier() float64 {
	return s.cfg.Multiplier
}

func intrinsic(leg models.PositionLeg, underlying float64) float64 {
	var v float64
	switch leg.Type {
	case models.Call:
		v = underlying - leg.Strike
	case models.Put:
		v = leg.Strike - underlying
	}
	return math.Max(v, 0)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
