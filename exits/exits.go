// Package exits decides when open positions leave the book. Conditions are
// evaluated in strict priority order every tick and the first match wins,
// so a position only ever records one close reason.
package exits

import (
	"time"

	"github.com/raftroch1/0dte-sub000/models"
)

// Config carries the default exit thresholds. Positions may override stop
// loss, take profit, and holding time per trade; zero values fall back to
// these.
type Config struct {
	CircuitBreakerPct  float64 // fraction of risk basis, loss that forces out
	StopLossPct        float64 // fraction of risk basis, 0 disables the default
	TakeProfitPct      float64 // fraction of risk basis, 0 disables the default
	MaxHoldMinutes     int     // 0 disables the default
	MinutesBeforeClose int     // flatten window ahead of the close, 0 disables
}

// Tick is the clock context for one evaluation pass.
type Tick struct {
	Now     time.Time
	Close   time.Time // today's session close
	LastBar bool      // final bar of the session forces the book flat
}

// Machine evaluates exit conditions. It is stateless between ticks; all
// trade state lives on the position.
type Machine struct {
	cfg Config
}

func NewMachine(cfg Config) *Machine {
	if cfg.CircuitBreakerPct <= 0 {
		cfg.CircuitBreakerPct = 0.75
	}
	return &Machine{cfg: cfg}
}

// Evaluate returns the close reason for the position at this tick, or
// ReasonNone to leave it open. Priority: circuit breaker, stop loss, take
// profit, time decay, forced end of day.
func (m *Machine) Evaluate(pos *models.Position, tick Tick) models.CloseReason {
	if pos.Status != models.PositionOpen {
		return models.ReasonNone
	}

	if pos.RiskBasis > 0 {
		if pos.UnrealizedPnL <= -m.cfg.CircuitBreakerPct*pos.RiskBasis {
			return models.ReasonCircuitBreaker
		}
		if sl := m.stopLoss(pos); sl > 0 && pos.UnrealizedPnL <= -sl*pos.RiskBasis {
			return models.ReasonStopLoss
		}
		if tp := m.takeProfit(pos); tp > 0 && pos.UnrealizedPnL >= tp*pos.RiskBasis {
			return models.ReasonTakeProfit
		}
	}

	if m.cfg.MinutesBeforeClose > 0 {
		window := time.Duration(m.cfg.MinutesBeforeClose) * time.Minute
		if tick.Close.Sub(tick.Now) <= window {
			return models.ReasonTimeDecay
		}
	}
	if maxHold := m.maxHold(pos); maxHold > 0 {
		if pos.HoldingTime(tick.Now) >= time.Duration(maxHold)*time.Minute {
			return models.ReasonTimeDecay
		}
	}

	if tick.LastBar || !tick.Now.Before(earliestExpiry(pos)) {
		return models.ReasonEndOfDay
	}
	return models.ReasonNone
}

func (m *Machine) stopLoss(pos *models.Position) float64 {
	if pos.StopLossPct > 0 {
		return pos.StopLossPct
	}
	return m.cfg.StopLossPct
}

func (m *Machine) takeProfit(pos *models.Position) float64 {
	if pos.TakeProfitPct > 0 {
		return pos.TakeProfitPct
	}
	return m.cfg.TakeProfitPct
}

func (m *Machine) maxHold(pos *models.Position) int {
	if pos.MaxHoldMinutes > 0 {
		return pos.MaxHoldMinutes
	}
	return m.cfg.MaxHoldMinutes
}

func earliestExpiry(pos *models.Position) time.Time {
	var earliest int64
	for _, leg := range pos.Legs {
		if earliest == 0 || leg.Expiry < earliest {
			earliest = leg.Expiry
		}
	}
	if earliest == 0 {
		return time.Time{}
	}
	return time.UnixMilli(earliest).UTC()
}
