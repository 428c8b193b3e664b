package models

import (
	"fmt"
	"strings"
	"time"
)

type PositionStatus int

const (
	PositionOpen PositionStatus = iota
	PositionClosed
)

var positionStatuses = [...]string{
	"open",
	"closed",
}

func (s PositionStatus) String() string {
	if s < PositionOpen || s > PositionClosed {
		return "unknown"
	}
	return positionStatuses[s]
}

// CloseReason records why a position left the book. Exactly one reason is
// ever recorded per position.
type CloseReason int

const (
	ReasonNone CloseReason = iota
	ReasonCircuitBreaker
	ReasonStopLoss
	ReasonTakeProfit
	ReasonTimeDecay
	ReasonEndOfDay
)

var closeReasons = [...]string{
	"",
	"circuit breaker",
	"stop loss",
	"take profit",
	"time decay",
	"end of day",
}

func (r CloseReason) String() string {
	if r < ReasonNone || r > ReasonEndOfDay {
		return "unknown"
	}
	return closeReasons[r]
}

// PositionLeg is one contract held inside a position. Quantity is signed
// per unit of the position: positive legs are long, negative legs short.
// AvgEntryPrice is the weighted-average premium paid (or received) per
// contract and is recomputed when a position is added to.
type PositionLeg struct {
	Symbol        string
	Strike        float64
	Expiry        int64 // unix ms
	Type          OptionType
	Quantity      int // signed, per unit
	AvgEntryPrice float64
	Volatility    float64 // chain volatility at entry
	CurrentTheo   float64 // refreshed on every mark
}

// Position is an open or closed holding of one contract or a multi-leg
// composite, tracked as a single unit. EntryCost is the aggregate net
// premium at open (debit > 0) excluding commissions; RiskBasis is the
// capital considered at risk and anchors stop-loss, take-profit, and
// circuit-breaker thresholds.
type Position struct {
	ID             string
	Underlying     string
	Legs           []PositionLeg
	Quantity       int // unit count, > 0 while open
	EntryCost      float64
	RiskBasis      float64
	MarkValue      float64
	UnrealizedPnL  float64
	RealizedPnL    float64
	Commissions    float64
	Greeks         Greeks
	Status         PositionStatus
	OpenedAt       time.Time
	ClosedAt       time.Time
	CloseReason    CloseReason
	StopLossPct    float64 // fraction of RiskBasis, 0 disables
	TakeProfitPct  float64 // fraction of RiskBasis, 0 disables
	MaxHoldMinutes int     // 0 falls back to the engine default
	Note           string  // free-form tag from the opening signal
}

// NetPremium returns the per-unit net premium across legs at their average
// entry prices.
func (p *Position) NetPremium() float64 {
	net := 0.0
	for _, l := range p.Legs {
		net += l.AvgEntryPrice * float64(l.Quantity)
	}
	return net
}

// HoldingTime reports how long the position has been (or was) held.
func (p *Position) HoldingTime(now time.Time) time.Duration {
	if p.Status == PositionClosed {
		return p.ClosedAt.Sub(p.OpenedAt)
	}
	return now.Sub(p.OpenedAt)
}

// Description renders the structure compactly, e.g.
// "SPY 450C" or "SPY 448P/452C x2".
func (p *Position) Description() string {
	parts := make([]string, 0, len(p.Legs))
	for _, l := range p.Legs {
		side := "C"
		if l.Type == Put {
			side = "P"
		}
		sign := ""
		if l.Quantity < 0 {
			sign = "-"
		}
		parts = append(parts, fmt.Sprintf("%s%g%s", sign, l.Strike, side))
	}
	desc := fmt.Sprintf("%s %s", p.Underlying, strings.Join(parts, "/"))
	if p.Quantity > 1 {
		desc += fmt.Sprintf(" x%d", p.Quantity)
	}
	return desc
}
