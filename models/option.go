package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type OptionType int

const (
	Call OptionType = iota
	Put
)

var optionTypes = [...]string{
	"call",
	"put",
}

func (t OptionType) String() string {
	if t < Call || t > Put {
		return "unknown"
	}
	return optionTypes[t]
}

// ParseOptionType maps "call"/"put" (any case) to the typed constant.
func ParseOptionType(s string) (OptionType, error) {
	switch s {
	case "call", "Call", "CALL", "c", "C":
		return Call, nil
	case "put", "Put", "PUT", "p", "P":
		return Put, nil
	}
	return Call, fmt.Errorf("unknown option type %q", s)
}

// Greeks holds the sensitivity snapshot of one contract or an aggregate
// across position legs. Theta is per year; Vega and Rho are per whole unit
// of volatility and rate.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// Add returns g + h.
func (g Greeks) Add(h Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + h.Delta,
		Gamma: g.Gamma + h.Gamma,
		Theta: g.Theta + h.Theta,
		Vega:  g.Vega + h.Vega,
		Rho:   g.Rho + h.Rho,
	}
}

// Scale returns g with every sensitivity multiplied by k.
func (g Greeks) Scale(k float64) Greeks {
	return Greeks{
		Delta: g.Delta * k,
		Gamma: g.Gamma * k,
		Theta: g.Theta * k,
		Vega:  g.Vega * k,
		Rho:   g.Rho * k,
	}
}

// OptionContract is one synthesized strike/side of the daily chain.
// Contracts are immutable once a synthesis pass finishes; the next day's
// chain replaces them wholesale.
type OptionContract struct {
	Symbol       string
	Underlying   string
	Strike       float64
	Expiry       int64 // unix ms
	Type         OptionType
	Theo         float64
	Bid          float64
	Ask          float64
	Volatility   float64
	Greeks       Greeks
	OpenInterest float64
	Volume       float64
}

// Mid returns the bid/ask midpoint.
func (c *OptionContract) Mid() float64 {
	return (c.Bid + c.Ask) / 2
}

// Spread returns the full bid/ask width.
func (c *OptionContract) Spread() float64 {
	return c.Ask - c.Bid
}

// ExpiryTime returns the contract expiry as UTC.
func (c *OptionContract) ExpiryTime() time.Time {
	return time.UnixMilli(c.Expiry).UTC()
}

// Intrinsic returns the exercise value of the contract at the given
// underlying price.
func (c *OptionContract) Intrinsic(underlying float64) float64 {
	var v float64
	switch c.Type {
	case Call:
		v = underlying - c.Strike
	case Put:
		v = c.Strike - underlying
	}
	return math.Max(v, 0)
}

// Chain is the zero-days-to-expiration option chain for one trading day:
// every contract expires at the day's market close.
type Chain struct {
	Underlying      string
	Date            string // "2006-01-02"
	UnderlyingPrice float64
	Expiry          int64 // unix ms, market close
	Volatility      float64
	Calls           []OptionContract
	Puts            []OptionContract

	bySymbol map[string]*OptionContract
}

// NewChain builds a chain from synthesized contracts and indexes them by
// symbol. Contracts are sorted by strike per side.
func NewChain(underlying, date string, uPrice float64, expiry int64, vol float64, contracts []OptionContract) *Chain {
	ch := &Chain{
		Underlying:      underlying,
		Date:            date,
		UnderlyingPrice: uPrice,
		Expiry:          expiry,
		Volatility:      vol,
		bySymbol:        make(map[string]*OptionContract, len(contracts)),
	}
	for _, c := range contracts {
		switch c.Type {
		case Call:
			ch.Calls = append(ch.Calls, c)
		case Put:
			ch.Puts = append(ch.Puts, c)
		}
	}
	sort.Slice(ch.Calls, func(i, j int) bool { return ch.Calls[i].Strike < ch.Calls[j].Strike })
	sort.Slice(ch.Puts, func(i, j int) bool { return ch.Puts[i].Strike < ch.Puts[j].Strike })
	for i := range ch.Calls {
		ch.bySymbol[ch.Calls[i].Symbol] = &ch.Calls[i]
	}
	for i := range ch.Puts {
		ch.bySymbol[ch.Puts[i].Symbol] = &ch.Puts[i]
	}
	return ch
}

// Lookup returns the contract with the given symbol, or nil.
func (ch *Chain) Lookup(symbol string) *OptionContract {
	return ch.bySymbol[symbol]
}

// Nearest returns the contract of the given side whose strike is closest to
// target, or nil when the chain side is empty.
func (ch *Chain) Nearest(t OptionType, target float64) *OptionContract {
	side := ch.Calls
	if t == Put {
		side = ch.Puts
	}
	if len(side) == 0 {
		return nil
	}
	best := 0
	bestDiff := math.Abs(side[0].Strike - target)
	for i := 1; i < len(side); i++ {
		d := math.Abs(side[i].Strike - target)
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return &side[best]
}

// ATM returns the at-the-money contract for the given side.
func (ch *Chain) ATM(t OptionType) *OptionContract {
	return ch.Nearest(t, ch.UnderlyingPrice)
}

// Size returns the total contract count across both sides.
func (ch *Chain) Size() int {
	return len(ch.Calls) + len(ch.Puts)
}
