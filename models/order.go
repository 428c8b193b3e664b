package models

import "time"

type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

var orderSides = [...]string{
	"buy",
	"sell",
}

func (s OrderSide) String() string {
	if s < Buy || s > Sell {
		return "unknown"
	}
	return orderSides[s]
}

// Opposite returns the other side, used when unwinding a leg.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Sign is +1 for buys and -1 for sells.
func (s OrderSide) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

type OrderType int

const (
	Market OrderType = iota
	Limit
)

var orderTypes = [...]string{
	"market",
	"limit",
}

func (t OrderType) String() string {
	if t < Market || t > Limit {
		return "unknown"
	}
	return orderTypes[t]
}

type OrderStatus int

const (
	Pending OrderStatus = iota
	Filled
	Rejected
)

var orderStatuses = [...]string{
	"pending",
	"filled",
	"rejected",
}

func (s OrderStatus) String() string {
	if s < Pending || s > Rejected {
		return "unknown"
	}
	return orderStatuses[s]
}

// OrderLeg is one contract of an order. Ratio is the per-unit contract count
// for composite structures and is 1 for simple orders.
type OrderLeg struct {
	Symbol string
	Side   OrderSide
	Ratio  int
}

// Order is a request to trade one contract or a multi-leg composite as a
// single unit. Quantity multiplies every leg ratio. An order is transient:
// it exists only for the duration of the fill transaction and is terminal
// once Filled or Rejected.
type Order struct {
	ID          string
	Legs        []OrderLeg
	Quantity    int
	Type        OrderType
	Status      OrderStatus
	SubmittedAt time.Time
}

// Simple returns a single-leg order.
func Simple(symbol string, side OrderSide, qty int) Order {
	return Order{
		Legs:     []OrderLeg{{Symbol: symbol, Side: side, Ratio: 1}},
		Quantity: qty,
		Type:     Market,
	}
}

// LegFill records the executed price of one leg.
type LegFill struct {
	Symbol string
	Side   OrderSide
	Ratio  int
	Price  float64
}

// Fill is the atomic result of executing an order: every leg filled against
// the same chain snapshot. NetPremium is per unit of the composite, positive
// for debits and negative for credits.
type Fill struct {
	OrderID    string
	Legs       []LegFill
	Quantity   int
	NetPremium float64
	Slippage   float64
	Commission float64
	Timestamp  time.Time
}
