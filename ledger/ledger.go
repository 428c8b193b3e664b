// Package ledger keeps the position book and cash balance for one run.
// Fills open positions, stack onto them with weighted-average entries, and
// unwind them booking realized P&L; every tick the book is revalued through
// the pricing engine with time decayed to the current clock.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/raftroch1/0dte-sub000/logger"
	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/pricing"
)

// Config sets the account parameters for a run.
type Config struct {
	InitialBalance float64
	MaxPositions   int     // 0 means unlimited
	Multiplier     float64 // shares per contract
	Rate           float64 // risk-free rate used for marks
	Dividend       float64
}

// Ledger is the single-writer position book. Nothing in here is safe for
// concurrent use; the driver serializes all mutation within a tick.
type Ledger struct {
	cfg    Config
	engine *pricing.Engine
	cash   float64
	open   []*models.Position
	closed []*models.Position
	trades []models.TradeRecord

	// entry commissions not yet attributed to a sale, by position ID
	entryComm map[string]float64
}

func New(cfg Config, engine *pricing.Engine) *Ledger {
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 100
	}
	if engine == nil {
		engine = pricing.NewEngine()
	}
	return &Ledger{
		cfg:       cfg,
		engine:    engine,
		cash:      cfg.InitialBalance,
		entryComm: map[string]float64{},
	}
}

// Cash is the settled balance, exclusive of open position value.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Equity is cash plus the liquidation value of every open position as of
// the last mark.
func (l *Ledger) Equity() float64 {
	eq := l.cash
	for _, p := range l.open {
		eq += p.MarkValue
	}
	return eq
}

// OpenPositions returns the live book in open order. Callers must not
// mutate positions; the slice itself is shared.
func (l *Ledger) OpenPositions() []*models.Position {
	return l.open
}

func (l *Ledger) ClosedPositions() []*models.Position {
	return l.closed
}

// Trades returns the per-sale log in booking order.
func (l *Ledger) Trades() []models.TradeRecord {
	return l.trades
}

// CanOpen reports whether the book has room for another position.
func (l *Ledger) CanOpen() bool {
	return l.cfg.MaxPositions <= 0 || len(l.open) < l.cfg.MaxPositions
}

// Multiplier reports the configured shares-per-contract.
func (l *Ledger) Multiplier() float64 {
	return l.cfg.Multiplier
}

// FindMatch returns the open position holding exactly the fill's leg
// structure, or nil. A match means a buy should stack rather than open.
func (l *Ledger) FindMatch(legs []models.LegFill) *models.Position {
	key := fillKey(legs)
	for _, p := range l.open {
		if positionKey(p.Legs) == key {
			return p
		}
	}
	return nil
}

// FindOrderMatch is FindMatch for an order that has not filled yet, so the
// stack-or-open decision happens before any cash moves.
func (l *Ledger) FindOrderMatch(legs []models.OrderLeg) *models.Position {
	key := orderKey(legs)
	for _, p := range l.open {
		if positionKey(p.Legs) == key {
			return p
		}
	}
	return nil
}

// Open books a filled order as a new position. Leg metadata (strike,
// expiry, volatility) is resolved from the chain the fill priced against.
func (l *Ledger) Open(fill models.Fill, ch *models.Chain, sig models.Signal, now time.Time) (*models.Position, error) {
	if !l.CanOpen() {
		return nil, fmt.Errorf("position book full: %d open", len(l.open))
	}
	if fill.Quantity < 1 || len(fill.Legs) == 0 {
		return nil, fmt.Errorf("empty fill cannot open a position")
	}
	legs := make([]models.PositionLeg, 0, len(fill.Legs))
	for _, lf := range fill.Legs {
		c := ch.Lookup(lf.Symbol)
		if c == nil {
			return nil, fmt.Errorf("fill leg %s not in chain %s", lf.Symbol, ch.Date)
		}
		qty := lf.Ratio
		if lf.Side == models.Sell {
			qty = -qty
		}
		legs = append(legs, models.PositionLeg{
			Symbol:        lf.Symbol,
			Strike:        c.Strike,
			Expiry:        c.Expiry,
			Type:          c.Type,
			Quantity:      qty,
			AvgEntryPrice: lf.Price,
			Volatility:    c.Volatility,
			CurrentTheo:   c.Theo,
		})
	}
	mult := l.cfg.Multiplier
	pos := &models.Position{
		ID:            fill.OrderID,
		Underlying:    ch.Underlying,
		Legs:          legs,
		Quantity:      fill.Quantity,
		EntryCost:     fill.NetPremium,
		RiskBasis:     riskBasis(legs, fill.NetPremium, fill.Quantity, mult),
		MarkValue:     fill.NetPremium * float64(fill.Quantity) * mult,
		Commissions:   fill.Commission,
		Status:        models.PositionOpen,
		OpenedAt:      now,
		StopLossPct:   sig.StopLossPct,
		TakeProfitPct: sig.TakeProfitPct,
		Note:          sig.Note,
	}
	l.cash -= fill.NetPremium*float64(fill.Quantity)*mult + fill.Commission
	l.open = append(l.open, pos)
	l.entryComm[pos.ID] = fill.Commission
	logger.Debugf("opened %s, net %.2f, risk basis %.2f", pos.Description(), pos.EntryCost, pos.RiskBasis)
	return pos, nil
}

// AddTo stacks a fill onto an existing position with the same structure.
// Per-leg entry prices become the unit-weighted average of old and new.
func (l *Ledger) AddTo(pos *models.Position, fill models.Fill) error {
	if pos.Status != models.PositionOpen {
		return fmt.Errorf("position %s is closed", pos.ID)
	}
	if fill.Quantity < 1 {
		return fmt.Errorf("empty fill cannot stack")
	}
	oldQty := float64(pos.Quantity)
	addQty := float64(fill.Quantity)
	total := oldQty + addQty
	for _, lf := range fill.Legs {
		leg := findLeg(pos, lf.Symbol)
		if leg == nil {
			return fmt.Errorf("fill leg %s does not match %s", lf.Symbol, pos.Description())
		}
		leg.AvgEntryPrice = (leg.AvgEntryPrice*oldQty + lf.Price*addQty) / total
	}
	pos.Quantity += fill.Quantity
	pos.EntryCost = pos.NetPremium()
	pos.Commissions += fill.Commission
	pos.RiskBasis = riskBasis(pos.Legs, pos.EntryCost, pos.Quantity, l.cfg.Multiplier)
	l.cash -= fill.NetPremium*addQty*l.cfg.Multiplier + fill.Commission
	l.entryComm[pos.ID] += fill.Commission
	return nil
}

// Sell books realized P&L for qty units at exitNet, the per-unit structure
// value received. Realized is (exit - weighted-average entry) x qty x
// multiplier minus the sale commission and the attributable share of entry
// commissions. Selling the full quantity closes the position and stamps the
// reason; a partial sale leaves the remainder open.
func (l *Ledger) Sell(pos *models.Position, exitNet float64, qty int, commission float64, reason models.CloseReason, now time.Time) (float64, error) {
	if pos.Status != models.PositionOpen {
		return 0, fmt.Errorf("position %s is closed", pos.ID)
	}
	if qty < 1 || qty > pos.Quantity {
		return 0, fmt.Errorf("sell %d of %d units", qty, pos.Quantity)
	}
	mult := l.cfg.Multiplier
	entryShare := l.entryComm[pos.ID] * float64(qty) / float64(pos.Quantity)
	realized := (exitNet-pos.EntryCost)*float64(qty)*mult - entryShare - commission

	l.trades = append(l.trades, models.TradeRecord{
		PositionID:  pos.ID,
		Description: pos.Description(),
		OpenedAt:    pos.OpenedAt,
		ClosedAt:    now,
		Quantity:    qty,
		EntryPrice:  pos.EntryCost,
		ExitPrice:   exitNet,
		RealizedPnL: realized,
		Commissions: entryShare + commission,
		CloseReason: reason.String(),
		Note:        pos.Note,
	})

	pos.RealizedPnL += realized
	pos.Commissions += commission
	l.entryComm[pos.ID] -= entryShare
	l.cash += exitNet*float64(qty)*mult - commission

	remaining := pos.Quantity - qty
	pos.Quantity = remaining
	if remaining == 0 {
		pos.Status = models.PositionClosed
		pos.ClosedAt = now
		pos.CloseReason = reason
		pos.MarkValue = 0
		pos.UnrealizedPnL = 0
		pos.Greeks = models.Greeks{}
		delete(l.entryComm, pos.ID)
		l.removeOpen(pos)
		l.closed = append(l.closed, pos)
		logger.Debugf("closed %s (%s), realized %.2f", pos.Description(), reason, pos.RealizedPnL)
	} else {
		scale := float64(remaining) / (float64(remaining) + float64(qty))
		pos.MarkValue *= scale
		pos.UnrealizedPnL *= scale
		pos.Greeks = pos.Greeks.Scale(scale)
	}
	return realized, nil
}

// Close unwinds the whole position against its close fill.
func (l *Ledger) Close(pos *models.Position, fill models.Fill, reason models.CloseReason, now time.Time) (float64, error) {
	return l.Sell(pos, fill.NetPremium, pos.Quantity, fill.Commission, reason, now)
}

// MarkToMarket revalues every open position off the underlying price with
// expirations decayed to now. Leg volatilities stay pinned to the chain
// they were opened against.
func (l *Ledger) MarkToMarket(underlying float64, now time.Time) error {
	mult := l.cfg.Multiplier
	for _, pos := range l.open {
		net := 0.0
		var g models.Greeks
		for i := range pos.Legs {
			leg := &pos.Legs[i]
			mins := time.UnixMilli(leg.Expiry).Sub(now).Minutes()
			q, err := l.engine.Quote(pricing.Inputs{
				Underlying: underlying,
				Strike:     leg.Strike,
				TTE:        pricing.MinutesToYears(math.Max(mins, 0)),
				Rate:       l.cfg.Rate,
				Dividend:   l.cfg.Dividend,
				Volatility: leg.Volatility,
				Type:       leg.Type,
			})
			if err != nil {
				return fmt.Errorf("mark %s: %w", leg.Symbol, err)
			}
			leg.CurrentTheo = q.Price
			net += q.Price * float64(leg.Quantity)
			g = g.Add(q.Greeks.Scale(float64(leg.Quantity)))
		}
		units := float64(pos.Quantity)
		pos.MarkValue = net * units * mult
		pos.UnrealizedPnL = (net - pos.EntryCost) * units * mult
		pos.Greeks = g.Scale(units)
	}
	return nil
}

// AggregateGreeks sums the book's Greeks as of the last mark.
func (l *Ledger) AggregateGreeks() models.Greeks {
	var g models.Greeks
	for _, p := range l.open {
		g = g.Add(p.Greeks)
	}
	return g
}

// riskBasis is the capital at risk anchoring exit thresholds: a debit
// risks its premium; a defined-width credit risks the strike width beyond
// the credit received; a widthless credit falls back to the premium.
func riskBasis(legs []models.PositionLeg, net float64, qty int, mult float64) float64 {
	premium := math.Abs(net) * float64(qty) * mult
	if net > 0 || len(legs) < 2 {
		return premium
	}
	minK, maxK := legs[0].Strike, legs[0].Strike
	for _, leg := range legs[1:] {
		minK = math.Min(minK, leg.Strike)
		maxK = math.Max(maxK, leg.Strike)
	}
	width := (maxK - minK) * float64(qty) * mult
	if width <= premium {
		return premium
	}
	return width - premium
}

func (l *Ledger) removeOpen(pos *models.Position) {
	for i, p := range l.open {
		if p == pos {
			l.open = append(l.open[:i], l.open[i+1:]...)
			return
		}
	}
}

func findLeg(pos *models.Position, symbol string) *models.PositionLeg {
	for i := range pos.Legs {
		if pos.Legs[i].Symbol == symbol {
			return &pos.Legs[i]
		}
	}
	return nil
}

func fillKey(legs []models.LegFill) string {
	parts := make([]string, 0, len(legs))
	for _, leg := range legs {
		s := 1
		if leg.Side == models.Sell {
			s = -1
		}
		parts = append(parts, fmt.Sprintf("%s%+dx%d", leg.Symbol, s, leg.Ratio))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func orderKey(legs []models.OrderLeg) string {
	parts := make([]string, 0, len(legs))
	for _, leg := range legs {
		s := 1
		if leg.Side == models.Sell {
			s = -1
		}
		parts = append(parts, fmt.Sprintf("%s%+dx%d", leg.Symbol, s, leg.Ratio))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func positionKey(legs []models.PositionLeg) string {
	parts := make([]string, 0, len(legs))
	for _, leg := range legs {
		s := 1
		qty := leg.Quantity
		if qty < 0 {
			s = -1
			qty = -qty
		}
		parts = append(parts, fmt.Sprintf("%s%+dx%d", leg.Symbol, s, qty))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}
