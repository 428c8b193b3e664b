// Package signals defines the contract between the backtest driver and
// strategy code. A source sees the bar history, the day's chain, and the
// run's session state, and returns at most one signal per tick. The driver
// blocks on the call and treats errors or cancellation as "no signal".
package signals

import (
	"context"
	"time"

	"github.com/raftroch1/0dte-sub000/models"
)

// Session is the per-run mutable strategy state. The driver owns it, resets
// it at each new trading day, and passes it into the source; sources never
// keep their own daily counters.
type Session struct {
	Date        string
	TradesToday int
	LastTrade   time.Time
}

// StartDay rolls the session onto a new trading date.
func (s *Session) StartDay(date string) {
	s.Date = date
	s.TradesToday = 0
}

// RecordTrade notes an accepted signal so sources can rate-limit.
func (s *Session) RecordTrade(at time.Time) {
	s.TradesToday++
	s.LastTrade = at
}

// Request is everything a source may look at for one tick. Bars are ordered
// oldest first, ending at the current bar.
type Request struct {
	Bars          []*models.Bar
	Chain         *models.Chain
	Session       *Session
	Equity        float64
	OpenPositions int
}

// Bar returns the current (most recent) bar.
func (r Request) Bar() *models.Bar {
	return r.Bars[len(r.Bars)-1]
}

// Source produces trading signals. Implementations may perform I/O; the
// context bounds the call.
type Source interface {
	Next(ctx context.Context, req Request) (*models.Signal, error)
}

// Func adapts a plain function to the Source interface.
type Func func(ctx context.Context, req Request) (*models.Signal, error)

func (f Func) Next(ctx context.Context, req Request) (*models.Signal, error) {
	return f(ctx, req)
}

// Scripted replays a fixed plan keyed by tick index. Deterministic by
// construction, it anchors replay and driver tests.
type Scripted struct {
	Plan map[int]models.Signal

	tick int
}

func (s *Scripted) Next(context.Context, Request) (*models.Signal, error) {
	i := s.tick
	s.tick++
	if sig, ok := s.Plan[i]; ok {
		return &sig, nil
	}
	return nil, nil
}
