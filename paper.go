package zdte

import (
	"context"
	"time"

	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/logger"
	"github.com/raftroch1/0dte-sub000/marketdata"
	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/signals"
	"github.com/raftroch1/0dte-sub000/utils"
)

// PaperTrader applies the backtest step to a live bar feed, so a strategy
// moves from replay to forward testing without touching engine semantics.
// All bars for one underlying are consumed on a single goroutine, keeping
// the engine's single-writer model; run independent symbols as independent
// PaperTraders.
type PaperTrader struct {
	engine *Engine
}

func NewPaperTrader(cfg *config.Config, source signals.Source) (*PaperTrader, error) {
	engine, err := NewEngine(cfg, source)
	if err != nil {
		return nil, err
	}
	return &PaperTrader{engine: engine}, nil
}

// AddObserver registers a reporting sink on the underlying engine.
func (p *PaperTrader) AddObserver(o Observer) {
	p.engine.AddObserver(o)
}

// SetVolSeries forwards to the underlying engine.
func (p *PaperTrader) SetVolSeries(vols map[string]float64) {
	p.engine.SetVolSeries(vols)
}

// Run consumes the feed until it closes or the context is canceled, then
// flattens whatever is still open at the last seen price and returns the
// session result. A corrupt bar is fatal; an out-of-order bar is dropped
// with a warning so a glitching feed cannot run the clock backwards.
func (p *PaperTrader) Run(ctx context.Context, feed <-chan *models.Bar) (*models.Result, error) {
	e := p.engine
	if err := e.reset(); err != nil {
		return nil, err
	}
	logger.Infof("paper trading %s on %s bars", e.cfg.Symbol, e.cfg.Timeframe)
	for {
		select {
		case <-ctx.Done():
			logger.Infof("paper session stopping: %v", ctx.Err())
			return p.finish()
		case bar, ok := <-feed:
			if !ok {
				return p.finish()
			}
			if err := p.apply(ctx, bar); err != nil {
				return nil, err
			}
		}
	}
}

// apply ingests one live bar: sanity checks, gap accounting, then the same
// per-bar step the backtest runs.
func (p *PaperTrader) apply(ctx context.Context, bar *models.Bar) error {
	e := p.engine
	if _, err := marketdata.Validate([]*models.Bar{bar}, 0); err != nil {
		return err
	}
	if n := len(e.bars); n > 0 {
		prev := e.bars[n-1]
		if bar.Timestamp <= prev.Timestamp {
			logger.Warnf("dropping out-of-order bar %s", bar.Time().Format(time.RFC3339))
			return nil
		}
		if bar.Day() == prev.Day() && bar.Timestamp-prev.Timestamp > e.interval.Milliseconds() {
			e.warnings.DataGaps++
			logger.Warnf("data gap: %s -> %s", prev.Time().Format(time.RFC3339), bar.Time().Format(time.RFC3339))
		}
	}
	e.bars = append(e.bars, bar)

	// The feed cannot announce the session's last bar the way a replay
	// can, so infer it: no further bar fits before the close.
	closeAt := utils.CloseOfDay(bar.Time(), e.cfg.Chain.CloseMinute)
	last := !bar.Time().Add(e.interval).Before(closeAt)
	return e.step(ctx, len(e.bars)-1, last)
}

// finish flattens the book at the last seen bar, snapshots a partial day if
// one is in flight, and freezes the result.
func (p *PaperTrader) finish() (*models.Result, error) {
	e := p.engine
	if n := len(e.bars); n > 0 {
		bar := e.bars[n-1]
		e.flatten(bar, bar.Time())
		if len(e.daily) == 0 || e.daily[len(e.daily)-1].Date != e.day {
			e.endDay(e.book.Equity())
		}
	}
	res := e.buildResult()
	e.observers.OnRunEnd(res)
	return res, nil
}
