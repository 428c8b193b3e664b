// Package zdte backtests intraday option strategies on synthetic
// zero-days-to-expiration chains. The engine replays underlying bars through
// a daily chain synthesizer, a fill simulator, and a position ledger, asks a
// signal source for at most one trade intent per bar, and walks every open
// position through the exit state machine before sampling the equity curve.
package zdte

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/fatih/structs"

	"github.com/raftroch1/0dte-sub000/chain"
	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/exits"
	"github.com/raftroch1/0dte-sub000/ledger"
	"github.com/raftroch1/0dte-sub000/logger"
	"github.com/raftroch1/0dte-sub000/marketdata"
	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/pricing"
	"github.com/raftroch1/0dte-sub000/signals"
	"github.com/raftroch1/0dte-sub000/sim"
	"github.com/raftroch1/0dte-sub000/utils"
)

// defaultChainVol prices a chain when no volatility override, series point,
// or realized history is available, typically the first day of a run.
const defaultChainVol = 0.20

// Engine drives one strategy through one bar series. It is strictly
// single-threaded: every mutation of the ledger, the session, and the curve
// happens on the caller's goroutine, one bar at a time, so a run is fully
// reproducible from config, data, and seed. Run independent configurations
// as independent engines; see Sweep.
type Engine struct {
	cfg    *config.Config
	source signals.Source
	pricer *pricing.Engine

	observers Observers
	vols      map[string]float64 // date -> annualized chain vol

	// per-run state, rebuilt by reset
	interval time.Duration
	synth    *chain.Synthesizer
	exec     *sim.Simulator
	book     *ledger.Ledger
	machine  *exits.Machine
	session  *signals.Session

	bars        []*models.Bar
	day         string
	today       *models.Chain
	dayStart    int // index of the current day's first bar
	prevDayBars int // bar count of the prior day, for vol annualization
	dayTrades   int // trade log length at day start

	curve    []models.EquityPoint
	daily    []models.DailyMetric
	peak     float64
	warnings models.WarningCounts
}

// NewEngine wires an engine from configuration and a signal source. The
// optional pricer overrides the default valuation engine, mainly for tests
// that tighten or loosen the solver.
func NewEngine(cfg *config.Config, source signals.Source, pricer ...*pricing.Engine) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("nil signal source")
	}
	e := &Engine{cfg: cfg, source: source, pricer: pricing.NewEngine()}
	if len(pricer) > 0 && pricer[0] != nil {
		e.pricer = pricer[0]
	}
	return e, nil
}

// AddObserver registers a reporting sink. Observers are notified in
// registration order, on the engine's goroutine.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// SetVolSeries pins chain volatility per date ("2006-01-02" keys). Dates
// missing from the series fall back to realized volatility.
func (e *Engine) SetVolSeries(vols map[string]float64) {
	e.vols = vols
}

// reset rebuilds all per-run state so the same engine replays identically.
func (e *Engine) reset() error {
	interval, err := e.cfg.Interval()
	if err != nil {
		return err
	}
	e.interval = interval
	e.synth = chain.NewSynthesizer(chain.Config{
		Underlying:     e.cfg.Symbol,
		SpanPct:        e.cfg.Chain.SpanPct,
		SpreadFraction: e.cfg.Chain.SpreadPct,
		RiskFreeRate:   e.cfg.Pricing.RiskFreeRate,
		DividendYield:  e.cfg.Pricing.DividendYield,
		CloseMinute:    e.cfg.Chain.CloseMinute,
	}, e.pricer)
	e.exec = sim.NewSimulator(sim.Config{
		SpreadFraction:        e.cfg.Execution.SpreadFraction,
		QuoteSpreadFraction:   e.cfg.Execution.QuoteSpreadFraction,
		SlippageFraction:      e.cfg.Execution.SlippageFraction,
		CommissionPerContract: e.cfg.Execution.CommissionPerContract,
		Multiplier:            e.cfg.Account.Multiplier,
	}, rand.New(rand.NewSource(e.cfg.Seed)))
	e.book = ledger.New(ledger.Config{
		InitialBalance: e.cfg.Account.InitialBalance,
		MaxPositions:   e.cfg.Account.MaxPositions,
		Multiplier:     e.cfg.Account.Multiplier,
		Rate:           e.cfg.Pricing.RiskFreeRate,
		Dividend:       e.cfg.Pricing.DividendYield,
	}, e.pricer)
	e.machine = exits.NewMachine(exits.Config{
		CircuitBreakerPct:  e.cfg.Exits.CircuitBreakerPct,
		StopLossPct:        e.cfg.Exits.StopLossPct,
		TakeProfitPct:      e.cfg.Exits.TakeProfitPct,
		MaxHoldMinutes:     e.cfg.Exits.MaxHoldMinutes,
		MinutesBeforeClose: e.cfg.Exits.MinutesBeforeClose,
	})
	e.session = &signals.Session{}
	e.bars = nil
	e.day = ""
	e.today = nil
	e.dayStart = 0
	e.prevDayBars = 0
	e.dayTrades = 0
	e.curve = nil
	e.daily = nil
	e.peak = e.cfg.Account.InitialBalance
	e.warnings = models.WarningCounts{}
	return nil
}

// Run replays the bar series and returns the run result. Corrupt or
// non-monotonic data is fatal before the first tick; signal-source errors,
// invalid signals, and order rejections are logged, counted, and skipped.
func (e *Engine) Run(ctx context.Context, bars []*models.Bar) (*models.Result, error) {
	started := time.Now()
	if err := e.reset(); err != nil {
		return nil, err
	}
	gaps, err := marketdata.Validate(bars, e.interval)
	if err != nil {
		return nil, err
	}
	e.warnings.DataGaps = gaps
	e.bars = bars

	logger.Infof("running %d bars of %s, %s to %s", len(bars), e.cfg.Symbol,
		bars[0].Time().Format("2006-01-02"), bars[len(bars)-1].Time().Format("2006-01-02"))
	logger.Debugf("exit thresholds %s", utils.CreateKeyValuePairs(structs.Map(e.cfg.Exits), true))
	logger.Debugf("execution costs %s", utils.CreateKeyValuePairs(structs.Map(e.cfg.Execution), true))

	for i := range bars {
		last := i == len(bars)-1 || bars[i+1].Day() != bars[i].Day()
		if err := e.step(ctx, i, last); err != nil {
			return nil, err
		}
	}

	res := e.buildResult()
	logger.Infof("run %s finished in %v", res.RunID, time.Since(started))
	e.observers.OnRunEnd(res)
	return res, nil
}

// step advances the engine by one bar: roll the chain on a new day, mark
// the book, consult the signal source, route any intent through execution,
// evaluate exits, and sample the equity curve.
func (e *Engine) step(ctx context.Context, idx int, lastBar bool) error {
	bar := e.bars[idx]
	now := bar.Time()
	if bar.Day() != e.day {
		if err := e.rollDay(bar, idx); err != nil {
			return err
		}
	}
	if err := e.book.MarkToMarket(bar.Close, now); err != nil {
		return err
	}

	if sig := e.nextSignal(ctx, idx); sig != nil {
		filled, err := e.routeSignal(sig, now)
		if err != nil {
			return err
		}
		if filled {
			if err := e.book.MarkToMarket(bar.Close, now); err != nil {
				return err
			}
		}
	}

	e.runExits(bar, now, lastBar)

	equity := e.book.Equity()
	if equity > e.peak {
		e.peak = equity
	}
	e.curve = append(e.curve, models.EquityPoint{Timestamp: bar.Timestamp, Equity: equity})
	e.observers.OnBar(bar, equity)
	if lastBar {
		e.endDay(equity)
	}
	return nil
}

// rollDay synthesizes the new trading day's chain off the opening print and
// resets the per-day session state.
func (e *Engine) rollDay(bar *models.Bar, idx int) error {
	if e.day != "" {
		e.prevDayBars = idx - e.dayStart
	}
	day := bar.Day()
	vol := e.dayVol(day, idx)
	ch, err := e.synth.Daily(bar.Time(), bar.Open, vol)
	if err != nil {
		return fmt.Errorf("chain for %s: %w", day, err)
	}
	e.today = ch
	e.day = day
	e.dayStart = idx
	e.dayTrades = len(e.book.Trades())
	e.session.StartDay(day)
	logger.Debugf("%s: %d contracts at vol %.4f, equity %.2f", day, ch.Size(), vol, e.book.Equity())
	return nil
}

// dayVol resolves the chain volatility for a date: a config override wins,
// then the external series, then realized volatility over the trailing
// window, then the baseline.
func (e *Engine) dayVol(day string, idx int) float64 {
	if v := e.cfg.Pricing.Volatility; v > 0 {
		return v
	}
	if v, ok := e.vols[day]; ok && v > 0 {
		return v
	}
	if e.prevDayBars > 0 {
		if v := marketdata.RealizedVol(e.bars[:idx], e.cfg.Pricing.VolWindow, e.prevDayBars); v > 0 {
			return v
		}
	}
	return defaultChainVol
}

// nextSignal asks the source for a trade intent. Source errors, including
// context cancellation, mean "no signal this tick" and never end the run.
func (e *Engine) nextSignal(ctx context.Context, idx int) *models.Signal {
	sig, err := e.source.Next(ctx, signals.Request{
		Bars:          e.bars[:idx+1],
		Chain:         e.today,
		Session:       e.session,
		Equity:        e.book.Equity(),
		OpenPositions: len(e.book.OpenPositions()),
	})
	if err != nil {
		e.warnings.SignalErrors++
		logger.Warnf("signal source at %s: %v", e.bars[idx].Time().Format(time.RFC3339), err)
		return nil
	}
	return sig
}

// routeSignal validates, sizes, and executes one signal. Invalid signals
// and rejected orders are dropped with a logged reason; only a booking
// failure after a fill, which would desynchronize cash from the book, is
// escalated.
func (e *Engine) routeSignal(sig *models.Signal, now time.Time) (bool, error) {
	specs, err := legSpecs(sig, e.today)
	if err != nil {
		e.warnings.InvalidSignals++
		logger.Warnf("invalid signal at %s: %v", now.Format(time.RFC3339), err)
		return false, nil
	}
	order, err := sim.BuildOrder(e.today, specs, 1, now)
	if err != nil {
		e.warnings.RejectedOrders++
		logger.Warnf("order rejected at %s: %v", now.Format(time.RFC3339), err)
		return false, nil
	}
	match := e.book.FindOrderMatch(order.Legs)
	if match == nil && !e.book.CanOpen() {
		e.warnings.RejectedOrders++
		logger.Warnf("order rejected at %s: book full with %d positions", now.Format(time.RFC3339), len(e.book.OpenPositions()))
		return false, nil
	}
	qty := e.sizeOrder(order, sig)
	if qty < 1 {
		e.warnings.InvalidSignals++
		logger.Warnf("invalid signal at %s: size fraction %.4f does not buy one unit", now.Format(time.RFC3339), sig.SizeFraction)
		return false, nil
	}
	order.Quantity = qty

	fill, err := e.exec.Execute(order, e.today, now, e.book.Cash())
	if err != nil {
		var rejected *sim.OrderRejectedError
		if errors.As(err, &rejected) {
			e.warnings.RejectedOrders++
			logger.Warnf("%v", err)
			return false, nil
		}
		return false, err
	}

	if match != nil {
		err = e.book.AddTo(match, fill)
	} else {
		_, err = e.book.Open(fill, e.today, *sig, now)
	}
	if err != nil {
		return false, fmt.Errorf("booking fill %s: %w", fill.OrderID, err)
	}
	e.session.RecordTrade(now)
	logger.Debugf("filled %s x%d at %.2f net, slippage %.4f", order.Legs[0].Symbol, qty, fill.NetPremium, fill.Slippage)
	return true, nil
}

// legSpecs expands a signal into chain leg specs, validating everything the
// driver owns: fraction and confidence ranges, strike presence, and that
// the requested expiry is the chain's.
func legSpecs(sig *models.Signal, ch *models.Chain) ([]models.LegSpec, error) {
	if sig.SizeFraction <= 0 || sig.SizeFraction > 1 {
		return nil, fmt.Errorf("size fraction %v outside (0, 1]", sig.SizeFraction)
	}
	if sig.Confidence < 0 || sig.Confidence > 100 {
		return nil, fmt.Errorf("confidence %v outside [0, 100]", sig.Confidence)
	}
	if sig.Expiry != 0 && sig.Expiry != ch.Expiry {
		return nil, fmt.Errorf("no chain for expiry %s", time.UnixMilli(sig.Expiry).UTC().Format(time.RFC3339))
	}
	switch sig.Action {
	case models.BuyCall:
		if sig.Strike <= 0 {
			return nil, errors.New("buy call without a strike")
		}
		return []models.LegSpec{{Type: models.Call, Side: models.Buy, Strike: sig.Strike, Ratio: 1}}, nil
	case models.BuyPut:
		if sig.Strike <= 0 {
			return nil, errors.New("buy put without a strike")
		}
		return []models.LegSpec{{Type: models.Put, Side: models.Buy, Strike: sig.Strike, Ratio: 1}}, nil
	case models.MultiLeg:
		if len(sig.Legs) == 0 {
			return nil, errors.New("multi-leg signal without legs")
		}
		for _, leg := range sig.Legs {
			if leg.Strike <= 0 {
				return nil, fmt.Errorf("leg strike %v must be positive", leg.Strike)
			}
		}
		return sig.Legs, nil
	}
	return nil, fmt.Errorf("unknown action %d", sig.Action)
}

// sizeOrder converts the signal's equity fraction into whole units of the
// structure, costed at the quotes the order would cross plus commissions.
func (e *Engine) sizeOrder(order models.Order, sig *models.Signal) int {
	net := 0.0
	contracts := 0
	for _, leg := range order.Legs {
		c := e.today.Lookup(leg.Symbol)
		if c == nil {
			return 0
		}
		quote := c.Ask
		if leg.Side == models.Sell {
			quote = c.Bid
		}
		net += leg.Side.Sign() * quote * float64(leg.Ratio)
		contracts += leg.Ratio
	}
	unit := math.Abs(net)*e.book.Multiplier() + float64(contracts)*e.cfg.Execution.CommissionPerContract
	if unit <= 0 {
		return 0
	}
	return int(e.book.Equity() * sig.SizeFraction / unit)
}

// runExits walks the open book through the exit machine and unwinds every
// position whose first matching condition fired. At or past expiry the
// unwind settles to intrinsic value.
func (e *Engine) runExits(bar *models.Bar, now time.Time, lastBar bool) {
	if e.today == nil {
		return
	}
	closeAt := time.UnixMilli(e.today.Expiry).UTC()
	tick := exits.Tick{Now: now, Close: closeAt, LastBar: lastBar}

	open := e.book.OpenPositions()
	queue := make([]*models.Position, len(open))
	copy(queue, open)
	for _, pos := range queue {
		reason := e.machine.Evaluate(pos, tick)
		if reason == models.ReasonNone {
			continue
		}
		e.unwind(pos, bar, now, reason)
	}
}

// flatten force-closes the whole book, the shutdown path for live feeds.
func (e *Engine) flatten(bar *models.Bar, now time.Time) {
	open := e.book.OpenPositions()
	if len(open) == 0 {
		return
	}
	queue := make([]*models.Position, len(open))
	copy(queue, open)
	for _, pos := range queue {
		e.unwind(pos, bar, now, models.ReasonEndOfDay)
	}
}

func (e *Engine) unwind(pos *models.Position, bar *models.Bar, now time.Time, reason models.CloseReason) {
	settle := e.today != nil && !now.Before(time.UnixMilli(e.today.Expiry).UTC())
	fill := e.exec.CloseFill(pos, bar.Close, now, settle)
	if _, err := e.book.Close(pos, fill, reason, now); err != nil {
		logger.Errorf("closing %s: %v", pos.Description(), err)
		return
	}
	trades := e.book.Trades()
	e.observers.OnTradeClosed(trades[len(trades)-1])
}

// endDay snapshots the finished trading day.
func (e *Engine) endDay(equity float64) {
	trades := e.book.Trades()
	realized := 0.0
	for _, tr := range trades[e.dayTrades:] {
		realized += tr.RealizedPnL
	}
	drawdown := 0.0
	if e.peak > 0 && equity < e.peak {
		drawdown = (equity - e.peak) / e.peak
	}
	metric := models.DailyMetric{
		Date:        e.day,
		Trades:      len(trades) - e.dayTrades,
		RealizedPnL: realized,
		Drawdown:    drawdown,
		Equity:      equity,
	}
	e.daily = append(e.daily, metric)
	e.observers.OnDayEnd(metric)
	logger.Debugf("%s: %d trades, realized %.2f, equity %.2f", e.day, metric.Trades, realized, equity)
}
