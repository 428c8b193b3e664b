package zdte

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/raftroch1/0dte-sub000/models"
)

// tradingDaysPerYear annualizes daily statistics on the 252-session
// convention used throughout.
const tradingDaysPerYear = 252

// buildResult freezes the run into its result: summary statistics over the
// equity curve and trade log, plus the raw series for observers.
func (e *Engine) buildResult() *models.Result {
	res := &models.Result{
		RunID:          uuid.NewString(),
		Symbol:         e.cfg.Symbol,
		Seed:           e.cfg.Seed,
		Bars:           len(e.bars),
		TradingDays:    len(e.daily),
		InitialBalance: e.cfg.Account.InitialBalance,
		FinalBalance:   e.book.Equity(),
		Trades:         e.book.Trades(),
		EquityCurve:    e.curve,
		Daily:          e.daily,
		Warnings:       e.warnings,
	}
	if len(e.bars) > 0 {
		res.Start = e.bars[0].Time()
		res.End = e.bars[len(e.bars)-1].Time()
	}
	if res.InitialBalance > 0 {
		res.TotalReturn = res.FinalBalance/res.InitialBalance - 1
	}
	res.AnnualizedReturn = annualizeReturn(res.TotalReturn, res.TradingDays)
	res.MaxDrawdown = maxDrawdown(e.curve, res.InitialBalance)
	res.Sharpe, res.Sortino = riskRatios(dailyReturns(res.InitialBalance, e.daily))
	res.WinRate, res.ProfitFactor = tradeQuality(res.Trades)
	res.LongestWinStreak, res.LongestLossStreak = streaks(res.Trades)
	res.MonthlyReturns = monthlyReturns(res.InitialBalance, e.daily)
	return res
}

// annualizeReturn compounds the whole-run return onto a 252-session year.
func annualizeReturn(total float64, days int) float64 {
	if days <= 0 {
		return 0
	}
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, float64(tradingDaysPerYear)/float64(days)) - 1
}

// maxDrawdown walks the curve tracking the highest equity seen and returns
// the deepest peak-to-trough move as a negative fraction.
func maxDrawdown(curve []models.EquityPoint, initial float64) float64 {
	highest := initial
	dd := 0.0
	for _, p := range curve {
		if p.Equity > highest {
			highest = p.Equity
		}
		if highest <= 0 {
			continue
		}
		if diff := (p.Equity - highest) / highest; diff < dd {
			dd = diff
		}
	}
	return dd
}

// dailyReturns derives day-over-day fractional changes of end-of-day equity.
func dailyReturns(initial float64, daily []models.DailyMetric) []float64 {
	rets := make([]float64, 0, len(daily))
	last := initial
	for _, d := range daily {
		if last > 0 {
			rets = append(rets, d.Equity/last-1)
		}
		last = d.Equity
	}
	return rets
}

// riskRatios computes the annualized Sharpe and Sortino ratios over daily
// returns. Sortino divides by the downside deviation, the root mean square
// of the negative returns over all observations. Degenerate series yield 0
// rather than NaN so reports stay readable.
func riskRatios(returns []float64) (sharpe, sortino float64) {
	if len(returns) < 2 {
		return 0, 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	ann := math.Sqrt(tradingDaysPerYear)
	if std > 0 {
		sharpe = mean / std * ann
	}
	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside > 0 {
		sortino = mean / downside * ann
	}
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		sharpe = 0
	}
	if math.IsNaN(sortino) || math.IsInf(sortino, 0) {
		sortino = 0
	}
	return sharpe, sortino
}

// tradeQuality reports the winning fraction and the profit factor, gross
// profit over gross loss. A profitable log with no losers has an infinite
// profit factor.
func tradeQuality(trades []models.TradeRecord) (winRate, profitFactor float64) {
	if len(trades) == 0 {
		return 0, 0
	}
	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for _, tr := range trades {
		if tr.RealizedPnL > 0 {
			wins++
			grossProfit += tr.RealizedPnL
		} else {
			grossLoss -= tr.RealizedPnL
		}
	}
	winRate = float64(wins) / float64(len(trades))
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		profitFactor = math.Inf(1)
	}
	return winRate, profitFactor
}

// streaks finds the longest run of winning and of losing trades. Scratch
// trades break both streaks.
func streaks(trades []models.TradeRecord) (win, loss int) {
	curWin, curLoss := 0, 0
	for _, tr := range trades {
		switch {
		case tr.RealizedPnL > 0:
			curWin++
			curLoss = 0
		case tr.RealizedPnL < 0:
			curLoss++
			curWin = 0
		default:
			curWin, curLoss = 0, 0
		}
		if curWin > win {
			win = curWin
		}
		if curLoss > loss {
			loss = curLoss
		}
	}
	return win, loss
}

// monthlyReturns keys each calendar month ("2006-01") to the fractional
// equity change across it.
func monthlyReturns(initial float64, daily []models.DailyMetric) map[string]float64 {
	months := map[string]float64{}
	monthStart := initial
	last := initial
	current := ""
	for _, d := range daily {
		month := d.Date
		if len(month) >= 7 {
			month = month[:7]
		}
		if month != current {
			if current != "" && monthStart > 0 {
				months[current] = last/monthStart - 1
			}
			current = month
			monthStart = last
		}
		last = d.Equity
	}
	if current != "" && monthStart > 0 {
		months[current] = last/monthStart - 1
	}
	return months
}
