package zdte

import (
	"os"
	"time"

	"github.com/fatih/structs"
	"github.com/gocarina/gocsv"
	client "github.com/influxdata/influxdb1-client/v2"

	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/journal"
	"github.com/raftroch1/0dte-sub000/logger"
	"github.com/raftroch1/0dte-sub000/models"
)

// Observer receives run lifecycle events. Reporting verbosity is an
// observer concern, not an engine flag: one driver, pluggable sinks. All
// callbacks run on the engine goroutine, so implementations must not block
// for long and must not call back into the engine.
type Observer interface {
	OnBar(bar *models.Bar, equity float64)
	OnTradeClosed(trade models.TradeRecord)
	OnDayEnd(day models.DailyMetric)
	OnRunEnd(result *models.Result)
}

// Observers fans events out in registration order.
type Observers []Observer

func (o Observers) OnBar(bar *models.Bar, equity float64) {
	for _, ob := range o {
		ob.OnBar(bar, equity)
	}
}

func (o Observers) OnTradeClosed(trade models.TradeRecord) {
	for _, ob := range o {
		ob.OnTradeClosed(trade)
	}
}

func (o Observers) OnDayEnd(day models.DailyMetric) {
	for _, ob := range o {
		ob.OnDayEnd(day)
	}
}

func (o Observers) OnRunEnd(result *models.Result) {
	for _, ob := range o {
		ob.OnRunEnd(result)
	}
}

// Progress narrates the run through the engine logger: every closed trade,
// every day, and the final summary at info level.
type Progress struct{}

func (Progress) OnBar(*models.Bar, float64) {}

func (Progress) OnTradeClosed(trade models.TradeRecord) {
	logger.Infof("closed %s (%s): %.2f after costs", trade.Description, trade.CloseReason, trade.RealizedPnL)
}

func (Progress) OnDayEnd(day models.DailyMetric) {
	logger.Infof("%s: %d trades, realized %.2f, equity %.2f, drawdown %.2f%%",
		day.Date, day.Trades, day.RealizedPnL, day.Equity, day.Drawdown*100)
}

func (Progress) OnRunEnd(res *models.Result) {
	logger.Infof("balance %.2f -> %.2f, return %.4f, annualized %.4f, max drawdown %.4f",
		res.InitialBalance, res.FinalBalance, res.TotalReturn, res.AnnualizedReturn, res.MaxDrawdown)
	logger.Infof("sharpe %.3f, sortino %.3f, win rate %.2f, profit factor %.2f, trades %d",
		res.Sharpe, res.Sortino, res.WinRate, res.ProfitFactor, len(res.Trades))
	if w := res.Warnings; w.InvalidSignals+w.RejectedOrders+w.SignalErrors+w.DataGaps > 0 {
		logger.Warnf("warnings: %d invalid signals, %d rejected orders, %d signal errors, %d data gaps",
			w.InvalidSignals, w.RejectedOrders, w.SignalErrors, w.DataGaps)
	}
}

// CSVExport writes the equity curve and trade log when the run ends. The
// layouts round-trip through the marketdata loaders, so an exported curve
// can feed notebooks or another run's fixtures directly.
type CSVExport struct {
	EquityPath string // "" skips the curve
	TradesPath string // "" skips the trade log
}

func (CSVExport) OnBar(*models.Bar, float64)       {}
func (CSVExport) OnTradeClosed(models.TradeRecord) {}
func (CSVExport) OnDayEnd(models.DailyMetric)      {}

func (c CSVExport) OnRunEnd(res *models.Result) {
	if c.EquityPath != "" {
		if err := marshalCSV(c.EquityPath, &res.EquityCurve); err != nil {
			logger.Errorf("equity csv %s: %v", c.EquityPath, err)
		} else {
			logger.Infof("wrote %d equity points to %s", len(res.EquityCurve), c.EquityPath)
		}
	}
	if c.TradesPath != "" {
		if err := marshalCSV(c.TradesPath, &res.Trades); err != nil {
			logger.Errorf("trades csv %s: %v", c.TradesPath, err)
		} else {
			logger.Infof("wrote %d trades to %s", len(res.Trades), c.TradesPath)
		}
	}
}

func marshalCSV(path string, rows interface{}) error {
	os.Remove(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, os.ModePerm)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(rows, f)
}

// InfluxPublisher ships the finished run to InfluxDB: one summary point per
// run and one point per trading day, tagged by symbol and run ID. Publish
// failures are logged and swallowed; reporting must never kill a finished
// run.
type InfluxPublisher struct {
	Cfg config.Influx
}

func (InfluxPublisher) OnBar(*models.Bar, float64)       {}
func (InfluxPublisher) OnTradeClosed(models.TradeRecord) {}
func (InfluxPublisher) OnDayEnd(models.DailyMetric)      {}

func (p InfluxPublisher) OnRunEnd(res *models.Result) {
	influx, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     p.Cfg.Addr,
		Username: p.Cfg.Username,
		Password: p.Cfg.Password,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		logger.Errorf("influx connect %s: %v", p.Cfg.Addr, err)
		return
	}
	defer influx.Close()

	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  p.Cfg.Database,
		Precision: "us",
	})
	if err != nil {
		logger.Errorf("influx batch: %v", err)
		return
	}
	tags := map[string]string{
		"symbol": res.Symbol,
		"run_id": res.RunID,
	}

	fields := structs.Map(res)
	for _, key := range []string{"RunID", "Symbol", "Start", "End", "Trades", "EquityCurve", "Daily", "MonthlyReturns", "Warnings"} {
		delete(fields, key)
	}
	for k, v := range structs.Map(res.Warnings) {
		fields[k] = v
	}
	pt, err := client.NewPoint("run", tags, fields, res.End)
	if err != nil {
		logger.Errorf("influx run point: %v", err)
		return
	}
	bp.AddPoint(pt)

	for _, day := range res.Daily {
		at, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}
		fields := structs.Map(day)
		delete(fields, "Date")
		pt, err := client.NewPoint("daily", tags, fields, at)
		if err != nil {
			continue
		}
		bp.AddPoint(pt)
	}

	if err := influx.Write(bp); err != nil {
		logger.Errorf("influx write: %v", err)
		return
	}
	logger.Infof("published run %s to influx %s", res.RunID, p.Cfg.Addr)
}

// JournalRecorder persists the finished run into the sqlite trade journal.
type JournalRecorder struct {
	J *journal.Journal
}

func (JournalRecorder) OnBar(*models.Bar, float64)       {}
func (JournalRecorder) OnTradeClosed(models.TradeRecord) {}
func (JournalRecorder) OnDayEnd(models.DailyMetric)      {}

func (r JournalRecorder) OnRunEnd(res *models.Result) {
	if r.J == nil {
		return
	}
	if err := r.J.SaveResult(res); err != nil {
		logger.Errorf("journal save %s: %v", res.RunID, err)
		return
	}
	logger.Infof("journaled run %s", res.RunID)
}
