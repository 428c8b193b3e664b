package main

import (
	"github.com/spf13/cobra"

	zdte "github.com/raftroch1/0dte-sub000"
	"github.com/raftroch1/0dte-sub000/journal"
	"github.com/raftroch1/0dte-sub000/marketdata"
	"github.com/raftroch1/0dte-sub000/signals"
)

func backtestCmd() *cobra.Command {
	var equityCSV, tradesCSV string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the configured bar series through the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			bars, err := loadBars(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			engine, err := zdte.NewEngine(cfg, signals.NewMomentum(momentumCfg(cfg)))
			if err != nil {
				return err
			}

			if !quiet {
				engine.AddObserver(zdte.Progress{})
			}
			if equityCSV == "" {
				equityCSV = cfg.EquityCSV
			}
			if equityCSV != "" || tradesCSV != "" {
				engine.AddObserver(zdte.CSVExport{EquityPath: equityCSV, TradesPath: tradesCSV})
			}
			if cfg.Influx.Addr != "" {
				engine.AddObserver(zdte.InfluxPublisher{Cfg: cfg.Influx})
			}
			if cfg.Journal != "" {
				j, err := journal.Open(cfg.Journal)
				if err != nil {
					return err
				}
				defer j.Close()
				engine.AddObserver(zdte.JournalRecorder{J: j})
			}
			if cfg.Data.VolCSV != "" {
				vols, err := marketdata.LoadVolSeries(cfg.Data.VolCSV)
				if err != nil {
					return err
				}
				engine.SetVolSeries(vols)
			}

			res, err := engine.Run(cmd.Context(), bars)
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&equityCSV, "equity-csv", "", "write the equity curve to this file")
	cmd.Flags().StringVar(&tradesCSV, "trades-csv", "", "write the trade log to this file")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress per-trade and per-day logging")
	return cmd
}
