package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	zdte "github.com/raftroch1/0dte-sub000"
	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/signals"
)

func sweepCmd() *cobra.Command {
	var stopLosses, takeProfits string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Backtest a grid of exit thresholds concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stops, err := parseFloats(stopLosses)
			if err != nil {
				return fmt.Errorf("--stop-loss: %w", err)
			}
			takes, err := parseFloats(takeProfits)
			if err != nil {
				return fmt.Errorf("--take-profit: %w", err)
			}

			variants := make([]zdte.Variant, 0, len(stops)*len(takes))
			for _, sl := range stops {
				for _, tp := range takes {
					sl, tp := sl, tp
					variants = append(variants, zdte.Variant{
						Name: fmt.Sprintf("sl%.2f/tp%.2f", sl, tp),
						Apply: func(c *config.Config) {
							c.Exits.StopLossPct = sl
							c.Exits.TakeProfitPct = tp
						},
					})
				}
			}

			bars, err := loadBars(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			results, err := zdte.Sweep(cmd.Context(), cfg, variants, bars, func(c *config.Config) signals.Source {
				return signals.NewMomentum(momentumCfg(c))
			})
			if err != nil {
				return err
			}

			fmt.Printf("%-16s %10s %10s %8s %8s %7s\n", "variant", "return", "drawdown", "sharpe", "winrate", "trades")
			for i, res := range results {
				fmt.Printf("%-16s %10.4f %10.4f %8.3f %8.4f %7d\n",
					variants[i].Name, res.TotalReturn, res.MaxDrawdown, res.Sharpe, res.WinRate, len(res.Trades))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stopLosses, "stop-loss", "0.3,0.5,0.7", "comma-separated stop-loss fractions of risk basis")
	cmd.Flags().StringVar(&takeProfits, "take-profit", "0.5,1.0,2.0", "comma-separated take-profit fractions of risk basis")
	return cmd
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", p)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}
