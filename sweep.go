package zdte

import (
	"context"
	"fmt"

	"github.com/jinzhu/copier"
	"golang.org/x/sync/errgroup"

	"github.com/raftroch1/0dte-sub000/config"
	"github.com/raftroch1/0dte-sub000/logger"
	"github.com/raftroch1/0dte-sub000/models"
	"github.com/raftroch1/0dte-sub000/signals"
)

// Variant is one leg of a parameter sweep: a label for reporting and a
// mutation applied to a private copy of the base configuration.
type Variant struct {
	Name  string
	Apply func(*config.Config)
}

// Sweep backtests every variant over the same bars, one engine per variant
// running concurrently. Each engine owns its ledger, simulator, and seeded
// random source, and the source factory is called once per variant, so
// results are independent of goroutine interleaving; the bar slice is
// shared read-only. Results come back in variant order.
func Sweep(ctx context.Context, base *config.Config, variants []Variant, bars []*models.Bar, factory func(*config.Config) signals.Source) ([]*models.Result, error) {
	if base == nil {
		return nil, fmt.Errorf("nil base config")
	}
	if factory == nil {
		return nil, fmt.Errorf("nil source factory")
	}
	results := make([]*models.Result, len(variants))
	eg, ctx := errgroup.WithContext(ctx)
	for i := range variants {
		i := i
		v := variants[i]
		eg.Go(func() error {
			cfg := &config.Config{}
			if err := copier.CopyWithOption(cfg, base, copier.Option{DeepCopy: true}); err != nil {
				return fmt.Errorf("variant %s: copy config: %w", v.Name, err)
			}
			if v.Apply != nil {
				v.Apply(cfg)
			}
			engine, err := NewEngine(cfg, factory(cfg))
			if err != nil {
				return fmt.Errorf("variant %s: %w", v.Name, err)
			}
			res, err := engine.Run(ctx, bars)
			if err != nil {
				return fmt.Errorf("variant %s: %w", v.Name, err)
			}
			logger.Infof("variant %s: return %.4f, max drawdown %.4f, sharpe %.3f",
				v.Name, res.TotalReturn, res.MaxDrawdown, res.Sharpe)
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
