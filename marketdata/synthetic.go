package marketdata

import (
	"math"
	"math/rand"
	"time"

	"github.com/raftroch1/0dte-sub000/models"
)

// SyntheticConfig drives the geometric Brownian bar generator used for
// fixtures and dry runs when no candle store is available.
type SyntheticConfig struct {
	Start       time.Time // first session date; time of day is ignored
	Days        int       // trading days, weekends skipped
	Interval    time.Duration
	OpenMinute  int // session open, minutes after midnight UTC
	CloseMinute int // session close, minutes after midnight UTC
	StartPrice  float64
	Drift       float64 // annualized
	Volatility  float64 // annualized over trading time
	Seed        int64
}

func (c SyntheticConfig) withDefaults() SyntheticConfig {
	if c.Start.IsZero() {
		c.Start = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	}
	if c.Days <= 0 {
		c.Days = 5
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.OpenMinute <= 0 {
		c.OpenMinute = 810 // 13:30 UTC
	}
	if c.CloseMinute <= c.OpenMinute {
		c.CloseMinute = 1200 // 20:00 UTC
	}
	if c.StartPrice <= 0 {
		c.StartPrice = 450
	}
	if c.Volatility <= 0 {
		c.Volatility = 0.15
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return c
}

// Synthetic generates session bars along a geometric Brownian path. Bar
// variance is scaled in trading time (252 sessions a year) so the realized
// volatility of the tape matches the configured annualized volatility. The
// same seed always produces the same tape.
func Synthetic(cfg SyntheticConfig) []*models.Bar {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(cfg.Seed))

	perSession := (cfg.CloseMinute - cfg.OpenMinute) / int(cfg.Interval.Minutes())
	dt := 1.0 / float64(perSession*252)
	sigma := cfg.Volatility * math.Sqrt(dt)
	drift := (cfg.Drift - 0.5*cfg.Volatility*cfg.Volatility) * dt

	bars := make([]*models.Bar, 0, cfg.Days*perSession)
	price := cfg.StartPrice
	date := cfg.Start
	for d := 0; d < cfg.Days; {
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			date = date.AddDate(0, 0, 1)
			continue
		}
		midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		open := midnight.Add(time.Duration(cfg.OpenMinute) * time.Minute)
		end := midnight.Add(time.Duration(cfg.CloseMinute) * time.Minute)
		for ts := open; ts.Before(end); ts = ts.Add(cfg.Interval) {
			o := price
			price = o * math.Exp(drift+sigma*rng.NormFloat64())
			hi := math.Max(o, price) + rng.Float64()*sigma*price*0.5
			lo := math.Min(o, price) - rng.Float64()*sigma*price*0.5
			bars = append(bars, &models.Bar{
				Timestamp: ts.UnixMilli(),
				Open:      o,
				High:      hi,
				Low:       lo,
				Close:     price,
				VWAP:      (o + hi + lo + price) / 4,
				Volume:    500 + rng.Float64()*1500,
			})
		}
		d++
		date = date.AddDate(0, 0, 1)
	}
	return bars
}
