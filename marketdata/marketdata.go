// Package marketdata loads, validates, and synthesizes the underlying OHLCV
// series a run replays. Corrupt or unordered data is fatal by contract;
// intraday gaps are counted and logged but do not stop a run.
package marketdata

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/raftroch1/0dte-sub000/logger"
	"github.com/raftroch1/0dte-sub000/models"
)

// DataError marks market data that cannot be trusted. The run must abort
// rather than trade on it.
type DataError struct {
	Source string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("market data %s: %s", e.Source, e.Reason)
}

// LoadCSV reads bars from a CSV file with a
// timestamp,open,high,low,close,vwap,volume header.
func LoadCSV(path string) ([]*models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Source: path, Reason: err.Error()}
	}
	defer f.Close()

	bars := []*models.Bar{}
	if err := gocsv.UnmarshalFile(f, &bars); err != nil {
		return nil, &DataError{Source: path, Reason: err.Error()}
	}
	if len(bars) == 0 {
		return nil, &DataError{Source: path, Reason: "no rows"}
	}
	return bars, nil
}

// SaveCSV writes bars in the same layout LoadCSV reads.
func SaveCSV(path string, bars []*models.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&bars, f)
}

// Validate checks the series a driver is about to replay. Timestamps must
// strictly increase and prices must be sane; either failure is fatal.
// Intraday gaps wider than the expected interval are logged and counted,
// overnight jumps are not gaps.
func Validate(bars []*models.Bar, interval time.Duration) (int, error) {
	if len(bars) == 0 {
		return 0, &DataError{Source: "bars", Reason: "empty series"}
	}
	gaps := 0
	step := interval.Milliseconds()
	for i, b := range bars {
		if badBar(b) {
			return gaps, &DataError{
				Source: "bars",
				Reason: fmt.Sprintf("corrupt bar at index %d (%s)", i, b.Time().Format(time.RFC3339)),
			}
		}
		if i == 0 {
			continue
		}
		prev := bars[i-1]
		if b.Timestamp <= prev.Timestamp {
			return gaps, &DataError{
				Source: "bars",
				Reason: fmt.Sprintf("non-monotonic timestamp at index %d", i),
			}
		}
		if step > 0 && b.Day() == prev.Day() && b.Timestamp-prev.Timestamp > step {
			gaps++
			logger.Warnf("data gap: %s -> %s", prev.Time().Format(time.RFC3339), b.Time().Format(time.RFC3339))
		}
	}
	return gaps, nil
}

func badBar(b *models.Bar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return b.High < b.Low
}
