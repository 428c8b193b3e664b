package marketdata

import (
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/raftroch1/0dte-sub000/models"
)

// VolPoint is one row of a per-date volatility override series.
type VolPoint struct {
	Date string  `csv:"date"`
	Vol  float64 `csv:"vol"`
}

// LoadVolSeries reads a date -> annualized volatility map, the optional
// external feed consulted before falling back to realized volatility.
func LoadVolSeries(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataError{Source: path, Reason: err.Error()}
	}
	defer f.Close()

	points := []*VolPoint{}
	if err := gocsv.UnmarshalFile(f, &points); err != nil {
		return nil, &DataError{Source: path, Reason: err.Error()}
	}
	vols := make(map[string]float64, len(points))
	for _, p := range points {
		if p.Vol <= 0 {
			return nil, &DataError{Source: path, Reason: "non-positive vol for " + p.Date}
		}
		vols[p.Date] = p.Vol
	}
	return vols, nil
}

// RealizedVol annualizes the standard deviation of close-to-close log
// returns over the trailing window bars. barsPerDay scales intraday
// sampling up to a 252-session year.
func RealizedVol(bars []*models.Bar, window, barsPerDay int) float64 {
	if len(bars) < 3 {
		return 0
	}
	if window > 0 && len(bars) > window+1 {
		bars = bars[len(bars)-window-1:]
	}
	rets := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close <= 0 || bars[i].Close <= 0 {
			continue
		}
		rets = append(rets, math.Log(bars[i].Close/bars[i-1].Close))
	}
	if len(rets) < 2 {
		return 0
	}
	if barsPerDay <= 0 {
		barsPerDay = 1
	}
	return stat.StdDev(rets, nil) * math.Sqrt(float64(barsPerDay)*252)
}
