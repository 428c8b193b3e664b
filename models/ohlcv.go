package models

// OHLCV holds bar data as parallel slices, the layout the technical
// indicator functions consume.
type OHLCV struct {
	Timestamp []int64
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

// Len returns the number of samples.
func (o *OHLCV) Len() int {
	return len(o.Close)
}
