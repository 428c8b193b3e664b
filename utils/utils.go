package utils

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/structs"

	"github.com/raftroch1/0dte-sub000/models"
)

// ConstrainFloat limits a float to min, max, and decimal places.
func ConstrainFloat(x float64, min float64, max float64, decimals int) float64 {
	return ToFixed(math.Max(min, math.Min(x, max)), decimals)
}

// GetOHLCV breaks bars into parallel open, high, low, close, volume slices
// that are easier to feed to indicator functions.
func GetOHLCV(bars []*models.Bar) (ohlcv models.OHLCV) {
	ohlcv = models.OHLCV{
		Timestamp: make([]int64, len(bars)),
		Open:      make([]float64, len(bars)),
		High:      make([]float64, len(bars)),
		Low:       make([]float64, len(bars)),
		Close:     make([]float64, len(bars)),
		Volume:    make([]float64, len(bars)),
	}
	for i := range bars {
		ohlcv.Timestamp[i] = bars[i].Timestamp
		ohlcv.Open[i] = bars[i].Open
		ohlcv.High[i] = bars[i].High
		ohlcv.Low[i] = bars[i].Low
		ohlcv.Close[i] = bars[i].Close
		ohlcv.Volume[i] = bars[i].Volume
	}
	return
}

// TimestampToTime converts unix milliseconds to UTC.
func TimestampToTime(timestamp int64) time.Time {
	return time.UnixMilli(timestamp).UTC()
}

// TimeToTimestamp converts a time to unix milliseconds.
func TimeToTimestamp(timeObject time.Time) int64 {
	return timeObject.UnixMilli()
}

// Round rounds a number to the nearest multiple of interval, e.g.
// Round(3.347, 0.01) == 3.35.
func Round(x, interval float64) float64 {
	return math.Round(x/interval) * interval
}

// RoundToNearest rounds num to the nearest multiple of interval.
func RoundToNearest(num float64, interval float64) float64 {
	return math.Round(num/interval) * interval
}

// Arange returns every value from min to max inclusive, stepping by step.
func Arange(min float64, max float64, step float64) []float64 {
	a := make([]float64, int((max-min)/step)+1)
	for i := range a {
		a[i] = min + (float64(i) * step)
	}
	return a
}

// CalculateDifference gets the percentage difference between two numbers.
func CalculateDifference(x float64, y float64) float64 {
	if y == 0 {
		y = 1
	}
	return (x - y) / y
}

// SumArr gets the sum of all elements in a slice.
func SumArr(arr []float64) float64 {
	sum := 0.0
	for i := range arr {
		sum = sum + arr[i]
	}
	return sum
}

func round(num float64) int {
	return int(num + math.Copysign(0.5, num))
}

// ToFixed truncates a float to the given number of decimal places.
func ToFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(round(num*output)) / output
}

// AdjustForSlippage moves a price against the taker: buys pay up, sells
// receive less.
func AdjustForSlippage(price float64, side models.OrderSide, slippage float64) float64 {
	if side == models.Buy {
		return price * (1. + slippage)
	}
	return price * (1. - slippage)
}

// OptionSymbol builds an OCC-style contract symbol, e.g.
// "SPY250821C00450000": root, yymmdd expiry, C/P, strike in mills.
func OptionSymbol(underlying string, expiry time.Time, optionType models.OptionType, strike float64) string {
	side := "C"
	if optionType == models.Put {
		side = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", underlying, expiry.UTC().Format("060102"), side, int(math.Round(strike*1000)))
}

// DayStart returns midnight UTC of the day containing t.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CloseOfDay returns the market close for the day containing t, where
// closeMinute is minutes after midnight UTC.
func CloseOfDay(t time.Time, closeMinute int) time.Time {
	return DayStart(t).Add(time.Duration(closeMinute) * time.Minute)
}

// CreateKeyValuePairs makes a string interface human readable. With
// ignoreLowerCase set, unexported-looking keys are skipped.
func CreateKeyValuePairs(m map[string]interface{}, ignoreLowerCase bool, oldBytes ...*bytes.Buffer) string {
	var b *bytes.Buffer
	if len(oldBytes) > 0 {
		b = oldBytes[0]
	} else {
		b = new(bytes.Buffer)
	}
	fmt.Fprint(b, "\n{\n")
	for key, value := range m {
		firstLetter := string(key[0])
		upperCaseFirstLetter := strings.ToUpper(firstLetter)
		if !ignoreLowerCase || upperCaseFirstLetter == firstLetter {
			rv := reflect.ValueOf(value)
			if rv.Kind() == reflect.Struct {
				fmt.Fprint(b, " ", key, ": ")
				CreateKeyValuePairs(structs.Map(value), ignoreLowerCase, b)
			} else {
				fmt.Fprint(b, " ", key, ": ", value, ",\n")
			}
		}
	}
	fmt.Fprint(b, "}\n")
	return b.String()
}
