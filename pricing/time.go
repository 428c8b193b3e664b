package pricing

// Calendar-time constants on a 365-day year, matching how contract expiry
// timestamps are converted throughout the engine.
const (
	DaysPerYear    = 365.0
	HoursPerYear   = DaysPerYear * 24
	MinutesPerYear = HoursPerYear * 60
)

// MinutesToYears converts minutes of calendar time to years.
func MinutesToYears(minutes float64) float64 {
	return minutes / MinutesPerYear
}

// HoursToYears converts hours of calendar time to years.
func HoursToYears(hours float64) float64 {
	return hours / HoursPerYear
}

// DaysToYears converts days of calendar time to years.
func DaysToYears(days float64) float64 {
	return days / DaysPerYear
}
