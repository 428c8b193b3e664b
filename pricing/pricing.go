// Package pricing implements closed-form European option valuation: price,
// Greeks, and a Newton-Raphson implied volatility solver. Prices are quoted
// in underlying currency per share; time is expressed in years on a 365-day
// basis (see conversions in time.go).
package pricing

import (
	"fmt"
	"math"

	"github.com/chobie/go-gaussian"

	"github.com/raftroch1/0dte-sub000/models"
)

var norm = gaussian.NewGaussian(0, 1)

// Inputs are the pricing parameters for a single valuation.
type Inputs struct {
	Underlying float64 // spot price
	Strike     float64
	TTE        float64 // time to expiration in years
	Rate       float64 // annualized risk-free rate
	Dividend   float64 // annualized dividend yield
	Volatility float64 // annualized
	Type       models.OptionType
}

// Quote is the result of one valuation.
type Quote struct {
	Price  float64
	Greeks models.Greeks
}

// ValidationError reports a pricing input that makes valuation impossible.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pricing input: %s = %v", e.Field, e.Value)
}

// Engine prices options and solves implied volatility. The zero value is
// unusable; construct with NewEngine.
type Engine struct {
	MaxIterations int     // implied vol iteration budget
	Tolerance     float64 // absolute price tolerance for convergence
	MinVol        float64 // clamp floor for solver estimates
	MaxVol        float64 // clamp ceiling for solver estimates
}

// NewEngine returns an engine with the default solver settings.
func NewEngine() *Engine {
	return &Engine{
		MaxIterations: 100,
		Tolerance:     1e-8,
		MinVol:        0.01,
		MaxVol:        5.0,
	}
}

func validate(in Inputs) error {
	if in.Underlying <= 0 {
		return &ValidationError{Field: "underlying", Value: in.Underlying}
	}
	if in.Strike <= 0 {
		return &ValidationError{Field: "strike", Value: in.Strike}
	}
	if in.Volatility <= 0 {
		return &ValidationError{Field: "volatility", Value: in.Volatility}
	}
	if in.TTE < 0 {
		return &ValidationError{Field: "tte", Value: in.TTE}
	}
	if in.Type != models.Call && in.Type != models.Put {
		return &ValidationError{Field: "type", Value: float64(in.Type)}
	}
	return nil
}

// Intrinsic returns the exercise value at expiration.
func Intrinsic(underlying, strike float64, t models.OptionType) float64 {
	var v float64
	switch t {
	case models.Call:
		v = underlying - strike
	case models.Put:
		v = strike - underlying
	}
	return math.Max(v, 0)
}

// expiryQuote is the degenerate valuation at TTE == 0: intrinsic value,
// boundary delta, every other sensitivity zero.
func expiryQuote(in Inputs) Quote {
	q := Quote{Price: Intrinsic(in.Underlying, in.Strike, in.Type)}
	switch in.Type {
	case models.Call:
		if in.Underlying > in.Strike {
			q.Greeks.Delta = 1
		}
	case models.Put:
		if in.Underlying < in.Strike {
			q.Greeks.Delta = -1
		}
	}
	return q
}

// Quote computes the theoretical price and all Greeks in one pass.
func (e *Engine) Quote(in Inputs) (Quote, error) {
	if err := validate(in); err != nil {
		return Quote{}, err
	}
	if in.TTE == 0 {
		return expiryQuote(in), nil
	}

	sqrtT := math.Sqrt(in.TTE)
	d1 := (math.Log(in.Underlying/in.Strike) + (in.Rate-in.Dividend+0.5*in.Volatility*in.Volatility)*in.TTE) / (in.Volatility * sqrtT)
	d2 := d1 - in.Volatility*sqrtT
	divDisc := math.Exp(-in.Dividend * in.TTE)
	rateDisc := math.Exp(-in.Rate * in.TTE)
	nPrime := norm.Pdf(d1)

	var q Quote
	switch in.Type {
	case models.Call:
		q.Price = in.Underlying*divDisc*norm.Cdf(d1) - in.Strike*rateDisc*norm.Cdf(d2)
		q.Greeks.Delta = divDisc * norm.Cdf(d1)
		q.Greeks.Theta = -in.Underlying*divDisc*nPrime*in.Volatility/(2*sqrtT) -
			in.Rate*in.Strike*rateDisc*norm.Cdf(d2) +
			in.Dividend*in.Underlying*divDisc*norm.Cdf(d1)
		q.Greeks.Rho = in.Strike * in.TTE * rateDisc * norm.Cdf(d2)
	case models.Put:
		q.Price = in.Strike*rateDisc*norm.Cdf(-d2) - in.Underlying*divDisc*norm.Cdf(-d1)
		q.Greeks.Delta = divDisc * (norm.Cdf(d1) - 1)
		q.Greeks.Theta = -in.Underlying*divDisc*nPrime*in.Volatility/(2*sqrtT) +
			in.Rate*in.Strike*rateDisc*norm.Cdf(-d2) -
			in.Dividend*in.Underlying*divDisc*norm.Cdf(-d1)
		q.Greeks.Rho = -in.Strike * in.TTE * rateDisc * norm.Cdf(-d2)
	}
	q.Greeks.Gamma = divDisc * nPrime / (in.Underlying * in.Volatility * sqrtT)
	q.Greeks.Vega = in.Underlying * divDisc * nPrime * sqrtT
	return q, nil
}

// Price computes only the theoretical price.
func (e *Engine) Price(in Inputs) (float64, error) {
	q, err := e.Quote(in)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}
