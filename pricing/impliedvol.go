package pricing

import (
	"fmt"
	"math"
)

// IVResult is the outcome of an implied volatility solve. Vol is always a
// usable estimate, even when Converged is false.
type IVResult struct {
	Vol        float64
	Iterations int
	Converged  bool
}

// ConvergenceError reports a solve that exhausted its iteration budget.
// The accompanying IVResult still carries the best estimate.
type ConvergenceError struct {
	Iterations int
	LastVol    float64
	PriceDiff  float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("implied vol did not converge after %d iterations (vol %.6f, price diff %.2e)",
		e.Iterations, e.LastVol, e.PriceDiff)
}

// ImpliedVol solves for the volatility that reprices the contract at
// marketPrice, using Newton-Raphson with vega as the derivative. The
// estimate is clamped to [MinVol, MaxVol] every step. in.Volatility is
// ignored; the initial guess is the Brenner-Subrahmanyam approximation.
func (e *Engine) ImpliedVol(marketPrice float64, in Inputs) (IVResult, error) {
	if marketPrice <= 0 {
		return IVResult{}, &ValidationError{Field: "marketPrice", Value: marketPrice}
	}
	if in.TTE <= 0 {
		return IVResult{}, &ValidationError{Field: "tte", Value: in.TTE}
	}
	probe := in
	probe.Volatility = 1 // validate the remaining fields only
	if err := validate(probe); err != nil {
		return IVResult{}, err
	}

	clamp := func(v float64) float64 {
		return math.Max(e.MinVol, math.Min(v, e.MaxVol))
	}

	v := clamp(math.Sqrt(2*math.Pi/in.TTE) * marketPrice / in.Underlying)
	diff := math.MaxFloat64
	for i := 0; i < e.MaxIterations; i++ {
		trial := in
		trial.Volatility = v
		q, err := e.Quote(trial)
		if err != nil {
			return IVResult{Vol: v, Iterations: i}, err
		}
		diff = q.Price - marketPrice
		if math.Abs(diff) < e.Tolerance {
			return IVResult{Vol: v, Iterations: i, Converged: true}, nil
		}
		vega := q.Greeks.Vega
		if vega < 1e-14 {
			// flat price surface, Newton step would explode
			return IVResult{Vol: v, Iterations: i}, &ConvergenceError{Iterations: i, LastVol: v, PriceDiff: diff}
		}
		v = clamp(v - diff/vega)
	}
	return IVResult{Vol: v, Iterations: e.MaxIterations},
		&ConvergenceError{Iterations: e.MaxIterations, LastVol: v, PriceDiff: diff}
}
