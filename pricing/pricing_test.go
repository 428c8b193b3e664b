package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raftroch1/0dte-sub000/models"
)

func TestPutCallParity(t *testing.T) {
	e := NewEngine()
	underlyings := []float64{300, 450, 612.5}
	strikes := []float64{0.85, 0.95, 1.0, 1.05, 1.2}
	vols := []float64{0.1, 0.25, 0.6, 1.2}
	ttes := []float64{MinutesToYears(30), HoursToYears(4), DaysToYears(1), DaysToYears(30)}
	rates := []float64{0, 0.045}

	for _, s := range underlyings {
		for _, km := range strikes {
			for _, vol := range vols {
				for _, tte := range ttes {
					for _, r := range rates {
						k := s * km
						call, err := e.Quote(Inputs{Underlying: s, Strike: k, TTE: tte, Rate: r, Volatility: vol, Type: models.Call})
						require.NoError(t, err)
						put, err := e.Quote(Inputs{Underlying: s, Strike: k, TTE: tte, Rate: r, Volatility: vol, Type: models.Put})
						require.NoError(t, err)

						// C - P = S - K*exp(-rT)
						lhs := call.Price - put.Price
						rhs := s - k*math.Exp(-r*tte)
						assert.InDeltaf(t, rhs, lhs, 1e-9, "parity S=%v K=%v vol=%v tte=%v r=%v", s, k, vol, tte, r)
					}
				}
			}
		}
	}
}

func TestExpirationCollapsesToIntrinsic(t *testing.T) {
	e := NewEngine()
	cases := []struct {
		name       string
		underlying float64
		strike     float64
		typ        models.OptionType
		price      float64
		delta      float64
	}{
		{"itm call", 455, 450, models.Call, 5, 1},
		{"otm call", 445, 450, models.Call, 0, 0},
		{"atm call", 450, 450, models.Call, 0, 0},
		{"itm put", 445, 450, models.Put, 5, -1},
		{"otm put", 455, 450, models.Put, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := e.Quote(Inputs{Underlying: tc.underlying, Strike: tc.strike, TTE: 0, Volatility: 0.25, Type: tc.typ})
			require.NoError(t, err)
			assert.Equal(t, tc.price, q.Price)
			assert.Equal(t, tc.delta, q.Greeks.Delta)
			assert.Zero(t, q.Greeks.Gamma)
			assert.Zero(t, q.Greeks.Theta)
			assert.Zero(t, q.Greeks.Vega)
			assert.Zero(t, q.Greeks.Rho)
		})
	}
}

func TestShortExpiryConvergesToIntrinsic(t *testing.T) {
	e := NewEngine()
	in := Inputs{Underlying: 458, Strike: 450, Volatility: 0.25, Type: models.Call}
	intrinsic := 8.0

	in.TTE = MinutesToYears(1)
	q, err := e.Quote(in)
	require.NoError(t, err)
	assert.InDelta(t, intrinsic, q.Price, 0.01)
	assert.InDelta(t, 1.0, q.Greeks.Delta, 0.01)
}

// Reference scenario: underlying pinned at 450, at-the-money call,
// 25% volatility, 4 hours to expiry, zero rate and dividend.
// Closed form gives price 0.9590 and delta 0.5011.
func TestATMFourHourReferenceValues(t *testing.T) {
	e := NewEngine()
	q, err := e.Quote(Inputs{
		Underlying: 450,
		Strike:     450,
		TTE:        HoursToYears(4),
		Volatility: 0.25,
		Type:       models.Call,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.9590, q.Price, 0.002)
	assert.InDelta(t, 0.5011, q.Greeks.Delta, 0.001)
	assert.Negative(t, q.Greeks.Theta)
	assert.Positive(t, q.Greeks.Gamma)
	assert.Positive(t, q.Greeks.Vega)
}

func TestValidationErrors(t *testing.T) {
	e := NewEngine()
	base := Inputs{Underlying: 450, Strike: 450, TTE: HoursToYears(4), Volatility: 0.25, Type: models.Call}

	cases := []struct {
		name   string
		mutate func(*Inputs)
		field  string
	}{
		{"zero underlying", func(in *Inputs) { in.Underlying = 0 }, "underlying"},
		{"negative underlying", func(in *Inputs) { in.Underlying = -450 }, "underlying"},
		{"zero strike", func(in *Inputs) { in.Strike = 0 }, "strike"},
		{"zero vol", func(in *Inputs) { in.Volatility = 0 }, "volatility"},
		{"negative vol", func(in *Inputs) { in.Volatility = -0.2 }, "volatility"},
		{"negative tte", func(in *Inputs) { in.TTE = -0.001 }, "tte"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := e.Quote(in)
			require.Error(t, err)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestGreeksShape(t *testing.T) {
	e := NewEngine()
	in := Inputs{Underlying: 450, Strike: 450, TTE: HoursToYears(4), Volatility: 0.25}

	in.Type = models.Call
	call, err := e.Quote(in)
	require.NoError(t, err)
	in.Type = models.Put
	put, err := e.Quote(in)
	require.NoError(t, err)

	// call delta - put delta = exp(-qT) = 1 when q = 0
	assert.InDelta(t, 1.0, call.Greeks.Delta-put.Greeks.Delta, 1e-9)
	assert.InDelta(t, call.Greeks.Gamma, put.Greeks.Gamma, 1e-12)
	assert.InDelta(t, call.Greeks.Vega, put.Greeks.Vega, 1e-12)
	assert.Negative(t, call.Greeks.Theta)
	assert.Negative(t, put.Greeks.Theta)
}

func TestTimeConversions(t *testing.T) {
	assert.InDelta(t, 1.0, MinutesToYears(525600), 1e-12)
	assert.InDelta(t, 1.0, HoursToYears(8760), 1e-12)
	assert.InDelta(t, 1.0, DaysToYears(365), 1e-12)
	assert.InDelta(t, DaysToYears(1), HoursToYears(24), 1e-15)
	assert.InDelta(t, HoursToYears(1), MinutesToYears(60), 1e-15)
	assert.InDelta(t, 390.0/525600.0, MinutesToYears(390), 1e-15)
}
