package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/raftroch1/0dte-sub000/models"
)

// VerticalSpec describes a debit vertical: long the near strike, short the
// far strike, same side.
func VerticalSpec(typ models.OptionType, longStrike, shortStrike float64) []models.LegSpec {
	return []models.LegSpec{
		{Type: typ, Side: models.Buy, Strike: longStrike, Ratio: 1},
		{Type: typ, Side: models.Sell, Strike: shortStrike, Ratio: 1},
	}
}

// StraddleSpec describes a long straddle at one strike.
func StraddleSpec(strike float64) []models.LegSpec {
	return []models.LegSpec{
		{Type: models.Call, Side: models.Buy, Strike: strike, Ratio: 1},
		{Type: models.Put, Side: models.Buy, Strike: strike, Ratio: 1},
	}
}

// BuildOrder resolves leg specs against the chain by nearest strike and
// assembles a composite market order. A spec that cannot be resolved
// rejects the whole order.
func BuildOrder(ch *models.Chain, specs []models.LegSpec, qty int, now time.Time) (models.Order, error) {
	legs := make([]models.OrderLeg, 0, len(specs))
	for _, spec := range specs {
		c := ch.Nearest(spec.Type, spec.Strike)
		if c == nil {
			return models.Order{}, &OrderRejectedError{
				Reason:    "missing contract",
				Symbol:    spec.Type.String(),
				Timestamp: now,
			}
		}
		ratio := spec.Ratio
		if ratio < 1 {
			ratio = 1
		}
		legs = append(legs, models.OrderLeg{Symbol: c.Symbol, Side: spec.Side, Ratio: ratio})
	}
	return models.Order{
		ID:          uuid.NewString(),
		Legs:        legs,
		Quantity:    qty,
		Type:        models.Market,
		SubmittedAt: now,
	}, nil
}
