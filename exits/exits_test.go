package exits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/raftroch1/0dte-sub000/models"
)

var (
	opened = time.Date(2025, 8, 21, 14, 30, 0, 0, time.UTC)
	sessionClose = time.Date(2025, 8, 21, 20, 0, 0, 0, time.UTC)
)

func openPosition(unrealized float64) *models.Position {
	return &models.Position{
		ID:         "p1",
		Underlying: "SPY",
		Legs: []models.PositionLeg{
			{Symbol: "C450", Strike: 450, Expiry: sessionClose.UnixMilli(), Type: models.Call, Quantity: 1},
		},
		Quantity:      1,
		RiskBasis:     100,
		UnrealizedPnL: unrealized,
		Status:        models.PositionOpen,
		OpenedAt:      opened,
	}
}

func tickAt(now time.Time) Tick {
	return Tick{Now: now, Close: sessionClose}
}

func TestCircuitBreakerBeatsStopLoss(t *testing.T) {
	m := NewMachine(Config{StopLossPct: 0.5})

	// both thresholds crossed at once: the breaker must win
	pos := openPosition(-80)
	assert.Equal(t, models.ReasonCircuitBreaker, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))

	// only the stop crossed
	pos = openPosition(-60)
	assert.Equal(t, models.ReasonStopLoss, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
}

func TestExactCircuitBreakerBoundary(t *testing.T) {
	m := NewMachine(Config{})
	pos := openPosition(-75)
	assert.Equal(t, models.ReasonCircuitBreaker, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))

	pos = openPosition(-74.99)
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
}

func TestTakeProfit(t *testing.T) {
	m := NewMachine(Config{TakeProfitPct: 1.0})
	pos := openPosition(100)
	assert.Equal(t, models.ReasonTakeProfit, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))

	pos = openPosition(99)
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
}

func TestPositionOverridesBeatDefaults(t *testing.T) {
	m := NewMachine(Config{StopLossPct: 0.5, TakeProfitPct: 1.0})

	pos := openPosition(-30)
	pos.StopLossPct = 0.25
	assert.Equal(t, models.ReasonStopLoss, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))

	pos = openPosition(60)
	pos.TakeProfitPct = 0.5
	assert.Equal(t, models.ReasonTakeProfit, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
}

func TestTakeProfitBeatsTimeDecay(t *testing.T) {
	m := NewMachine(Config{TakeProfitPct: 1.0, MinutesBeforeClose: 45})
	pos := openPosition(150)
	// inside the flatten window and above target: priority picks the target
	assert.Equal(t, models.ReasonTakeProfit, m.Evaluate(pos, tickAt(sessionClose.Add(-30*time.Minute))))
}

func TestTimeDecayBeforeClose(t *testing.T) {
	m := NewMachine(Config{MinutesBeforeClose: 45})

	pos := openPosition(0)
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(sessionClose.Add(-46*time.Minute))))
	assert.Equal(t, models.ReasonTimeDecay, m.Evaluate(pos, tickAt(sessionClose.Add(-45*time.Minute))))
	assert.Equal(t, models.ReasonTimeDecay, m.Evaluate(pos, tickAt(sessionClose.Add(-10*time.Minute))))
}

func TestMaxHoldingClosesExactlyOnTheBoundary(t *testing.T) {
	m := NewMachine(Config{MaxHoldMinutes: 240})

	pos := openPosition(0)
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(opened.Add(239*time.Minute))))
	assert.Equal(t, models.ReasonTimeDecay, m.Evaluate(pos, tickAt(opened.Add(240*time.Minute))))
}

func TestPerPositionMaxHold(t *testing.T) {
	m := NewMachine(Config{MaxHoldMinutes: 240})
	pos := openPosition(0)
	pos.MaxHoldMinutes = 60
	assert.Equal(t, models.ReasonTimeDecay, m.Evaluate(pos, tickAt(opened.Add(60*time.Minute))))
}

func TestForcedEndOfDay(t *testing.T) {
	m := NewMachine(Config{})

	pos := openPosition(0)
	tick := tickAt(sessionClose.Add(-5 * time.Minute))
	tick.LastBar = true
	assert.Equal(t, models.ReasonEndOfDay, m.Evaluate(pos, tick))

	// past the leg expiry without the last-bar flag
	assert.Equal(t, models.ReasonEndOfDay, m.Evaluate(pos, tickAt(sessionClose)))
}

func TestNoMatchLeavesOpen(t *testing.T) {
	m := NewMachine(Config{StopLossPct: 0.5, TakeProfitPct: 1.0, MaxHoldMinutes: 240, MinutesBeforeClose: 45})
	pos := openPosition(10)
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
	assert.Equal(t, models.PositionOpen, pos.Status)
}

func TestClosedPositionIsIgnored(t *testing.T) {
	m := NewMachine(Config{})
	pos := openPosition(-1000)
	pos.Status = models.PositionClosed
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
}

func TestZeroRiskBasisStillFlattensAtClose(t *testing.T) {
	m := NewMachine(Config{MinutesBeforeClose: 45})
	pos := openPosition(-50)
	pos.RiskBasis = 0
	assert.Equal(t, models.ReasonNone, m.Evaluate(pos, tickAt(opened.Add(time.Hour))))
	assert.Equal(t, models.ReasonTimeDecay, m.Evaluate(pos, tickAt(sessionClose.Add(-45*time.Minute))))
}
