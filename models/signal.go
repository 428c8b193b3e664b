package models

type SignalAction int

const (
	BuyCall SignalAction = iota
	BuyPut
	MultiLeg
)

var signalActions = [...]string{
	"buy call",
	"buy put",
	"multi leg",
}

func (a SignalAction) String() string {
	if a < BuyCall || a > MultiLeg {
		return "unknown"
	}
	return signalActions[a]
}

// LegSpec describes one leg of a composite signal by strike rather than
// symbol; the driver resolves it against the day's chain.
type LegSpec struct {
	Type   OptionType
	Side   OrderSide
	Strike float64
	Ratio  int
}

// Signal is a single trade intent produced by an external source. It is
// consumed once by the driver: sized, validated, and routed to execution,
// or dropped with a logged reason.
type Signal struct {
	Action        SignalAction
	Confidence    float64 // 0..100
	Strike        float64 // target strike for single-leg actions
	Expiry        int64   // unix ms; 0 means the chain's same-day expiry
	SizeFraction  float64 // fraction of current equity to commit
	StopLossPct   float64 // fraction of risk basis, 0 uses the engine default
	TakeProfitPct float64
	Legs          []LegSpec // MultiLeg only
	Note          string    // free-form tag from the source, logged with fills
}
