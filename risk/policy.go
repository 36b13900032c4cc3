package risk

// Policy holds the tunables for sizing, exit levels and the execution gate.
type Policy struct {
	// Sizing
	RiskPercent float64 // fraction of available balance committed per AI trade, 0.02

	// Exit levels
	RiskReward       float64 // TP distance as a multiple of SL distance, 1.5
	FixedRiskPercent float64 // SL distance as a fraction of entry for tick-based levels, 0.01
	ATRStopMult      float64 // 1.5
	ATRTakeMult      float64 // 2.25
	DefaultTickSize  float64 // 0.0001

	// Gate
	MinConfidence  float64 // 0.7
	MaxOpenOrders  int     // 3
	MinBalance     float64 // 1
	VolatilityVeto float64 // reject when ATR > price*VolatilityVeto, 0.04
}

const (
	DefaultRiskPercent      = 0.02
	DefaultRiskReward       = 1.5
	DefaultFixedRiskPercent = 0.01
	DefaultATRStopMult      = 1.5
	DefaultATRTakeMult      = 2.25
	DefaultTickSize         = 0.0001
	MinConfidence           = 0.7
	MaxOpenOrders           = 3
	MinBalance              = 1.0
	VolatilityVeto          = 0.04
)

// DefaultPolicy returns the canonical policy set.
func DefaultPolicy() Policy {
	return Policy{
		RiskPercent:      DefaultRiskPercent,
		RiskReward:       DefaultRiskReward,
		FixedRiskPercent: DefaultFixedRiskPercent,
		ATRStopMult:      DefaultATRStopMult,
		ATRTakeMult:      DefaultATRTakeMult,
		DefaultTickSize:  DefaultTickSize,
		MinConfidence:    MinConfidence,
		MaxOpenOrders:    MaxOpenOrders,
		MinBalance:       MinBalance,
		VolatilityVeto:   VolatilityVeto,
	}
}

// withDefaults fills zero fields so a partially configured Policy still
// behaves sanely.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.RiskPercent <= 0 {
		p.RiskPercent = d.RiskPercent
	}
	if p.RiskReward <= 0 {
		p.RiskReward = d.RiskReward
	}
	if p.FixedRiskPercent <= 0 {
		p.FixedRiskPercent = d.FixedRiskPercent
	}
	if p.ATRStopMult <= 0 {
		p.ATRStopMult = d.ATRStopMult
	}
	if p.ATRTakeMult <= 0 {
		p.ATRTakeMult = d.ATRTakeMult
	}
	if p.DefaultTickSize <= 0 {
		p.DefaultTickSize = d.DefaultTickSize
	}
	if p.MinConfidence <= 0 {
		p.MinConfidence = d.MinConfidence
	}
	if p.MaxOpenOrders <= 0 {
		p.MaxOpenOrders = d.MaxOpenOrders
	}
	if p.MinBalance <= 0 {
		p.MinBalance = d.MinBalance
	}
	if p.VolatilityVeto <= 0 {
		p.VolatilityVeto = d.VolatilityVeto
	}
	return p
}
