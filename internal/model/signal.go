package model

// TriggerType indicates what produced a signal.
type TriggerType string

const (
	TriggerDaily     TriggerType = "DAILY"
	TriggerWeekly    TriggerType = "WEEKLY"
	TriggerManual    TriggerType = "MANUAL"
	TriggerDashboard TriggerType = "DASHBOARD"
)

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"raw_score"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

// InvestmentTier maps a total score range to a position stance.
type InvestmentTier struct {
	Label      string  `json:"label"`
	Multiplier float64 `json:"multiplier"`
}

// TradeSignal is the output of the strategy engine.
type TradeSignal struct {
	Factors     []FactorScore  `json:"factors"`
	TotalScore  float64        `json:"total_score"`
	Tier        InvestmentTier `json:"tier"`
	TriggerType TriggerType    `json:"trigger_type"`
	WarningMsg  string         `json:"warning,omitempty"`
}
