package strategy

import "HKQuant/internal/model"

// Tiers maps minimum total scores to a position stance, highest first.
// Multiplier scales a regular contribution.
var Tiers = []struct {
	MinScore float64
	Tier     model.InvestmentTier
}{
	{1.5, model.InvestmentTier{Label: "Strong Accumulate", Multiplier: 2.5}},
	{1.2, model.InvestmentTier{Label: "Accumulate", Multiplier: 2.0}},
	{0.8, model.InvestmentTier{Label: "Add", Multiplier: 1.5}},
	{0.0, model.InvestmentTier{Label: "Regular", Multiplier: 1.0}},
	{-0.8, model.InvestmentTier{Label: "Reduce", Multiplier: 0.5}},
	{-1.5, model.InvestmentTier{Label: "Lighten", Multiplier: 0.25}},
}

// DefaultTier is the lowest tier for scores below -1.5.
var DefaultTier = model.InvestmentTier{Label: "Minimal", Multiplier: 0.15}

// OverheatedRSI triggers the take-profit warning on either timeframe.
const OverheatedRSI = 85

func mapTier(totalScore float64) model.InvestmentTier {
	for _, t := range Tiers {
		if totalScore >= t.MinScore {
			return t.Tier
		}
	}
	return DefaultTier
}

// Evaluate computes the full trade signal from market indicators.
func Evaluate(ind *model.MarketIndicators) *model.TradeSignal {
	f1 := scoreMA200Deviation(ind)
	f2 := scoreRSI("Weekly RSI", ind.WeeklyRSI, 0.25)
	f3 := scoreRSI("Daily RSI", ind.DailyRSI, 0.15)
	f5 := scoreTrend(ind)

	// The 52-week factor only reaches its floor when the others agree.
	othersAvg := (f1.RawScore + f2.RawScore + f3.RawScore + f5.RawScore) / 4.0
	f4 := score52WeekPosition(ind, othersAvg)

	factors := []model.FactorScore{f1, f2, f3, f4, f5}
	total := 0.0
	for _, f := range factors {
		total += f.Weighted
	}

	signal := &model.TradeSignal{
		Factors:     factors,
		TotalScore:  total,
		Tier:        mapTier(total),
		TriggerType: model.TriggerDaily,
	}
	if ind.WeeklyRSI > OverheatedRSI || ind.DailyRSI > OverheatedRSI {
		signal.WarningMsg = "RSI above 85: consider taking partial profit"
	}
	return signal
}
