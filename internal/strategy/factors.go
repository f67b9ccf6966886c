package strategy

import (
	"fmt"
	"math"

	"HKQuant/internal/model"
)

// band maps a value to the score of the first threshold it does not exceed.
type band struct {
	max   float64
	score float64
}

func scoreBands(v float64, bands []band, above float64) float64 {
	for _, b := range bands {
		if v <= b.max {
			return b.score
		}
	}
	return above
}

func factor(name string, raw, weight float64, commentary string) model.FactorScore {
	return model.FactorScore{
		Name:       name,
		RawScore:   raw,
		Weight:     weight,
		Weighted:   raw * weight,
		Commentary: commentary,
	}
}

var deviationBands = []band{
	{-20, 2.0}, {-10, 1.5}, {-5, 1.0}, {0, 0.5}, {5, 0}, {10, -0.5}, {15, -1.0}, {20, -1.5},
}

var rsiBands = []band{
	{25, 2.0}, {30, 1.5}, {40, 1.0}, {45, 0.5}, {55, 0}, {60, -0.5}, {70, -1.0}, {80, -1.5},
}

var positionBands = []band{
	{10, 2.0}, {20, 1.5}, {30, 1.0}, {40, 0.5}, {60, 0}, {70, -0.5}, {80, -1.0}, {95, -1.5},
}

// scoreMA200Deviation scores the percentage distance of price from MA200.
// Weight: 0.35
func scoreMA200Deviation(ind *model.MarketIndicators) model.FactorScore {
	if ind.MA200 == 0 {
		return factor("MA200 deviation", 0, 0.35, "MA200 unavailable")
	}
	deviation := (ind.CurrentPrice - ind.MA200) / ind.MA200 * 100
	return factor("MA200 deviation", scoreBands(deviation, deviationBands, -2.0), 0.35,
		fmt.Sprintf("%+.1f%%", deviation))
}

func scoreRSI(name string, rsi, weight float64) model.FactorScore {
	return factor(name, scoreBands(rsi, rsiBands, -2.0), weight, fmt.Sprintf("RSI=%.0f", rsi))
}

// score52WeekPosition scores where price sits in its 52-week range.
// Weight: 0.10
// Above 95% the score is -2 only when the other factors average below -1,
// otherwise it is capped at -1.
func score52WeekPosition(ind *model.MarketIndicators, othersAvg float64) model.FactorScore {
	pos := ind.Position52w * 100
	above := -1.0
	if othersAvg < -1 {
		above = -2.0
	}
	return factor("52w position", scoreBands(pos, positionBands, above), 0.10,
		fmt.Sprintf("%.0f%% of range", pos))
}

// scoreTrend scores moving-average alignment and proximity to 30-day extremes.
// Weight: 0.15
func scoreTrend(ind *model.MarketIndicators) model.FactorScore {
	bullish := ind.CurrentPrice > ind.MA20w && ind.MA20w > ind.MA50w
	bearish := ind.CurrentPrice < ind.MA20w && ind.MA20w < ind.MA50w
	nearHigh := ind.High30d > 0 && math.Abs(ind.CurrentPrice-ind.High30d)/ind.High30d < 0.01
	nearLow := ind.Low30d > 0 && math.Abs(ind.CurrentPrice-ind.Low30d)/ind.Low30d < 0.01

	switch {
	case bullish && nearHigh:
		return factor("Trend", 1.5, 0.15, "bull alignment at 30d high")
	case bullish:
		return factor("Trend", 1.0, 0.15, "bull alignment")
	case bearish && nearLow:
		return factor("Trend", -1.0, 0.15, "bear alignment at 30d low")
	case bearish:
		return factor("Trend", -0.5, 0.15, "bear alignment")
	default:
		return factor("Trend", 0, 0.15, "range-bound")
	}
}
