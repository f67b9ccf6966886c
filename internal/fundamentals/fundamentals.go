// Package fundamentals grades valuation snapshots.
package fundamentals

import (
	"fmt"

	"HKQuant/internal/model"
)

// Verdicts returned in Assessment.Verdict.
const (
	Undervalued = "UNDERVALUED"
	Fair        = "FAIR"
	Expensive   = "EXPENSIVE"
)

// Assessment is the factor breakdown of one valuation snapshot.
type Assessment struct {
	Symbol  string              `json:"symbol"`
	Factors []model.FactorScore `json:"factors"`
	Total   float64             `json:"total"`
	Verdict string              `json:"verdict"`
}

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

var peBands = []band{{8, 2}, {12, 1}, {18, 0}, {25, -1}}

var pbBands = []band{{0.8, 2}, {1.2, 1}, {2.5, 0}, {4, -1}}

// Yield bands run low to high, so scores rise.
var yieldBands = []band{{0, -1}, {0.02, -0.5}, {0.04, 0}, {0.06, 1}}

// Score grades f on trailing PE (weight 0.4), price to book (0.3) and
// dividend yield (0.3). Each raw score lies in [-2, 2].
func Score(f model.Fundamentals) Assessment {
	factors := []model.FactorScore{scorePE(f.TrailingPE), scorePB(f.PriceToBook), scoreYield(f.DividendYield)}
	var total float64
	for _, fs := range factors {
		total += fs.Weighted
	}
	verdict := Fair
	if total >= 1 {
		verdict = Undervalued
	} else if total <= -1 {
		verdict = Expensive
	}
	return Assessment{Symbol: f.Symbol, Factors: factors, Total: total, Verdict: verdict}
}

func scorePE(pe float64) model.FactorScore {
	fs := model.FactorScore{Name: "PE", Weight: 0.4}
	if pe <= 0 {
		fs.RawScore = -1
		fs.Commentary = "no trailing earnings"
	} else {
		fs.RawScore = scoreBands(pe, peBands, -2)
		fs.Commentary = fmt.Sprintf("PE=%.1f", pe)
	}
	fs.Weighted = fs.RawScore * fs.Weight
	return fs
}

func scorePB(pb float64) model.FactorScore {
	fs := model.FactorScore{Name: "PB", Weight: 0.3}
	if pb <= 0 {
		fs.Commentary = "book value unavailable"
	} else {
		fs.RawScore = scoreBands(pb, pbBands, -2)
		fs.Commentary = fmt.Sprintf("PB=%.2f", pb)
	}
	fs.Weighted = fs.RawScore * fs.Weight
	return fs
}

func scoreYield(y float64) model.FactorScore {
	fs := model.FactorScore{Name: "Dividend yield", Weight: 0.3}
	fs.RawScore = scoreBands(y, yieldBands, 2)
	fs.Commentary = fmt.Sprintf("yield=%.2f%%", y*100)
	fs.Weighted = fs.RawScore * fs.Weight
	return fs
}
