package calculator

import "math"

// Returns computes simple period returns: r[i] = closes[i+1]/closes[i] - 1.
// A zero previous close yields a zero return.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			out[i-1] = closes[i]/closes[i-1] - 1
		}
	}
	return out
}

// LogReturns computes ln(closes[i+1]/closes[i]). Non-positive prices yield 0.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 && closes[i] > 0 {
			out[i-1] = math.Log(closes[i] / closes[i-1])
		}
	}
	return out
}
