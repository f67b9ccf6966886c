package calculator

import "math"

// MACDResult holds aligned MACD line, signal line and histogram series.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the moving average convergence/divergence of closes.
// The usual parameters are 12, 26, 9.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return MACDResult{}, ErrInvalidPeriod
	}
	if fast >= slow {
		return MACDResult{}, errInvalidMACD
	}
	if len(closes) < slow+signal-1 {
		return MACDResult{}, ErrInsufficientData
	}

	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)
	line := nanSeries(len(closes))
	for i := slow - 1; i < len(closes); i++ {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal EMA runs over the defined part of the MACD line only.
	sig := nanSeries(len(closes))
	defined := EMASeries(line[slow-1:], signal)
	copy(sig[slow-1:], defined)

	hist := nanSeries(len(closes))
	for i := range closes {
		if !math.IsNaN(line[i]) && !math.IsNaN(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return MACDResult{Line: line, Signal: sig, Histogram: hist}, nil
}
