package backtest

import (
	"math"

	"HKQuant/internal/calculator"
)

// PriceVsMASignal returns 1 (long) where the close is above its trailing
// period SMA and 0 (flat) elsewhere, including while the window fills.
func PriceVsMASignal(closes []float64, period int) []float64 {
	ma := calculator.SMASeries(closes, period)
	signal := make([]float64, len(closes))
	for i, c := range closes {
		if !math.IsNaN(ma[i]) && c > ma[i] {
			signal[i] = 1
		}
	}
	return signal
}

// CrossoverSignal returns 1 where the fast SMA is above the slow SMA.
func CrossoverSignal(closes []float64, fast, slow int) []float64 {
	fastMA := calculator.SMASeries(closes, fast)
	slowMA := calculator.SMASeries(closes, slow)
	signal := make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(fastMA[i]) || math.IsNaN(slowMA[i]) {
			continue
		}
		if fastMA[i] > slowMA[i] {
			signal[i] = 1
		}
	}
	return signal
}

// RSISignal enters a long position when RSI drops below buy and exits when
// it rises above sell. The position is held between the two events.
func RSISignal(closes []float64, period int, buy, sell float64) []float64 {
	rsi := calculator.RSISeries(closes, period)
	signal := make([]float64, len(closes))
	long := false
	for i, v := range rsi {
		if math.IsNaN(v) {
			continue
		}
		switch {
		case !long && v < buy:
			long = true
		case long && v > sell:
			long = false
		}
		if long {
			signal[i] = 1
		}
	}
	return signal
}

// StrategyReturns applies each period's signal to the following period's
// return: out[t] = signal[t] * (closes[t+1]/closes[t] - 1).
func StrategyReturns(closes, signal []float64) []float64 {
	rets := calculator.Returns(closes)
	out := make([]float64, len(rets))
	for t := range rets {
		if t < len(signal) {
			out[t] = signal[t] * rets[t]
		}
	}
	return out
}
