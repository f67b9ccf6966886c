package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDays is the annualization factor for daily returns.
const TradingDays = 252

// Sharpe returns the annualized Sharpe ratio of periodic returns:
// mean(r - rf/252) / std(r - rf/252) * sqrt(252), with the sample standard
// deviation. Fewer than two returns or zero volatility yield -Inf.
func Sharpe(returns []float64, riskFreeAnnual float64) float64 {
	if len(returns) < 2 {
		return math.Inf(-1)
	}
	rfPeriod := riskFreeAnnual / TradingDays
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rfPeriod
	}
	mean, std := stat.MeanStdDev(excess, nil)
	if std == 0 || math.IsNaN(std) {
		return math.Inf(-1)
	}
	return mean / std * math.Sqrt(TradingDays)
}

// Sortino is Sharpe with downside deviation in the denominator.
func Sortino(returns []float64, riskFreeAnnual float64) float64 {
	if len(returns) < 2 {
		return math.Inf(-1)
	}
	rfPeriod := riskFreeAnnual / TradingDays
	var sum, downside float64
	for _, r := range returns {
		ex := r - rfPeriod
		sum += ex
		if ex < 0 {
			downside += ex * ex
		}
	}
	if downside == 0 {
		return math.Inf(-1)
	}
	mean := sum / float64(len(returns))
	dd := math.Sqrt(downside / float64(len(returns)))
	return mean / dd * math.Sqrt(TradingDays)
}

// CumulativeReturn compounds periodic returns.
func CumulativeReturn(returns []float64) float64 {
	equity := 1.0
	for _, r := range returns {
		equity *= 1 + r
	}
	return equity - 1
}

// AnnualizedReturn geometrically annualizes periodic returns.
func AnnualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	growth := 1 + CumulativeReturn(returns)
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, TradingDays/float64(len(returns))) - 1
}

// AnnualizedVolatility is the sample standard deviation scaled by sqrt(252).
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(TradingDays)
}

// MaxDrawdown returns the largest peak-to-trough decline of the compounded
// equity curve as a positive fraction.
func MaxDrawdown(returns []float64) float64 {
	equity, peak, maxDD := 1.0, 1.0, 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
