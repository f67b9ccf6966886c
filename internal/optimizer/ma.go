package optimizer

import "HKQuant/internal/backtest"

// OptimizeMA sweeps the trailing SMA period of a price-versus-MA long/flat
// strategy. A period needs at least period+2 closes; shorter series score
// -Inf for that period.
func OptimizeMA(closes []float64, periods Range, riskFree float64) (*Report, error) {
	values, err := periods.Values()
	if err != nil {
		return nil, err
	}
	report := &Report{Strategy: "price_vs_ma"}
	for _, p := range values {
		params := Params{Period: p}
		if len(closes) < p+2 {
			report.consider(insufficient(params))
			continue
		}
		signal := backtest.PriceVsMASignal(closes, p)
		report.consider(evaluate(closes, signal, params, riskFree))
	}
	return report, nil
}

// OptimizeCrossover sweeps fast/slow SMA pairs with fast < slow.
func OptimizeCrossover(closes []float64, fast, slow Range, riskFree float64) (*Report, error) {
	fastValues, err := fast.Values()
	if err != nil {
		return nil, err
	}
	slowValues, err := slow.Values()
	if err != nil {
		return nil, err
	}
	report := &Report{Strategy: "ma_crossover"}
	for _, f := range fastValues {
		for _, s := range slowValues {
			if f >= s {
				continue
			}
			params := Params{Fast: f, Slow: s}
			if len(closes) < s+2 {
				report.consider(insufficient(params))
				continue
			}
			signal := backtest.CrossoverSignal(closes, f, s)
			report.consider(evaluate(closes, signal, params, riskFree))
		}
	}
	if len(report.Candidates) == 0 {
		return nil, ErrInvalidRange
	}
	return report, nil
}
