package optimizer

import "HKQuant/internal/backtest"

// OptimizeRSI sweeps RSI period and buy/sell thresholds with buy < sell.
func OptimizeRSI(closes []float64, periods Range, buy, sell FloatRange, riskFree float64) (*Report, error) {
	periodValues, err := periods.Values()
	if err != nil {
		return nil, err
	}
	buyValues, err := buy.Values()
	if err != nil {
		return nil, err
	}
	sellValues, err := sell.Values()
	if err != nil {
		return nil, err
	}

	report := &Report{Strategy: "rsi_threshold"}
	for _, p := range periodValues {
		for _, b := range buyValues {
			for _, s := range sellValues {
				if b >= s {
					continue
				}
				params := Params{Period: p, Buy: b, Sell: s}
				if len(closes) < p+2 {
					report.consider(insufficient(params))
					continue
				}
				signal := backtest.RSISignal(closes, p, b, s)
				report.consider(evaluate(closes, signal, params, riskFree))
			}
		}
	}
	if len(report.Candidates) == 0 {
		return nil, ErrInvalidRange
	}
	return report, nil
}
