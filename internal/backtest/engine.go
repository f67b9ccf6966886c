package backtest

import (
	"encoding/json"
	"fmt"
	"math"
)

// Options configures a backtest run.
type Options struct {
	RiskFreeRate float64 // annual, e.g. 0.03
	// CostPerTrade is charged as a fraction of equity on every position change.
	CostPerTrade float64
}

// Result summarizes one backtest run.
type Result struct {
	Periods          int     `json:"periods"`
	Trades           int     `json:"trades"`
	Exposure         float64 `json:"exposure"`
	WinRate          float64 `json:"win_rate"`
	CumulativeReturn float64 `json:"cumulative_return"`
	AnnualReturn     float64 `json:"annual_return"`
	AnnualVol        float64 `json:"annual_volatility"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	BuyHoldReturn    float64 `json:"buy_hold_return"`

	Returns []float64 `json:"-"`
}

// Finite returns &v, or nil when v is infinite or NaN. JSON has no
// encoding for non-finite numbers, so such ratios are written as null.
func Finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Sharpe  *float64 `json:"sharpe"`
		Sortino *float64 `json:"sortino"`
	}{plain(r), Finite(r.Sharpe), Finite(r.Sortino)})
}

// Run evaluates a long/flat signal against closes.
func Run(closes, signal []float64, opts Options) (Result, error) {
	if len(closes) != len(signal) {
		return Result{}, fmt.Errorf("signal length %d does not match %d closes", len(signal), len(closes))
	}
	if len(closes) < 2 {
		return Result{}, fmt.Errorf("need at least 2 closes, got %d", len(closes))
	}

	rets := StrategyReturns(closes, signal)
	prev := 0.0
	var trades, wins, active int
	for t, r := range rets {
		if signal[t] != prev {
			trades++
			rets[t] -= opts.CostPerTrade
			prev = signal[t]
		}
		if signal[t] != 0 {
			active++
			if r > 0 {
				wins++
			}
		}
	}

	res := Result{
		Periods:          len(rets),
		Trades:           trades,
		Exposure:         float64(active) / float64(len(rets)),
		CumulativeReturn: CumulativeReturn(rets),
		AnnualReturn:     AnnualizedReturn(rets),
		AnnualVol:        AnnualizedVolatility(rets),
		Sharpe:           Sharpe(rets, opts.RiskFreeRate),
		Sortino:          Sortino(rets, opts.RiskFreeRate),
		MaxDrawdown:      MaxDrawdown(rets),
		BuyHoldReturn:    closes[len(closes)-1]/closes[0] - 1,
		Returns:          rets,
	}
	if active > 0 {
		res.WinRate = float64(wins) / float64(active)
	}
	return res, nil
}
