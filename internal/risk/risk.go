// Package risk computes portfolio-style risk statistics for a single price
// series, optionally against a benchmark such as the Hang Seng Index.
package risk

import (
	"encoding/json"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"HKQuant/internal/backtest"
	"HKQuant/internal/calculator"
)

// ErrTooShort is returned when fewer than 3 closes are supplied.
var ErrTooShort = errors.New("risk analysis needs at least 3 closes")

// Confidence is the VaR/CVaR confidence level.
const Confidence = 0.95

// Report is a risk summary of daily closes.
type Report struct {
	Observations   int     `json:"observations"`
	AnnualReturn   float64 `json:"annual_return"`
	AnnualVol      float64 `json:"annual_volatility"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	HistoricalVaR  float64 `json:"historical_var_95"`
	HistoricalCVaR float64 `json:"historical_cvar_95"`
	ParametricVaR  float64 `json:"parametric_var_95"`
	Beta           float64 `json:"beta,omitempty"`
	Correlation    float64 `json:"correlation,omitempty"`
	HasBenchmark   bool    `json:"has_benchmark"`
}

func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		Sharpe  *float64 `json:"sharpe"`
		Sortino *float64 `json:"sortino"`
	}{plain(r), backtest.Finite(r.Sharpe), backtest.Finite(r.Sortino)})
}

// Analyze computes the risk report for closes. benchmark may be nil; when
// given it is aligned on the most recent common length.
func Analyze(closes, benchmark []float64, riskFree float64) (*Report, error) {
	if len(closes) < 3 {
		return nil, ErrTooShort
	}
	rets := calculator.Returns(closes)

	r := &Report{
		Observations: len(rets),
		AnnualReturn: backtest.AnnualizedReturn(rets),
		AnnualVol:    backtest.AnnualizedVolatility(rets),
		Sharpe:       backtest.Sharpe(rets, riskFree),
		Sortino:      backtest.Sortino(rets, riskFree),
		MaxDrawdown:  backtest.MaxDrawdown(rets),
	}
	r.HistoricalVaR, r.HistoricalCVaR = historicalVaR(rets, Confidence)
	r.ParametricVaR = parametricVaR(rets, Confidence)

	if len(benchmark) >= 3 {
		bench := calculator.Returns(benchmark)
		n := len(rets)
		if len(bench) < n {
			n = len(bench)
		}
		a, b := rets[len(rets)-n:], bench[len(bench)-n:]
		if n >= 2 {
			if v := stat.Variance(b, nil); v > 0 {
				r.Beta = stat.Covariance(a, b, nil) / v
				r.Correlation = stat.Correlation(a, b, nil)
				r.HasBenchmark = true
			}
		}
	}
	return r, nil
}

// historicalVaR returns the loss at the (1-confidence) quantile and the
// mean loss beyond it, both as positive fractions.
func historicalVaR(rets []float64, confidence float64) (varLoss, cvar float64) {
	sorted := make([]float64, len(rets))
	copy(sorted, rets)
	sort.Float64s(sorted)
	q := stat.Quantile(1-confidence, stat.Empirical, sorted, nil)

	var sum float64
	var n int
	for _, x := range sorted {
		if x > q {
			break
		}
		sum += x
		n++
	}
	varLoss = math.Max(0, -q)
	if n > 0 {
		cvar = math.Max(0, -sum/float64(n))
	}
	return varLoss, cvar
}

// parametricVaR assumes normally distributed returns.
func parametricVaR(rets []float64, confidence float64) float64 {
	mean, std := stat.MeanStdDev(rets, nil)
	if std == 0 || math.IsNaN(std) {
		return math.Max(0, -mean)
	}
	z := distuv.UnitNormal.Quantile(1 - confidence)
	return math.Max(0, -(mean + z*std))
}
