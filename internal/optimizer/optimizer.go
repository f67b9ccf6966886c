// Package optimizer sweeps strategy parameters over a price series and ranks
// each combination by its annualized Sharpe ratio.
package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"HKQuant/internal/backtest"
)

// ErrInvalidRange is returned for empty or non-advancing parameter ranges.
var ErrInvalidRange = errors.New("invalid parameter range")

// Range is an inclusive integer sweep Start, Start+Step, ... <= End.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
	Step  int `json:"step" yaml:"step"`
}

// Values expands the range.
func (r Range) Values() ([]int, error) {
	if r.Start <= 0 || r.End < r.Start || r.Step <= 0 {
		return nil, fmt.Errorf("%w: start=%d end=%d step=%d", ErrInvalidRange, r.Start, r.End, r.Step)
	}
	var out []int
	for v := r.Start; v <= r.End; v += r.Step {
		out = append(out, v)
	}
	return out, nil
}

// FloatRange is an inclusive float sweep used for RSI thresholds.
type FloatRange struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Step  float64 `json:"step" yaml:"step"`
}

// Values expands the range. A small epsilon keeps End reachable despite
// accumulated float error.
func (r FloatRange) Values() ([]float64, error) {
	if r.End < r.Start || r.Step <= 0 {
		return nil, fmt.Errorf("%w: start=%g end=%g step=%g", ErrInvalidRange, r.Start, r.End, r.Step)
	}
	var out []float64
	n := int(math.Floor((r.End-r.Start)/r.Step + 1e-9))
	for i := 0; i <= n; i++ {
		out = append(out, r.Start+float64(i)*r.Step)
	}
	return out, nil
}

// Params identifies one parameter combination. Unused fields are zero.
type Params struct {
	Period int     `json:"period,omitempty"`
	Fast   int     `json:"fast,omitempty"`
	Slow   int     `json:"slow,omitempty"`
	Buy    float64 `json:"buy,omitempty"`
	Sell   float64 `json:"sell,omitempty"`
}

func (p Params) String() string {
	switch {
	case p.Fast > 0:
		return fmt.Sprintf("fast=%d slow=%d", p.Fast, p.Slow)
	case p.Buy > 0 || p.Sell > 0:
		return fmt.Sprintf("period=%d buy=%.0f sell=%.0f", p.Period, p.Buy, p.Sell)
	default:
		return fmt.Sprintf("period=%d", p.Period)
	}
}

// Candidate is the evaluation of one parameter combination.
type Candidate struct {
	Params       Params  `json:"params"`
	Sharpe       float64 `json:"sharpe"`
	TotalReturn  float64 `json:"total_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Trades       int     `json:"trades"`
	Insufficient bool    `json:"insufficient,omitempty"`
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	type plain Candidate
	return json.Marshal(struct {
		plain
		Sharpe *float64 `json:"sharpe"`
	}{plain(c), backtest.Finite(c.Sharpe)})
}

// Report is the outcome of a sweep. Candidates keep evaluation order.
type Report struct {
	Strategy   string      `json:"strategy"`
	Best       Candidate   `json:"best"`
	Found      bool        `json:"found"`
	Candidates []Candidate `json:"candidates"`
}

// Top returns up to n candidates ordered by Sharpe, best first. Equal
// Sharpe ratios keep evaluation order.
func (r *Report) Top(n int) []Candidate {
	sorted := make([]Candidate, len(r.Candidates))
	copy(sorted, r.Candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sharpe > sorted[j].Sharpe })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// consider records c and promotes it to Best when its Sharpe is strictly
// higher, so the earliest candidate wins ties.
func (r *Report) consider(c Candidate) {
	r.Candidates = append(r.Candidates, c)
	if len(r.Candidates) == 1 || c.Sharpe > r.Best.Sharpe {
		r.Best = c
	}
	if !math.IsInf(c.Sharpe, -1) {
		r.Found = true
	}
}

func evaluate(closes, signal []float64, p Params, rf float64) Candidate {
	rets := backtest.StrategyReturns(closes, signal)
	c := Candidate{
		Params:      p,
		Sharpe:      backtest.Sharpe(rets, rf),
		TotalReturn: backtest.CumulativeReturn(rets),
		MaxDrawdown: backtest.MaxDrawdown(rets),
	}
	prev := 0.0
	for _, s := range signal[:len(rets)] {
		if s != prev {
			c.Trades++
			prev = s
		}
	}
	return c
}

func insufficient(p Params) Candidate {
	return Candidate{Params: p, Sharpe: math.Inf(-1), Insufficient: true}
}
