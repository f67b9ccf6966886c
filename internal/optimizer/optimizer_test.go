package optimizer

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"HKQuant/internal/backtest"
)

// trendWithNoise produces a deterministic upward drift with a saw-tooth
// pullback every few days.
func trendWithNoise(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		switch i % 5 {
		case 3:
			price *= 0.985
		case 4:
			price *= 0.99
		default:
			price *= 1.012
		}
		closes[i] = price
	}
	return closes
}

func TestRangeValues(t *testing.T) {
	got, err := Range{Start: 5, End: 20, Step: 5}.Values()
	if err != nil {
		t.Fatal(err)
	}
	want := []int{5, 10, 15, 20}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}

	bad := []Range{{0, 10, 1}, {10, 5, 1}, {5, 10, 0}}
	for _, r := range bad {
		if _, err := r.Values(); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("%+v: expected ErrInvalidRange, got %v", r, err)
		}
	}
}

func TestFloatRangeValues(t *testing.T) {
	got, err := FloatRange{Start: 20, End: 30, Step: 2.5}.Values()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 || got[4] != 30 {
		t.Errorf("expected 5 values ending at 30, got %v", got)
	}
}

func TestOptimizeMA_MatchesDirectEvaluation(t *testing.T) {
	closes := trendWithNoise(200)
	report, err := OptimizeMA(closes, Range{Start: 5, End: 50, Step: 5}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Candidates) != 10 {
		t.Fatalf("expected 10 candidates, got %d", len(report.Candidates))
	}
	if !report.Found {
		t.Fatal("expected a finite Sharpe")
	}

	best := math.Inf(-1)
	bestPeriod := 0
	for p := 5; p <= 50; p += 5 {
		rets := backtest.StrategyReturns(closes, backtest.PriceVsMASignal(closes, p))
		if s := backtest.Sharpe(rets, 0); s > best {
			best, bestPeriod = s, p
		}
	}
	if report.Best.Params.Period != bestPeriod {
		t.Errorf("expected best period %d, got %d", bestPeriod, report.Best.Params.Period)
	}
	if math.Abs(report.Best.Sharpe-best) > 1e-12 {
		t.Errorf("expected Sharpe %f, got %f", best, report.Best.Sharpe)
	}
}

func TestOptimizeMA_InsufficientDataIsNegInf(t *testing.T) {
	closes := trendWithNoise(12)
	report, err := OptimizeMA(closes, Range{Start: 5, End: 20, Step: 5}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range report.Candidates {
		if c.Params.Period+2 > len(closes) {
			if !c.Insufficient || !math.IsInf(c.Sharpe, -1) {
				t.Errorf("period %d: expected -Inf for insufficient data, got %f", c.Params.Period, c.Sharpe)
			}
		}
	}
}

func TestOptimizeMA_AllInsufficient(t *testing.T) {
	report, err := OptimizeMA([]float64{1, 2, 3}, Range{Start: 5, End: 10, Step: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if report.Found {
		t.Error("expected Found=false")
	}
	if report.Best.Params.Period != 5 || !math.IsInf(report.Best.Sharpe, -1) {
		t.Errorf("expected first candidate with -Inf, got %+v", report.Best)
	}
}

func TestOptimizeMA_Deterministic(t *testing.T) {
	closes := trendWithNoise(150)
	a, _ := OptimizeMA(closes, Range{Start: 3, End: 40, Step: 1}, 0.02)
	b, _ := OptimizeMA(closes, Range{Start: 3, End: 40, Step: 1}, 0.02)
	if a.Best != b.Best {
		t.Errorf("expected identical results, got %+v vs %+v", a.Best, b.Best)
	}
}

func TestReportTop(t *testing.T) {
	r := &Report{}
	r.consider(Candidate{Params: Params{Period: 1}, Sharpe: 0.5})
	r.consider(Candidate{Params: Params{Period: 2}, Sharpe: 1.5})
	r.consider(Candidate{Params: Params{Period: 3}, Sharpe: 1.5})
	r.consider(Candidate{Params: Params{Period: 4}, Sharpe: math.Inf(-1)})

	if r.Best.Params.Period != 2 {
		t.Errorf("ties should keep the earliest candidate, got %d", r.Best.Params.Period)
	}
	top := r.Top(3)
	if len(top) != 3 || top[0].Params.Period != 2 || top[1].Params.Period != 3 || top[2].Params.Period != 1 {
		t.Errorf("unexpected order: %+v", top)
	}
	if len(r.Top(-1)) != 4 {
		t.Error("negative n should return all candidates")
	}
}

func TestOptimizeCrossover(t *testing.T) {
	closes := trendWithNoise(120)
	report, err := OptimizeCrossover(closes, Range{Start: 2, End: 10, Step: 2}, Range{Start: 10, End: 30, Step: 10}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range report.Candidates {
		if c.Params.Fast >= c.Params.Slow {
			t.Errorf("fast must be below slow: %+v", c.Params)
		}
	}
	if _, err := OptimizeCrossover(closes, Range{Start: 30, End: 40, Step: 10}, Range{Start: 10, End: 20, Step: 10}, 0); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange when no fast<slow pair exists, got %v", err)
	}
}

func TestOptimizeRSI(t *testing.T) {
	closes := trendWithNoise(120)
	report, err := OptimizeRSI(closes, Range{Start: 7, End: 14, Step: 7},
		FloatRange{Start: 20, End: 40, Step: 10}, FloatRange{Start: 60, End: 80, Step: 10}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Candidates) != 2*3*3 {
		t.Errorf("expected 18 candidates, got %d", len(report.Candidates))
	}
	if report.Strategy != "rsi_threshold" {
		t.Errorf("unexpected strategy %q", report.Strategy)
	}
}

func TestParamsString(t *testing.T) {
	tests := []struct {
		p    Params
		want string
	}{
		{Params{Period: 20}, "period=20"},
		{Params{Fast: 5, Slow: 20}, "fast=5 slow=20"},
		{Params{Period: 14, Buy: 30, Sell: 70}, "period=14 buy=30 sell=70"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestReportJSON_NonFiniteSharpeIsNull(t *testing.T) {
	report, err := OptimizeMA([]float64{1, 2, 3}, Range{Start: 5, End: 5, Step: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"sharpe":null`) {
		t.Errorf("expected null sharpe in %s", data)
	}
}
