package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"HKQuant/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func barsFromCloses(closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return bars
}

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(got, 4) {
		t.Errorf("expected 4, got %f", got)
	}
	if _, err := SMA([]float64{1, 2}, 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := SMA([]float64{1, 2}, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestSMASeries(t *testing.T) {
	got := SMASeries([]float64{2, 4, 6, 8}, 2)
	want := []float64{math.NaN(), 3, 5, 7}
	if !math.IsNaN(got[0]) {
		t.Errorf("index 0: expected NaN, got %f", got[0])
	}
	for i := 1; i < len(want); i++ {
		if !approx(got[i], want[i]) {
			t.Errorf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestEMASeries_SeededBySMA(t *testing.T) {
	got := EMASeries([]float64{1, 2, 3, 4}, 3)
	if !approx(got[2], 2) {
		t.Errorf("seed: expected 2, got %f", got[2])
	}
	// k = 0.5 → 4*0.5 + 2*0.5
	if !approx(got[3], 3) {
		t.Errorf("expected 3, got %f", got[3])
	}
}

func TestRSISeries_Bounded(t *testing.T) {
	closes := []float64{100, 102, 101, 105, 103, 99, 98, 104, 110, 108, 107, 111, 115, 113, 112, 109, 106, 111, 118, 120}
	for _, period := range []int{2, 5, 14} {
		for i, v := range RSISeries(closes, period) {
			if i < period {
				if !math.IsNaN(v) {
					t.Errorf("period %d index %d: expected NaN, got %f", period, i, v)
				}
				continue
			}
			if v < 0 || v > 100 {
				t.Errorf("period %d index %d: RSI %f out of [0,100]", period, i, v)
			}
		}
	}
}

func TestRSI_Extremes(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"all gains", []float64{1, 2, 3, 4, 5, 6}, 100},
		{"all losses", []float64{6, 5, 4, 3, 2, 1}, 0},
		{"flat", []float64{5, 5, 5, 5, 5, 5}, 50},
	}
	for _, tt := range tests {
		got, err := CalculateRSI(barsFromCloses(tt.closes), 5)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if !approx(got, tt.want) {
			t.Errorf("%s: expected %f, got %f", tt.name, tt.want, got)
		}
	}
}

func TestRSI_KnownValue(t *testing.T) {
	// Two gains of 1 and one loss of 1 over period 3: avgGain 2/3, avgLoss 1/3 → RS 2 → RSI 66.67
	got := RSISeries([]float64{10, 11, 12, 11}, 3)
	if !approx(got[3], 100-100/3.0) {
		t.Errorf("expected %f, got %f", 100-100/3.0, got[3])
	}
}

func TestCalculateRSI_InsufficientDefaults50(t *testing.T) {
	got, err := CalculateRSI(barsFromCloses([]float64{1, 2}), 14)
	if err != nil || got != 50 {
		t.Errorf("expected 50 and nil error, got %f, %v", got, err)
	}
}

func TestRanges(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	bars := barsFromCloses(closes)

	high, low, err := Calculate52WeekRange(bars)
	if err != nil {
		t.Fatal(err)
	}
	if high != 301 || low != 48 {
		t.Errorf("52w: expected 301/48, got %f/%f", high, low)
	}
	high, low, err = Calculate30DayRange(bars)
	if err != nil {
		t.Fatal(err)
	}
	if high != 301 || low != 278 {
		t.Errorf("30d: expected 301/278, got %f/%f", high, low)
	}
	if _, _, err := Calculate30DayRange(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCalculate52WeekPosition(t *testing.T) {
	tests := []struct {
		current, high, low, want float64
	}{
		{150, 200, 100, 0.5},
		{250, 200, 100, 1},
		{50, 200, 100, 0},
		{100, 100, 100, 0.5},
	}
	for _, tt := range tests {
		got, err := Calculate52WeekPosition(tt.current, tt.high, tt.low)
		if err != nil {
			t.Fatal(err)
		}
		if !approx(got, tt.want) {
			t.Errorf("position(%v): expected %f, got %f", tt, tt.want, got)
		}
	}
	if _, err := Calculate52WeekPosition(1, 1, 2); err == nil {
		t.Error("expected error for high < low")
	}
}

func TestMACD(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res, err := MACD(closes, 12, 26, 9)
	if err != nil {
		t.Fatal(err)
	}
	last := len(closes) - 1
	if res.Line[last] <= 0 {
		t.Errorf("rising series should have positive MACD, got %f", res.Line[last])
	}
	if !math.IsNaN(res.Line[24]) || math.IsNaN(res.Line[25]) {
		t.Error("MACD line should start at index slow-1")
	}
	if math.IsNaN(res.Histogram[last]) {
		t.Error("histogram should be defined at the end")
	}
	if _, err := MACD(closes, 26, 12, 9); err == nil {
		t.Error("expected error when fast >= slow")
	}
}

func TestBollinger(t *testing.T) {
	bands, err := Bollinger([]float64{1, 2, 3, 4, 5}, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	sd := math.Sqrt(2)
	if !approx(bands.Middle[4], 3) || !approx(bands.Upper[4], 3+2*sd) || !approx(bands.Lower[4], 3-2*sd) {
		t.Errorf("unexpected bands: %f %f %f", bands.Middle[4], bands.Upper[4], bands.Lower[4])
	}
}

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99})
	if len(got) != 2 || !approx(got[0], 0.1) || !approx(got[1], -0.1) {
		t.Errorf("unexpected returns: %v", got)
	}
	if Returns([]float64{1}) != nil {
		t.Error("expected nil for single price")
	}
	lr := LogReturns([]float64{100, 100 * math.E})
	if !approx(lr[0], 1) {
		t.Errorf("expected log return 1, got %f", lr[0])
	}
}
