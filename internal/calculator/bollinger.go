package calculator

import "math"

// BollingerBands holds the middle, upper and lower bands, aligned to input.
type BollingerBands struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes SMA(period) ± k population standard deviations.
func Bollinger(closes []float64, period int, k float64) (BollingerBands, error) {
	if period <= 0 {
		return BollingerBands{}, ErrInvalidPeriod
	}
	if len(closes) < period {
		return BollingerBands{}, ErrInsufficientData
	}
	mid := SMASeries(closes, period)
	upper := nanSeries(len(closes))
	lower := nanSeries(len(closes))
	for i := period - 1; i < len(closes); i++ {
		variance := 0.0
		for _, c := range closes[i-period+1 : i+1] {
			d := c - mid[i]
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return BollingerBands{Middle: mid, Upper: upper, Lower: lower}, nil
}
