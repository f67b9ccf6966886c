package calculator

import (
	"fmt"
	"math"

	"HKQuant/internal/model"
)

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period {
		return 0, fmt.Errorf("sma(%d) over %d values: %w", period, len(prices), ErrInsufficientData)
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the trailing SMA at every index. Indexes before the
// window fills hold NaN. A non-positive period yields an all-NaN series.
func SMASeries(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMASeries returns the exponential moving average seeded with the SMA of
// the first period values.
func EMASeries(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}
	k := 2.0 / float64(period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += prices[i]
	}
	ema := seed / float64(period)
	out[period-1] = ema
	for i := period; i < len(prices); i++ {
		ema = prices[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// CalculateMA200 returns the 200-day simple moving average from daily bars.
func CalculateMA200(dailyBars []model.OHLCV) (float64, error) {
	return SMA(model.Closes(dailyBars), 200)
}

// CalculateMA20w returns the 20-week simple moving average from weekly bars.
func CalculateMA20w(weeklyBars []model.OHLCV) (float64, error) {
	return SMA(model.Closes(weeklyBars), 20)
}

// CalculateMA50w returns the 50-week simple moving average from weekly bars.
func CalculateMA50w(weeklyBars []model.OHLCV) (float64, error) {
	return SMA(model.Closes(weeklyBars), 50)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
