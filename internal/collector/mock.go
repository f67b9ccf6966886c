package collector

import (
	"context"
	"math"
	"time"

	"HKQuant/internal/model"
)

// mockEpoch anchors generated bars so repeated runs produce identical data.
var mockEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price      float64
	DailyData  []model.OHLCV
	WeeklyData []model.OHLCV
	Err        error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return GenerateMockBars(m.Price, days, 24*time.Hour), nil
}

func (m *MockFetcher) FetchWeeklyBars(_ context.Context, _ string, weeks int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.WeeklyData != nil {
		return m.WeeklyData, nil
	}
	return GenerateMockBars(m.Price, weeks, 7*24*time.Hour), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}

// GenerateMockBars produces count bars oscillating gently around basePrice
// with a slight upward drift. The final bar closes at basePrice.
func GenerateMockBars(basePrice float64, count int, step time.Duration) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		k := float64(i - (count - 1))
		p := basePrice * (1 + k*0.001 + 0.02*math.Sin(k/5))
		bars[i] = model.OHLCV{
			Time:   mockEpoch.Add(time.Duration(i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
