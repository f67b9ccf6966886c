package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"HKQuant/internal/calculator"
	"HKQuant/internal/model"
)

const (
	dailyLookback  = 300
	weeklyLookback = 60
)

// Collector orchestrates data fetching and indicator computation.
type Collector struct {
	Fetcher Fetcher
	log     *zap.Logger
}

// NewCollector creates a new Collector. A nil logger discards output.
func NewCollector(fetcher Fetcher, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, log: log.Named("collector")}
}

// Series fetches the raw daily and weekly bars for symbol.
func (c *Collector) Series(ctx context.Context, symbol string, days int) (*model.PriceSeries, error) {
	dailyBars, err := c.Fetcher.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	weeklyBars, err := c.Fetcher.FetchWeeklyBars(ctx, symbol, weeklyLookback)
	if err != nil {
		return nil, fmt.Errorf("fetch weekly bars: %w", err)
	}
	currentPrice, err := c.Fetcher.FetchCurrentPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetch current price: %w", err)
	}
	return &model.PriceSeries{
		Symbol:       symbol,
		DailyBars:    dailyBars,
		WeeklyBars:   weeklyBars,
		CurrentPrice: currentPrice,
		FetchedAt:    time.Now(),
	}, nil
}

// Collect fetches market data and computes all indicators.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.MarketIndicators, error) {
	series, err := c.Series(ctx, symbol, dailyLookback)
	if err != nil {
		return nil, err
	}
	return c.Indicators(series), nil
}

// Indicators computes indicators from an already fetched series. Any
// indicator that cannot be computed falls back to a neutral value.
func (c *Collector) Indicators(series *model.PriceSeries) *model.MarketIndicators {
	dailyBars, weeklyBars := series.DailyBars, series.WeeklyBars
	currentPrice := series.CurrentPrice
	log := c.log.With(zap.String("symbol", series.Symbol))

	ind := &model.MarketIndicators{
		Symbol:       series.Symbol,
		AsOf:         series.FetchedAt,
		CurrentPrice: currentPrice,
	}

	// MA200
	if ma, err := calculator.CalculateMA200(dailyBars); err != nil {
		log.Warn("MA200 calculation failed, using current price", zap.Error(err))
		ind.MA200 = currentPrice
	} else {
		ind.MA200 = ma
	}

	// MA20w
	if ma, err := calculator.CalculateMA20w(weeklyBars); err != nil {
		log.Warn("MA20w calculation failed, using current price", zap.Error(err))
		ind.MA20w = currentPrice
	} else {
		ind.MA20w = ma
	}

	// MA50w
	if ma, err := calculator.CalculateMA50w(weeklyBars); err != nil {
		log.Warn("MA50w calculation failed, using current price", zap.Error(err))
		ind.MA50w = currentPrice
	} else {
		ind.MA50w = ma
	}

	// Weekly RSI
	if rsi, err := calculator.CalculateRSI(weeklyBars, 14); err != nil {
		log.Warn("weekly RSI calculation failed, defaulting to 50", zap.Error(err))
		ind.WeeklyRSI = 50
	} else {
		ind.WeeklyRSI = rsi
	}

	// Daily RSI
	if rsi, err := calculator.CalculateRSI(dailyBars, 14); err != nil {
		log.Warn("daily RSI calculation failed, defaulting to 50", zap.Error(err))
		ind.DailyRSI = 50
	} else {
		ind.DailyRSI = rsi
	}

	// 52-week range
	if h, l, err := calculator.Calculate52WeekRange(dailyBars); err != nil {
		log.Warn("52-week range calculation failed", zap.Error(err))
		ind.High52w = currentPrice
		ind.Low52w = currentPrice
	} else {
		ind.High52w = h
		ind.Low52w = l
	}

	// 30-day range
	if h, l, err := calculator.Calculate30DayRange(dailyBars); err != nil {
		log.Warn("30-day range calculation failed", zap.Error(err))
		ind.High30d = currentPrice
		ind.Low30d = currentPrice
	} else {
		ind.High30d = h
		ind.Low30d = l
	}

	// 52-week position
	if pos, err := calculator.Calculate52WeekPosition(currentPrice, ind.High52w, ind.Low52w); err != nil {
		log.Warn("52-week position calculation failed", zap.Error(err))
		ind.Position52w = 0.5
	} else {
		ind.Position52w = pos
	}

	return ind
}
