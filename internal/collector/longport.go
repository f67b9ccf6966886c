package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"HKQuant/internal/model"
)

// maxLongportCount is the largest candlestick count the quote API returns
// in one request.
const maxLongportCount = 1000

// LongportCredentials are the OpenAPI keys issued by Longport.
type LongportCredentials struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

type candlestickSource interface {
	Candlesticks(ctx context.Context, symbol string, period quote.Period, count int32, adjustType quote.AdjustType) ([]*quote.Candlestick, error)
}

// LongportFetcher implements Fetcher using Longport quote candlesticks.
type LongportFetcher struct {
	quotes candlestickSource
}

// NewLongportFetcher opens a quote context with the given credentials.
func NewLongportFetcher(creds LongportCredentials) (*LongportFetcher, error) {
	if creds.AppKey == "" || creds.AppSecret == "" || creds.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}
	conf, err := lpconfig.New(lpconfig.WithConfigKey(creds.AppKey, creds.AppSecret, creds.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}
	qctx, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote context: %w", err)
	}
	return &LongportFetcher{quotes: qctx}, nil
}

func (f *LongportFetcher) Name() string { return "longport" }

func (f *LongportFetcher) sticks(ctx context.Context, symbol string, period quote.Period, count int) ([]model.OHLCV, error) {
	if f.quotes == nil {
		return nil, errors.New("longport: quote context is nil")
	}
	if count <= 0 || count > maxLongportCount {
		count = maxLongportCount
	}
	lpSymbol := LongportSymbol(symbol)
	sticks, err := f.quotes.Candlesticks(ctx, lpSymbol, period, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", lpSymbol, err)
	}
	bars := make([]model.OHLCV, 0, len(sticks))
	for _, stick := range sticks {
		// Suspended sessions come back with empty prices.
		if stick == nil || stick.Close == nil {
			continue
		}
		closePrice := decimalFloat(stick.Close, 0)
		open := decimalFloat(stick.Open, closePrice)
		high := decimalFloat(stick.High, closePrice)
		low := decimalFloat(stick.Low, closePrice)
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(stick.Timestamp, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: float64(stick.Volume),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("longport: no candlesticks for %s", lpSymbol)
	}
	return bars, nil
}

func decimalFloat(d *decimal.Decimal, fallback float64) float64 {
	if d == nil {
		return fallback
	}
	v, _ := d.Float64()
	return v
}

func (f *LongportFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	return f.sticks(ctx, symbol, quote.PeriodDay, days)
}

// FetchWeeklyBars aggregates daily candlesticks into weeks.
func (f *LongportFetcher) FetchWeeklyBars(ctx context.Context, symbol string, weeks int) ([]model.OHLCV, error) {
	daily, err := f.sticks(ctx, symbol, quote.PeriodDay, weeks*5+5)
	if err != nil {
		return nil, err
	}
	return lastN(AggregateDailyToWeekly(daily), weeks), nil
}

func (f *LongportFetcher) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	bars, err := f.sticks(ctx, symbol, quote.PeriodDay, 1)
	if err != nil {
		return 0, err
	}
	return bars[len(bars)-1].Close, nil
}
