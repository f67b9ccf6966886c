package collector

import (
	"context"
	"fmt"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"HKQuant/internal/model"
)

// FundamentalsFetcher retrieves valuation snapshots from Yahoo quote data.
type FundamentalsFetcher struct {
	get func(symbol string) (*finance.Equity, error)
}

func NewFundamentalsFetcher() *FundamentalsFetcher {
	return &FundamentalsFetcher{get: equity.Get}
}

// Fetch returns the current fundamentals for symbol.
func (f *FundamentalsFetcher) Fetch(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ticker := YahooSymbol(symbol)
	eq, err := f.get(ticker)
	if err != nil {
		return nil, fmt.Errorf("equity %s: %w", ticker, err)
	}
	if eq == nil {
		return nil, fmt.Errorf("equity %s: not found", ticker)
	}
	name := eq.LongName
	if name == "" {
		name = eq.ShortName
	}
	return &model.Fundamentals{
		Symbol:        ticker,
		Name:          name,
		Price:         eq.RegularMarketPrice,
		TrailingPE:    eq.TrailingPE,
		PriceToBook:   eq.PriceToBook,
		DividendYield: eq.TrailingAnnualDividendYield,
		EPS:           eq.EpsTrailingTwelveMonths,
		MarketCap:     int64(eq.MarketCap),
	}, nil
}
