// Package agent combines every analysis in the repository into one rated
// report per symbol, as shown on the dashboard and in chat.
package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"HKQuant/internal/calculator"
	"HKQuant/internal/collector"
	"HKQuant/internal/fundamentals"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/risk"
	"HKQuant/internal/sentiment"
	"HKQuant/internal/strategy"
)

// Rating is the headline call of a Report.
type Rating string

const (
	StrongBuy  Rating = "STRONG_BUY"
	Buy        Rating = "BUY"
	Hold       Rating = "HOLD"
	Sell       Rating = "SELL"
	StrongSell Rating = "STRONG_SELL"
)

// RatingFor maps a composite score in [-2, 2] to a Rating.
func RatingFor(score float64) Rating {
	switch {
	case score >= 1.0:
		return StrongBuy
	case score >= 0.3:
		return Buy
	case score > -0.3:
		return Hold
	case score > -1.0:
		return Sell
	default:
		return StrongSell
	}
}

// Report is the combined analysis of one symbol.
type Report struct {
	Symbol       string                   `json:"symbol"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Indicators   *model.MarketIndicators  `json:"indicators"`
	Signal       *model.TradeSignal       `json:"signal"`
	Risk         *risk.Report             `json:"risk,omitempty"`
	Optimization *optimizer.Candidate     `json:"optimization,omitempty"`
	Fundamentals *fundamentals.Assessment `json:"fundamentals,omitempty"`
	Sentiment    *sentiment.Summary       `json:"sentiment,omitempty"`
	Score        float64                  `json:"score"`
	Rating       Rating                   `json:"rating"`
	Rationale    []string                 `json:"rationale"`
	Warnings     []string                 `json:"warnings,omitempty"`
}

// FundamentalsSource supplies valuation snapshots.
type FundamentalsSource interface {
	Fetch(ctx context.Context, symbol string) (*model.Fundamentals, error)
}

// ForumSource supplies forum headlines.
type ForumSource interface {
	Threads(ctx context.Context, category, page int) ([]model.ForumPost, error)
}

// Component weights of the composite score.
const (
	weightSignal       = 0.50
	weightTrend        = 0.15
	weightFundamentals = 0.20
	weightSentiment    = 0.15
)

// Analyst produces Reports. Fundamentals and Forum are optional.
type Analyst struct {
	Collector     *collector.Collector
	Fundamentals  FundamentalsSource
	Forum         ForumSource
	ForumCategory int
	Benchmark     string
	RiskFree      float64
	MARange       optimizer.Range
	HistoryDays   int

	log *zap.Logger
}

// NewAnalyst returns an Analyst with the default MA sweep of 5..200 step 5
// over three years of history.
func NewAnalyst(c *collector.Collector, log *zap.Logger) *Analyst {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyst{
		Collector:   c,
		MARange:     optimizer.Range{Start: 5, End: 200, Step: 5},
		HistoryDays: 756,
		log:         log.Named("agent"),
	}
}

// Analyze runs every analysis for symbol. Only market data is required;
// failures of optional sources are logged and listed in Report.Warnings.
func (a *Analyst) Analyze(ctx context.Context, symbol string) (*Report, error) {
	series, err := a.Collector.Series(ctx, symbol, a.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", symbol, err)
	}
	ind := a.Collector.Indicators(series)
	signal := strategy.Evaluate(ind)
	signal.TriggerType = model.TriggerDashboard

	rep := &Report{
		Symbol:      symbol,
		GeneratedAt: time.Now(),
		Indicators:  ind,
		Signal:      signal,
	}
	log := a.log.With(zap.String("symbol", symbol))
	warn := func(msg string, err error) {
		log.Warn(msg, zap.Error(err))
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %v", msg, err))
	}

	closes := model.Closes(series.DailyBars)
	var components, weights float64
	add := func(score, weight float64) {
		components += score * weight
		weights += weight
	}

	add(signal.TotalScore, weightSignal)
	rep.Rationale = append(rep.Rationale,
		fmt.Sprintf("Strategy tier %s (score %+.2f)", signal.Tier.Label, signal.TotalScore))
	if ind.MA200 > 0 {
		rep.Rationale = append(rep.Rationale,
			fmt.Sprintf("Price %.2f is %+.1f%% from MA200", ind.CurrentPrice, (ind.CurrentPrice-ind.MA200)/ind.MA200*100))
	}

	if rr, err := risk.Analyze(closes, a.benchmarkCloses(ctx, warn), a.RiskFree); err != nil {
		warn("risk analysis failed", err)
	} else {
		rep.Risk = rr
		line := fmt.Sprintf("Annual volatility %.1f%%, 95%% VaR %.2f%%", rr.AnnualVol*100, rr.HistoricalVaR*100)
		if rr.HasBenchmark {
			line += fmt.Sprintf(", beta %.2f", rr.Beta)
		}
		rep.Rationale = append(rep.Rationale, line)
	}

	if opt, err := optimizer.OptimizeMA(closes, a.MARange, a.RiskFree); err != nil {
		warn("MA optimization failed", err)
	} else if opt.Found {
		best := opt.Best
		rep.Optimization = &best
		score, line := trendScore(closes, best)
		add(score, weightTrend)
		rep.Rationale = append(rep.Rationale, line)
	} else {
		rep.Warnings = append(rep.Warnings, "MA optimization: not enough history for any period")
	}

	if a.Fundamentals != nil {
		if f, err := a.Fundamentals.Fetch(ctx, symbol); err != nil {
			warn("fundamentals unavailable", err)
		} else {
			as := fundamentals.Score(*f)
			rep.Fundamentals = &as
			add(as.Total, weightFundamentals)
			rep.Rationale = append(rep.Rationale,
				fmt.Sprintf("Valuation %s (PE %.1f, PB %.2f, yield %.2f%%)", as.Verdict, f.TrailingPE, f.PriceToBook, f.DividendYield*100))
		}
	}

	if a.Forum != nil {
		if posts, err := a.Forum.Threads(ctx, a.ForumCategory, 1); err != nil {
			warn("forum sentiment unavailable", err)
		} else {
			s := sentiment.Aggregate(posts)
			rep.Sentiment = &s
			add(s.Score*2, weightSentiment)
			rep.Rationale = append(rep.Rationale,
				fmt.Sprintf("Forum mood %s (%+.2f over %d posts)", s.Mood(), s.Score, s.Posts))
		}
	}

	rep.Score = components / weights
	rep.Rating = RatingFor(rep.Score)
	log.Info("analysis complete", zap.String("rating", string(rep.Rating)), zap.Float64("score", rep.Score))
	return rep, nil
}

func (a *Analyst) benchmarkCloses(ctx context.Context, warn func(string, error)) []float64 {
	if a.Benchmark == "" {
		return nil
	}
	bars, err := a.Collector.Fetcher.FetchDailyBars(ctx, a.Benchmark, a.HistoryDays)
	if err != nil {
		warn("benchmark unavailable", err)
		return nil
	}
	return model.Closes(bars)
}

// trendScore reads the current stance of the best MA strategy: +1 when price
// is above the optimal MA, -1 below. Strategies with non-positive Sharpe
// carry no information and score 0.
func trendScore(closes []float64, best optimizer.Candidate) (float64, string) {
	p := best.Params.Period
	ma, err := calculator.SMA(closes, p)
	if err != nil || math.IsInf(best.Sharpe, 0) {
		return 0, fmt.Sprintf("Best MA period %d unusable", p)
	}
	last := closes[len(closes)-1]
	if best.Sharpe <= 0 {
		return 0, fmt.Sprintf("Best MA%d strategy has Sharpe %.2f; trend ignored", p, best.Sharpe)
	}
	if last > ma {
		return 1, fmt.Sprintf("Above optimal MA%d (%.2f), backtest Sharpe %.2f", p, ma, best.Sharpe)
	}
	return -1, fmt.Sprintf("Below optimal MA%d (%.2f), backtest Sharpe %.2f", p, ma, best.Sharpe)
}
