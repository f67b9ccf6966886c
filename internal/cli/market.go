package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"HKQuant/internal/agent"
	"HKQuant/internal/backtest"
	"HKQuant/internal/calculator"
	"HKQuant/internal/collector"
	"HKQuant/internal/export"
	"HKQuant/internal/fundamentals"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
	"HKQuant/internal/recorder"
	"HKQuant/internal/risk"
	"HKQuant/internal/strategy"
)

const indicatorDays = 300

// oscillators are the latest MACD(12,26,9) and Bollinger(20,2) readings.
// A reading that cannot be computed is null.
type oscillators struct {
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	MACDHist   *float64 `json:"macd_histogram"`
	BollUpper  *float64 `json:"bollinger_upper"`
	BollMiddle *float64 `json:"bollinger_middle"`
	BollLower  *float64 `json:"bollinger_lower"`
}

func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	return backtest.Finite(series[len(series)-1])
}

func newOscillators(closes []float64, log *zap.Logger) oscillators {
	var o oscillators
	if m, err := calculator.MACD(closes, 12, 26, 9); err != nil {
		log.Warn("MACD unavailable", zap.Error(err))
	} else {
		o.MACD, o.MACDSignal, o.MACDHist = last(m.Line), last(m.Signal), last(m.Histogram)
	}
	if b, err := calculator.Bollinger(closes, 20, 2); err != nil {
		log.Warn("Bollinger bands unavailable", zap.Error(err))
	} else {
		o.BollUpper, o.BollMiddle, o.BollLower = last(b.Upper), last(b.Middle), last(b.Lower)
	}
	return o
}

// closes fetches the daily close history of symbol.
func (a *app) closes(ctx context.Context, col *collector.Collector, symbol string) ([]float64, *model.PriceSeries, error) {
	series, err := col.Series(ctx, symbol, a.cfg.Optimizer.Days)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return model.Closes(series.DailyBars), series, nil
}

func newIndicatorsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators SYMBOL",
		Short: "Compute MA, RSI and range indicators with the factor signal",
		Long: `Compute the indicator snapshot for a symbol and score it with the
multi-factor signal. With --out bars.csv the daily bars are exported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			sym := collector.YahooSymbol(args[0])
			series, err := col.Series(cmd.Context(), sym, indicatorDays)
			if err != nil {
				return fmt.Errorf("%s: %w", sym, err)
			}
			ind := col.Indicators(series)
			signal := strategy.Evaluate(ind)
			signal.TriggerType = model.TriggerManual

			osc := newOscillators(model.Closes(series.DailyBars), a.log)

			out := struct {
				Indicators  *model.MarketIndicators `json:"indicators"`
				Signal      *model.TradeSignal      `json:"signal"`
				Oscillators oscillators             `json:"oscillators"`
			}{ind, signal, osc}
			return a.emit(out,
				func(w io.Writer) error { return export.BarsCSV(w, series.DailyBars) },
				func() string { return lines(renderIndicators(ind, signal), renderOscillators(osc)) })
		},
	}
}

func newBacktestCmd(a *app) *cobra.Command {
	var (
		strat              string
		period, fast, slow int
		buy, sell, cost    float64
	)
	cmd := &cobra.Command{
		Use:   "backtest SYMBOL",
		Short: "Backtest a long/flat strategy on daily closes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			sym := collector.YahooSymbol(args[0])
			closes, _, err := a.closes(cmd.Context(), col, sym)
			if err != nil {
				return err
			}
			var signal []float64
			switch strings.ToLower(strat) {
			case "ma":
				if period <= 0 {
					return errors.New("--period must be positive")
				}
				signal = backtest.PriceVsMASignal(closes, period)
			case "crossover":
				if fast <= 0 || slow <= fast {
					return errors.New("--fast must be positive and below --slow")
				}
				signal = backtest.CrossoverSignal(closes, fast, slow)
			case "rsi":
				if period <= 0 || buy >= sell {
					return errors.New("--period must be positive and --buy below --sell")
				}
				signal = backtest.RSISignal(closes, period, buy, sell)
			default:
				return fmt.Errorf("unknown strategy %q (ma, crossover, rsi)", strat)
			}
			res, err := backtest.Run(closes, signal, backtest.Options{
				RiskFreeRate: a.cfg.Optimizer.RiskFreeRate,
				CostPerTrade: cost,
			})
			if err != nil {
				return err
			}
			return a.emit(res, nil, func() string { return renderBacktest(sym, strat, res) })
		},
	}
	f := cmd.Flags()
	f.StringVarP(&strat, "strategy", "s", "ma", "strategy: ma, crossover or rsi")
	f.IntVar(&period, "period", 50, "MA or RSI period")
	f.IntVar(&fast, "fast", 10, "fast MA period for crossover")
	f.IntVar(&slow, "slow", 50, "slow MA period for crossover")
	f.Float64Var(&buy, "buy", 30, "RSI entry threshold")
	f.Float64Var(&sell, "sell", 70, "RSI exit threshold")
	f.Float64Var(&cost, "cost", 0.001, "cost per position change as a fraction")
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		start, end, step int
		top              int
		fast, slow       optimizer.Range
		buy, sell        optimizer.FloatRange
	)
	cmd := &cobra.Command{
		Use:   "optimize ma|crossover|rsi SYMBOL",
		Short: "Grid-search strategy parameters by Sharpe ratio",
		Long: `Sweep a strategy's parameters over a grid and rank each candidate by its
Sharpe ratio. Windows longer than the history are reported as insufficient.
With --out sweep.csv every candidate is exported.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			sym := collector.YahooSymbol(args[1])
			closes, _, err := a.closes(cmd.Context(), col, sym)
			if err != nil {
				return err
			}
			periods := a.maRange()
			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") || cmd.Flags().Changed("step") {
				periods = optimizer.Range{Start: start, End: end, Step: step}
			}
			rf := a.cfg.Optimizer.RiskFreeRate

			var rep *optimizer.Report
			switch strings.ToLower(args[0]) {
			case "ma":
				rep, err = optimizer.OptimizeMA(closes, periods, rf)
			case "crossover":
				rep, err = optimizer.OptimizeCrossover(closes, fast, slow, rf)
			case "rsi":
				rsiPeriods := optimizer.Range{Start: 7, End: 21, Step: 7}
				if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") || cmd.Flags().Changed("step") {
					rsiPeriods = periods
				}
				rep, err = optimizer.OptimizeRSI(closes, rsiPeriods, buy, sell, rf)
			default:
				return fmt.Errorf("unknown strategy %q (ma, crossover, rsi)", args[0])
			}
			if err != nil {
				return err
			}

			rec := a.recorder()
			defer rec.Close()
			if err := rec.RecordOptimization(recorder.NewOptimizationRecord(sym, rep)); err != nil {
				a.log.Error("record optimization", zap.Error(err))
			}

			out := struct {
				Symbol string `json:"symbol"`
				*optimizer.Report
			}{sym, rep}
			return a.emit(out,
				func(w io.Writer) error { return export.CandidatesCSV(w, rep.Candidates) },
				func() string { return renderOptimization(sym, rep, top) })
		},
	}
	f := cmd.Flags()
	f.IntVar(&start, "start", 5, "first period of the sweep (default from config)")
	f.IntVar(&end, "end", 200, "last period of the sweep (default from config)")
	f.IntVar(&step, "step", 5, "period step (default from config)")
	f.IntVar(&top, "top", 10, "candidates to display")
	f.IntVar(&fast.Start, "fast-start", 5, "crossover fast MA start")
	f.IntVar(&fast.End, "fast-end", 30, "crossover fast MA end")
	f.IntVar(&fast.Step, "fast-step", 5, "crossover fast MA step")
	f.IntVar(&slow.Start, "slow-start", 20, "crossover slow MA start")
	f.IntVar(&slow.End, "slow-end", 120, "crossover slow MA end")
	f.IntVar(&slow.Step, "slow-step", 20, "crossover slow MA step")
	f.Float64Var(&buy.Start, "buy-start", 20, "RSI buy threshold start")
	f.Float64Var(&buy.End, "buy-end", 40, "RSI buy threshold end")
	f.Float64Var(&buy.Step, "buy-step", 5, "RSI buy threshold step")
	f.Float64Var(&sell.Start, "sell-start", 60, "RSI sell threshold start")
	f.Float64Var(&sell.End, "sell-end", 80, "RSI sell threshold end")
	f.Float64Var(&sell.Step, "sell-step", 5, "RSI sell threshold step")
	return cmd
}

func newRiskCmd(a *app) *cobra.Command {
	var (
		benchmark              string
		account, riskPct, stop float64
		lot                    int64
	)
	cmd := &cobra.Command{
		Use:   "risk SYMBOL",
		Short: "Report volatility, drawdown, VaR and beta, with optional position sizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sym := collector.YahooSymbol(args[0])
			closes, series, err := a.closes(ctx, col, sym)
			if err != nil {
				return err
			}
			if benchmark == "" {
				benchmark = a.cfg.DataSource.Benchmark
			}
			var bench []float64
			if benchmark != "" && !strings.EqualFold(collector.YahooSymbol(benchmark), sym) {
				bars, err := col.Fetcher.FetchDailyBars(ctx, collector.YahooSymbol(benchmark), a.cfg.Optimizer.Days)
				if err != nil {
					a.log.Warn("benchmark unavailable", zap.String("benchmark", benchmark), zap.Error(err))
				} else {
					bench = model.Closes(bars)
				}
			}
			rep, err := risk.Analyze(closes, bench, a.cfg.Optimizer.RiskFreeRate)
			if err != nil {
				return fmt.Errorf("%s: %w", sym, err)
			}

			var size *risk.Sizing
			if account > 0 {
				if stop <= 0 {
					return errors.New("--stop is required with --account")
				}
				s, err := risk.PositionSize(account, riskPct, series.CurrentPrice, stop, lot)
				if err != nil {
					return err
				}
				size = &s
			}
			out := struct {
				Symbol string       `json:"symbol"`
				Risk   *risk.Report `json:"risk"`
				Sizing *risk.Sizing `json:"sizing,omitempty"`
			}{sym, rep, size}
			return a.emit(out, nil, func() string { return renderRisk(sym, rep, size) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&benchmark, "benchmark", "", "benchmark symbol for beta (default from config)")
	f.Float64Var(&account, "account", 0, "account size for position sizing")
	f.Float64Var(&riskPct, "risk-pct", 1, "percent of the account to risk")
	f.Float64Var(&stop, "stop", 0, "stop-loss price")
	f.Int64Var(&lot, "lot", 100, "board lot size")
	return cmd
}

func newFundamentalsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fundamentals SYMBOL",
		Short: "Score valuation from PE, PB and dividend yield",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.offline() {
				return fmt.Errorf("fundamentals need network access; provider %q is offline", a.cfg.DataSource.Provider)
			}
			f, err := collector.NewFundamentalsFetcher().Fetch(cmd.Context(), collector.YahooSymbol(args[0]))
			if err != nil {
				return err
			}
			as := fundamentals.Score(*f)
			out := struct {
				Fundamentals *model.Fundamentals     `json:"fundamentals"`
				Assessment   fundamentals.Assessment `json:"assessment"`
			}{f, as}
			return a.emit(out, nil, func() string { return renderFundamentals(f, as) })
		},
	}
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [SYMBOL...]",
		Short: "Run the full agent analysis and rating",
		Long: `Combine the factor signal, the optimal MA trend, risk, fundamentals and
forum sentiment into one rating per symbol. Without arguments the configured
watch list is analyzed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.collector()
			if err != nil {
				return err
			}
			an := a.analyst(col)
			rec := a.recorder()
			defer rec.Close()

			symbols := args
			if len(symbols) == 0 {
				symbols = a.cfg.DataSource.Symbols
			}
			var (
				reports []*agent.Report
				failed  []string
			)
			for _, s := range symbols {
				sym := collector.YahooSymbol(s)
				rep, err := an.Analyze(cmd.Context(), sym)
				if err != nil {
					a.log.Error("analysis failed", zap.String("symbol", sym), zap.Error(err))
					failed = append(failed, sym)
					continue
				}
				if err := rec.RecordAnalysis(&recorder.AnalysisSnapshot{
					Indicators: rep.Indicators, Signal: rep.Signal, Rating: string(rep.Rating),
				}); err != nil {
					a.log.Error("record analysis", zap.Error(err))
				}
				reports = append(reports, rep)
			}
			if len(reports) > 0 {
				err := a.emit(reports, nil, func() string {
					views := make([]string, len(reports))
					for i, r := range reports {
						views[i] = renderReport(r)
					}
					return lines(views...)
				})
				if err != nil {
					return err
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("analysis failed for %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
