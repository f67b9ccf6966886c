package recorder

import (
	"encoding/json"
	"time"

	"HKQuant/internal/backtest"
	"HKQuant/internal/model"
	"HKQuant/internal/optimizer"
)

// AnalysisSnapshot holds one indicator/signal evaluation of a symbol.
type AnalysisSnapshot struct {
	Indicators *model.MarketIndicators
	Signal     *model.TradeSignal
	Rating     string
}

// OptimizationRecord is the persisted best result of one optimizer sweep.
type OptimizationRecord struct {
	RecordedAt  time.Time        `json:"recorded_at"`
	Symbol      string           `json:"symbol"`
	Strategy    string           `json:"strategy"`
	Params      optimizer.Params `json:"params"`
	Sharpe      float64          `json:"sharpe"` // -Inf when no candidate had enough data
	TotalReturn float64          `json:"total_return"`
	MaxDrawdown float64          `json:"max_drawdown"`
	Candidates  int              `json:"candidates"`
}

func (r OptimizationRecord) MarshalJSON() ([]byte, error) {
	type plain OptimizationRecord
	return json.Marshal(struct {
		plain
		Sharpe *float64 `json:"sharpe"`
	}{plain(r), backtest.Finite(r.Sharpe)})
}

// NewOptimizationRecord summarizes report for symbol.
func NewOptimizationRecord(symbol string, report *optimizer.Report) *OptimizationRecord {
	return &OptimizationRecord{
		RecordedAt:  time.Now(),
		Symbol:      symbol,
		Strategy:    report.Strategy,
		Params:      report.Best.Params,
		Sharpe:      report.Best.Sharpe,
		TotalReturn: report.Best.TotalReturn,
		MaxDrawdown: report.Best.MaxDrawdown,
		Candidates:  len(report.Candidates),
	}
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordAnalysis(snap *AnalysisSnapshot) error
	RecordOptimization(rec *OptimizationRecord) error
	RecordHibor(rates []model.HiborRate) error
	RecentOptimizations(symbol string, n int) ([]OptimizationRecord, error)
	Close() error
}
