package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Sizing is a risk-budgeted position in whole board lots.
type Sizing struct {
	RiskPerShare decimal.Decimal `json:"risk_per_share"`
	RiskBudget   decimal.Decimal `json:"risk_budget"`
	Lots         int64           `json:"lots"`
	Shares       int64           `json:"shares"`
	Notional     decimal.Decimal `json:"notional"`
	MaxLoss      decimal.Decimal `json:"max_loss"`
}

// PositionSize caps the loss between entry and stop at riskPct percent of
// account, rounding down to whole lots of lotSize shares (HKEX board lots).
func PositionSize(account, riskPct, entry, stop float64, lotSize int64) (Sizing, error) {
	if account <= 0 || riskPct <= 0 || entry <= 0 {
		return Sizing{}, errors.New("account, risk percent and entry must be positive")
	}
	if lotSize <= 0 {
		lotSize = 1
	}
	e := decimal.NewFromFloat(entry)
	perShare := e.Sub(decimal.NewFromFloat(stop)).Abs()
	if perShare.IsZero() {
		return Sizing{}, errors.New("entry and stop must differ")
	}
	budget := decimal.NewFromFloat(account).Mul(decimal.NewFromFloat(riskPct)).Div(decimal.NewFromInt(100))

	lotRisk := perShare.Mul(decimal.NewFromInt(lotSize))
	lots := budget.Div(lotRisk).Floor().IntPart()

	// The position may not exceed the account either.
	lotCost := e.Mul(decimal.NewFromInt(lotSize))
	if affordable := decimal.NewFromFloat(account).Div(lotCost).Floor().IntPart(); lots > affordable {
		lots = affordable
	}

	shares := lots * lotSize
	qty := decimal.NewFromInt(shares)
	return Sizing{
		RiskPerShare: perShare,
		RiskBudget:   budget,
		Lots:         lots,
		Shares:       shares,
		Notional:     e.Mul(qty),
		MaxLoss:      perShare.Mul(qty),
	}, nil
}
