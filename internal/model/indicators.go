package model

import "time"

// MarketIndicators holds all computed technical indicators for one symbol.
type MarketIndicators struct {
	Symbol       string    `json:"symbol"`
	AsOf         time.Time `json:"as_of"`
	CurrentPrice float64   `json:"current_price"`
	MA200        float64   `json:"ma200"`
	MA20w        float64   `json:"ma20w"`
	MA50w        float64   `json:"ma50w"`
	WeeklyRSI    float64   `json:"weekly_rsi"`
	DailyRSI     float64   `json:"daily_rsi"`
	High52w      float64   `json:"high_52w"`
	Low52w       float64   `json:"low_52w"`
	High30d      float64   `json:"high_30d"`
	Low30d       float64   `json:"low_30d"`
	Position52w  float64   `json:"position_52w"` // 0.0 ~ 1.0
}
