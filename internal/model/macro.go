package model

import "time"

// HiborRate is one day of HKMA interbank offered rate fixings, in percent.
type HiborRate struct {
	Date      time.Time `json:"date"`
	Overnight float64   `json:"overnight"`
	Week1     float64   `json:"week_1"`
	Month1    float64   `json:"month_1"`
	Month3    float64   `json:"month_3"`
	Month6    float64   `json:"month_6"`
	Month12   float64   `json:"month_12"`
}

// EconomicObservation is a single value of a macro time series (e.g. FRED).
type EconomicObservation struct {
	SeriesID string    `json:"series_id"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
}
