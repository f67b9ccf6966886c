package model

import "time"

// Security is a listed instrument as shown on an exchange quotation page.
type Security struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Last     float64 `json:"last"`
	Turnover float64 `json:"turnover"`
}

// Fundamentals is a valuation snapshot for one symbol.
type Fundamentals struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	TrailingPE    float64 `json:"trailing_pe"`
	PriceToBook   float64 `json:"price_to_book"`
	DividendYield float64 `json:"dividend_yield"` // fraction, 0.05 = 5%
	EPS           float64 `json:"eps"`
	MarketCap     int64   `json:"market_cap"`
}

// ForumPost is a thread headline scraped from a discussion forum.
type ForumPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Replies   int       `json:"replies"`
	CreatedAt time.Time `json:"created_at"`
}
