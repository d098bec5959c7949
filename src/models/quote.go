package models

import "time"

// Quote holds the day statistics for a symbol as returned by the market data
// backend. A Quote is only ever produced with a real price; "no data" is an
// error at the service boundary, never a zero-valued Quote.
type Quote struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	PercentChange float64   `json:"percent_change"`
	DayHigh       float64   `json:"day_high"`
	DayLow        float64   `json:"day_low"`
	DayOpen       float64   `json:"day_open"`
	PreviousClose float64   `json:"previous_close"`
	Timestamp     time.Time `json:"timestamp"`
}

// SymbolMatch is a single result from a symbol search.
type SymbolMatch struct {
	Symbol    string `json:"symbol"`
	Shortname string `json:"shortname"`
	Exchange  string `json:"exchange"`
	QuoteType string `json:"quote_type"`
	Currency  string `json:"currency"`
}
