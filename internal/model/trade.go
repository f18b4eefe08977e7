package model

import "time"

// Trade operations as stored in the ledger. Single-letter codes match the
// ledger schema.
const (
	OperationBuy      = "B"
	OperationSell     = "S"
	OperationDeposit  = "D"
	OperationWithdraw = "W"
)

// Trade represents a single row of the ledger for one user.
// Trades are immutable once recorded; the analytical core treats them as
// read-only input.
type Trade struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`
	Ticker    string    `json:"ticker"`
	Operation string    `json:"operation"` // B, S, D or W
	Quantity  float64   `json:"quantity"`  // signed: sells and withdrawals are negative
	Price     float64   `json:"price"`     // unit price in the trade currency
	CashValue float64   `json:"cashValue"` // total cash moved, trade currency, signed like Quantity
	Fees      float64   `json:"fees"`      // fees paid, trade currency
	Currency  string    `json:"currency"`  // ISO currency the trade settled in
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Day returns the trade date floored to calendar-day granularity in UTC.
// All FX lookups and NAV bucketing key on this value.
func (t Trade) Day() time.Time {
	d := t.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizedTrade is a Trade converted into the user's reporting currency
// using the historical FX rate of the trade date. It is derived data,
// recomputed on each run and never persisted on its own.
type NormalizedTrade struct {
	Trade
	FxRate      float64 `json:"fxRate"`      // trade currency units per reporting currency unit
	CashValueFx float64 `json:"cashValueFx"` // CashValue / FxRate
	FeesFx      float64 `json:"feesFx"`      // Fees / FxRate
	PriceFx     float64 `json:"priceFx"`     // Price / FxRate
}

// Warning is a non-fatal degradation notice produced during a computation.
// Warnings never abort the run; they are delivered through the caller's
// Notifier and attached to results where that makes sense.
type Warning struct {
	Code    string    `json:"code"`
	Ticker  string    `json:"ticker,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Warning codes.
const (
	WarnFxRateUnavailable  = "fx_rate_unavailable"
	WarnPriceSourceFailure = "price_source_failure"
	WarnIncompleteHistory  = "incomplete_history"
)
