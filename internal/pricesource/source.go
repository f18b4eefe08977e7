// Package pricesource defines the market-data boundary of the engine and
// provides an HTTP client implementation for it. Provider fallback ordering
// and API-key management live here, never in the analytical core.
package pricesource

import (
	"context"
	"time"

	"github.com/rmartins/navengine/internal/model"
)

// PricePoint is one day of a historical price series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// QuoteMatrix is the result of a batched spot-quote request:
// ticker -> target currency -> quote.
type QuoteMatrix map[string]map[string]model.Quote

// Source supplies spot and historical prices. All three operations are the
// engine's only suspension points; implementations must honor the context
// deadline so that one slow provider degrades only the tickers it covers.
type Source interface {
	// SpotQuote fetches a single live quote for ticker in the given currency.
	SpotQuote(ctx context.Context, ticker, currency string) (model.Quote, error)

	// BatchSpotQuotes fetches live quotes for all tickers in all target
	// currencies with one provider round-trip.
	BatchSpotQuotes(ctx context.Context, tickers, currencies []string) (QuoteMatrix, error)

	// HistoricalSeries fetches the full daily close history for a ticker or
	// FX pair, converted into the given currency, ordered by date ascending.
	HistoricalSeries(ctx context.Context, symbol, currency string) ([]PricePoint, error)
}
