package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/pricesource"
)

// MockPriceSource is a scripted implementation of pricesource.Source for
// testing. It serves quotes and histories from in-memory maps instead of
// making API calls, and records how often each operation was hit.
//
// Keys for histories are "SYMBOL/CURRENCY", e.g. "BTC/USD" or "USD/EUR".
type MockPriceSource struct {
	mu sync.Mutex

	// Quotes holds the batched spot quotes: ticker -> currency -> quote.
	Quotes pricesource.QuoteMatrix
	// Histories holds historical series keyed by "SYMBOL/CURRENCY".
	Histories map[string][]pricesource.PricePoint
	// FailHistories lists "SYMBOL/CURRENCY" keys whose history fetch fails.
	FailHistories map[string]bool
	// BatchErr, when set, makes every BatchSpotQuotes call fail.
	BatchErr error

	SpotCalls    int
	BatchCalls   int
	HistoryCalls int
}

// NewMockPriceSource creates an empty mock source.
func NewMockPriceSource() *MockPriceSource {
	return &MockPriceSource{
		Quotes:        pricesource.QuoteMatrix{},
		Histories:     map[string][]pricesource.PricePoint{},
		FailHistories: map[string]bool{},
	}
}

// WithQuote registers a spot quote for ticker in currency.
func (m *MockPriceSource) WithQuote(ticker, currency string, quote model.Quote) *MockPriceSource {
	if m.Quotes[ticker] == nil {
		m.Quotes[ticker] = map[string]model.Quote{}
	}
	m.Quotes[ticker][currency] = quote
	return m
}

// WithPrice registers a plain spot price for ticker in currency.
func (m *MockPriceSource) WithPrice(ticker, currency string, price float64) *MockPriceSource {
	return m.WithQuote(ticker, currency, model.Quote{Price: price, LastUpdate: time.Now().UTC()})
}

// WithHistory registers a historical series for symbol in currency.
func (m *MockPriceSource) WithHistory(symbol, currency string, points []pricesource.PricePoint) *MockPriceSource {
	m.Histories[historyKey(symbol, currency)] = points
	return m
}

// WithFailingHistory makes the history fetch for symbol/currency fail.
func (m *MockPriceSource) WithFailingHistory(symbol, currency string) *MockPriceSource {
	m.FailHistories[historyKey(symbol, currency)] = true
	return m
}

// SpotQuote returns the scripted quote for ticker/currency.
func (m *MockPriceSource) SpotQuote(ctx context.Context, ticker, currency string) (model.Quote, error) {
	m.mu.Lock()
	m.SpotCalls++
	m.mu.Unlock()

	if quote, ok := m.Quotes[ticker][currency]; ok {
		return quote, nil
	}
	return model.Quote{}, fmt.Errorf("%w: no quote for %s/%s", apperrors.ErrPriceSourceFailure, ticker, currency)
}

// BatchSpotQuotes returns the scripted quotes for every requested pair that
// has one. Pairs without a scripted quote are simply absent from the result,
// matching the provider's behavior for unknown tickers.
func (m *MockPriceSource) BatchSpotQuotes(ctx context.Context, tickers, currencies []string) (pricesource.QuoteMatrix, error) {
	m.mu.Lock()
	m.BatchCalls++
	m.mu.Unlock()

	if m.BatchErr != nil {
		return nil, m.BatchErr
	}

	matrix := pricesource.QuoteMatrix{}
	for _, ticker := range tickers {
		for _, currency := range currencies {
			quote, ok := m.Quotes[ticker][currency]
			if !ok {
				continue
			}
			if matrix[ticker] == nil {
				matrix[ticker] = map[string]model.Quote{}
			}
			matrix[ticker][currency] = quote
		}
	}
	return matrix, nil
}

// HistoricalSeries returns the scripted series for symbol/currency.
func (m *MockPriceSource) HistoricalSeries(ctx context.Context, symbol, currency string) ([]pricesource.PricePoint, error) {
	m.mu.Lock()
	m.HistoryCalls++
	m.mu.Unlock()

	key := historyKey(symbol, currency)
	if m.FailHistories[key] {
		return nil, fmt.Errorf("%w: history unavailable for %s", apperrors.ErrPriceSourceFailure, key)
	}
	if points, ok := m.Histories[key]; ok {
		return points, nil
	}
	return nil, fmt.Errorf("%w: no history for %s", apperrors.ErrPriceSourceFailure, key)
}

func historyKey(symbol, currency string) string {
	return symbol + "/" + currency
}

// FlatHistory builds a daily series at a constant price, from the given
// start date through today. Handy because a flat price makes every valuation
// hand-checkable.
func FlatHistory(start string, price float64) []pricesource.PricePoint {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		panic("testutil: invalid date " + start)
	}
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var points []pricesource.PricePoint
	for d := from; !d.After(end); d = d.AddDate(0, 0, 1) {
		points = append(points, pricesource.PricePoint{Date: d, Price: price})
	}
	return points
}

// StepHistory builds a daily series that starts at price and moves by step
// each day, from the given start date through today.
func StepHistory(start string, price, step float64) []pricesource.PricePoint {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		panic("testutil: invalid date " + start)
	}
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var points []pricesource.PricePoint
	p := price
	for d := from; !d.After(end); d = d.AddDate(0, 0, 1) {
		points = append(points, pricesource.PricePoint{Date: d, Price: p})
		p += step
	}
	return points
}
