package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/repository"
)

// DefaultUser is the ledger owner used by the trade factories unless
// overridden.
const DefaultUser = "test-user"

// TradeBuilder provides a fluent interface for creating test trades.
//
// Example usage:
//
//	// Simple creation with defaults (a BTC buy)
//	trade := testutil.NewTrade().Build(t, db)
//
//	// Customized trade
//	trade := testutil.NewTrade().
//	    WithTicker("ETH").
//	    Sell(2, 1500).
//	    OnDate("2024-03-01").
//	    Build(t, db)
type TradeBuilder struct {
	ID        string
	UserID    string
	Date      time.Time
	Ticker    string
	Operation string
	Quantity  float64
	Price     float64
	CashValue float64
	Fees      float64
	Currency  string
}

// NewTrade creates a TradeBuilder with sensible defaults: a buy of 1 BTC for
// 10000 USD on 2024-01-02.
func NewTrade() *TradeBuilder {
	return &TradeBuilder{
		ID:        MakeID(),
		UserID:    DefaultUser,
		Date:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Ticker:    "BTC",
		Operation: model.OperationBuy,
		Quantity:  1,
		Price:     10000,
		CashValue: 10000,
		Fees:      0,
		Currency:  "USD",
	}
}

// WithUser sets the ledger owner.
func (b *TradeBuilder) WithUser(userID string) *TradeBuilder {
	b.UserID = userID
	return b
}

// WithTicker sets the traded asset.
func (b *TradeBuilder) WithTicker(ticker string) *TradeBuilder {
	b.Ticker = ticker
	return b
}

// WithCurrency sets the trade currency.
func (b *TradeBuilder) WithCurrency(currency string) *TradeBuilder {
	b.Currency = currency
	return b
}

// WithFees sets the trade fees.
func (b *TradeBuilder) WithFees(fees float64) *TradeBuilder {
	b.Fees = fees
	return b
}

// OnDate sets the trade date from a YYYY-MM-DD string.
func (b *TradeBuilder) OnDate(date string) *TradeBuilder {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic("testutil: invalid date " + date)
	}
	b.Date = parsed
	return b
}

// On sets the trade date directly.
func (b *TradeBuilder) On(date time.Time) *TradeBuilder {
	b.Date = date
	return b
}

// Buy configures a buy of the given quantity at the given unit price.
// Quantity is stored positive and cash value follows quantity * price.
func (b *TradeBuilder) Buy(quantity, price float64) *TradeBuilder {
	b.Operation = model.OperationBuy
	b.Quantity = quantity
	b.Price = price
	b.CashValue = quantity * price
	return b
}

// Sell configures a sell of the given quantity at the given unit price.
// Quantity and cash value are stored negative.
func (b *TradeBuilder) Sell(quantity, price float64) *TradeBuilder {
	b.Operation = model.OperationSell
	b.Quantity = -quantity
	b.Price = price
	b.CashValue = -quantity * price
	return b
}

// Deposit configures a cash deposit of the given amount.
func (b *TradeBuilder) Deposit(amount float64) *TradeBuilder {
	b.Operation = model.OperationDeposit
	b.Quantity = amount
	b.Price = 1
	b.CashValue = amount
	return b
}

// Withdraw configures a cash withdrawal of the given amount.
func (b *TradeBuilder) Withdraw(amount float64) *TradeBuilder {
	b.Operation = model.OperationWithdraw
	b.Quantity = -amount
	b.Price = 1
	b.CashValue = -amount
	return b
}

// Trade returns the built trade without persisting it.
func (b *TradeBuilder) Trade() model.Trade {
	return model.Trade{
		ID:        b.ID,
		UserID:    b.UserID,
		Date:      b.Date,
		Ticker:    b.Ticker,
		Operation: b.Operation,
		Quantity:  b.Quantity,
		Price:     b.Price,
		CashValue: b.CashValue,
		Fees:      b.Fees,
		Currency:  b.Currency,
	}
}

// Build persists the trade through the repository and returns it.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Trade {
	t.Helper()

	repo := repository.NewTradeRepository(db)
	trade, err := repo.Create(b.Trade())
	if err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}
	return trade
}

// Convenience functions

// CreateBuy persists a buy trade for the default user.
func CreateBuy(t *testing.T, db *sql.DB, ticker, date string, quantity, price float64) model.Trade {
	t.Helper()
	return NewTrade().WithTicker(ticker).OnDate(date).Buy(quantity, price).Build(t, db)
}

// CreateSell persists a sell trade for the default user.
func CreateSell(t *testing.T, db *sql.DB, ticker, date string, quantity, price float64) model.Trade {
	t.Helper()
	return NewTrade().WithTicker(ticker).OnDate(date).Sell(quantity, price).Build(t, db)
}

// MakeID generates a UUID string for use in tests.
func MakeID() string {
	return uuid.New().String()
}
