package model

import "time"

// Quote is a live market quote for one ticker in the reporting currency.
type Quote struct {
	Price        float64   `json:"price"`
	High24h      float64   `json:"high24h"`
	Low24h       float64   `json:"low24h"`
	ChangePct24h float64   `json:"changePct24h"`
	MarketCap    float64   `json:"marketCap"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// OperationTotals aggregates ledger rows of one operation type for a ticker.
type OperationTotals struct {
	Quantity    float64 `json:"quantity"`
	CashValueFx float64 `json:"cashValueFx"`
	FeesFx      float64 `json:"feesFx"`
	TradeCount  int     `json:"tradeCount"`
}

// Position is the static per-ticker view: everything derivable from the
// normalized ledger alone, with no market-data calls. It has to stay cheap
// enough for page-load-class latency.
type Position struct {
	Ticker      string                     `json:"ticker"`
	Quantity    float64                    `json:"quantity"`
	CashValueFx float64                    `json:"cashValueFx"`
	FeesFx      float64                    `json:"feesFx"`
	Breakdown   map[string]OperationTotals `json:"breakdown"` // keyed by operation code
	CostBasis   CostBasisResult            `json:"costBasis"`
	IsFiat      bool                       `json:"isFiat"`
}

// MethodPnl carries the per-method unrealized/realized split and the
// breakeven price implied by the method's average cost.
type MethodPnl struct {
	UnrealizedPnl float64 `json:"unrealizedPnl"`
	RealizedPnl   float64 `json:"realizedPnl"`
	Breakeven     float64 `json:"breakeven"`
}

// PositionSnapshot is the live per-ticker view: the static Position joined
// with a market Quote plus all derived valuation fields. Snapshots are
// recomputed on every request and never persisted.
type PositionSnapshot struct {
	Position
	Quote         Quote     `json:"quote"`
	PositionValue float64   `json:"positionValue"` // Quote.Price * Quantity
	Allocation    float64   `json:"allocation"`    // share of total portfolio value, 0..1
	Change24hFx   float64   `json:"change24hFx"`   // value change implied by the 24h move
	Breakeven     float64   `json:"breakeven"`     // CashValueFx / Quantity
	PnlGross      float64   `json:"pnlGross"`
	PnlNet        float64   `json:"pnlNet"`
	FIFO          MethodPnl `json:"fifo"`
	LIFO          MethodPnl `json:"lifo"`
	SmallPosition bool      `json:"smallPosition"` // allocation at or below 0.01%; cosmetic only
}

// PortfolioTotals sums the live view across tickers. Small positions are
// included; the small flag only hides rows in a UI.
type PortfolioTotals struct {
	TotalValue    float64   `json:"totalValue"`
	TotalCashFx   float64   `json:"totalCashFx"`
	TotalFeesFx   float64   `json:"totalFeesFx"`
	Change24hFx   float64   `json:"change24hFx"`
	ChangePct24h  float64   `json:"changePct24h"`
	TotalPnlGross float64   `json:"totalPnlGross"`
	TotalPnlNet   float64   `json:"totalPnlNet"`
	RefreshTime   time.Time `json:"refreshTime"`
}

// PositionReport is the full live-view result.
type PositionReport struct {
	Positions []PositionSnapshot `json:"positions"`
	Totals    PortfolioTotals    `json:"totals"`
	Warnings  []Warning          `json:"warnings,omitempty"`
}
