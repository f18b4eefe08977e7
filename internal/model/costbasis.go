package model

import (
	"encoding/json"
	"math"
)

// CostMatrix holds the cost attribution of a ticker's open quantity under a
// single inventory-accounting method.
//
// Invariants maintained by the cost-basis engine:
//   - MatchedQuantity equals the absolute open position of the ticker
//   - AverageCost = MatchedCashValue / MatchedQuantity (NaN when the
//     position is fully closed)
type CostMatrix struct {
	MatchedCashValue float64 `json:"matchedCashValue"` // reporting currency
	MatchedQuantity  float64 `json:"matchedQuantity"`
	TradeCount       int     `json:"tradeCount"`
	AverageCost      float64 `json:"averageCost"`
}

// MarshalJSON encodes a closed position's NaN average cost as null, which
// encoding/json would otherwise reject.
func (m CostMatrix) MarshalJSON() ([]byte, error) {
	var avg *float64
	if !math.IsNaN(m.AverageCost) {
		avg = &m.AverageCost
	}
	return json.Marshal(struct {
		MatchedCashValue float64  `json:"matchedCashValue"`
		MatchedQuantity  float64  `json:"matchedQuantity"`
		TradeCount       int      `json:"tradeCount"`
		AverageCost      *float64 `json:"averageCost"`
	}{m.MatchedCashValue, m.MatchedQuantity, m.TradeCount, avg})
}

// CostBasisResult carries the FIFO and LIFO matrices for one ticker.
// A fully closed position yields degenerate matrices (matched quantity 0,
// NaN average cost); that is a valid terminal state, not an error.
type CostBasisResult struct {
	FIFO CostMatrix `json:"fifo"`
	LIFO CostMatrix `json:"lifo"`
}
