package service

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
)

// CostBasisService computes FIFO and LIFO cost attributions for the open
// quantity of one ticker from a normalized trade history.
type CostBasisService struct {
	log zerolog.Logger
}

// NewCostBasisService creates a new CostBasisService.
func NewCostBasisService(log zerolog.Logger) *CostBasisService {
	return &CostBasisService{
		log: log.With().Str("service", "costbasis").Logger(),
	}
}

// Calculate computes the FIFO and LIFO cost matrices for ticker against the
// current open position.
//
// The open position is the signed sum of all trade quantities for the
// ticker (deposits and withdrawals included). Lot matching then consumes
// only the side that built the position: buys for a long position, sells
// for a short one. A zero open position yields degenerate matrices with
// matched quantity 0 and NaN average cost — a valid fully-closed state.
//
// Matching walks the surviving side with a running cumulative quantity
// capped at the absolute open position: FIFO walks newest trade first (the
// oldest lots were consumed first, so the most recent ones remain open),
// LIFO walks oldest first. The boundary trade — the one whose inclusion
// pushes the running sum past the cap — contributes only the quantity still
// needed, with its cash value pro-rated accordingly.
//
// Returns ErrUnknownTicker when the ticker has no trades at all.
func (s *CostBasisService) Calculate(trades []model.NormalizedTrade, ticker string) (model.CostBasisResult, error) {
	asset := make([]model.NormalizedTrade, 0, len(trades))
	for _, t := range trades {
		if t.Ticker == ticker {
			asset = append(asset, t)
		}
	}
	if len(asset) == 0 {
		return model.CostBasisResult{}, apperrors.ErrUnknownTicker
	}

	openPosition := 0.0
	for _, t := range asset {
		openPosition += t.Quantity
	}

	// Keep only the side that built the position.
	var side string
	switch {
	case openPosition > 0:
		side = model.OperationBuy
	case openPosition < 0:
		side = model.OperationSell
	default:
		// Fully closed position: nothing left to attribute cost to.
		degenerate := model.CostMatrix{AverageCost: math.NaN()}
		return model.CostBasisResult{FIFO: degenerate, LIFO: degenerate}, nil
	}

	lots := make([]model.NormalizedTrade, 0, len(asset))
	for _, t := range asset {
		if t.Operation == side {
			lots = append(lots, t)
		}
	}

	target := math.Abs(openPosition)

	oldestFirst := make([]model.NormalizedTrade, len(lots))
	copy(oldestFirst, lots)
	sort.SliceStable(oldestFirst, func(i, j int) bool {
		return oldestFirst[i].Date.Before(oldestFirst[j].Date)
	})

	newestFirst := make([]model.NormalizedTrade, len(lots))
	copy(newestFirst, lots)
	sort.SliceStable(newestFirst, func(i, j int) bool {
		return newestFirst[i].Date.After(newestFirst[j].Date)
	})

	return model.CostBasisResult{
		FIFO: matchLots(newestFirst, target),
		LIFO: matchLots(oldestFirst, target),
	}, nil
}

// matchLots accumulates lots in the given order until target quantity is
// covered, pro-rating the boundary lot's cash value by the fraction of its
// quantity actually needed.
func matchLots(lots []model.NormalizedTrade, target float64) model.CostMatrix {
	var matrix model.CostMatrix
	remaining := target

	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		quantity := math.Abs(lot.Quantity)
		if quantity == 0 {
			continue
		}
		included := math.Min(quantity, remaining)
		matrix.MatchedCashValue += lot.CashValueFx * included / quantity
		matrix.TradeCount++
		remaining -= included
	}

	// The matrix always reports the full open quantity, even when the
	// surviving side covers less of it (positions built partly by deposits).
	matrix.MatchedQuantity = target
	if target > 0 {
		matrix.AverageCost = matrix.MatchedCashValue / target
	} else {
		matrix.AverageCost = math.NaN()
	}
	return matrix
}
