package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/navcache"
	"github.com/rmartins/navengine/internal/pricesource"
)

// smallPositionThreshold marks positions whose allocation is at or below
// 0.01% of the portfolio. The flag is cosmetic (hide-from-view); small
// positions still count toward every total.
const smallPositionThreshold = 0.0001

// quoteFallbackTTL caches single-ticker fallback quotes. Deliberately much
// shorter than the NAV cache: live prices go stale in seconds, cost basis
// does not.
const quoteFallbackTTL = 30 * time.Second

// PositionService merges aggregated ledger data with live market quotes
// into per-ticker snapshots.
type PositionService struct {
	fxService        *FxService
	costBasisService *CostBasisService
	source           pricesource.Source
	quoteCache       *navcache.Cache
	log              zerolog.Logger
}

// NewPositionService creates a new PositionService. quoteCache backs the
// single-ticker fallback path; it may be shared with other cache users.
func NewPositionService(
	fxService *FxService,
	costBasisService *CostBasisService,
	source pricesource.Source,
	quoteCache *navcache.Cache,
	log zerolog.Logger,
) *PositionService {
	return &PositionService{
		fxService:        fxService,
		costBasisService: costBasisService,
		source:           source,
		quoteCache:       quoteCache,
		log:              log.With().Str("service", "positions").Logger(),
	}
}

// Positions builds the static per-ticker view: quantities, cash values,
// fees, per-operation breakdown, cost matrices and the fiat flag. It makes
// no market-data calls, so it stays cheap enough to serve on page load.
//
// Returns ErrNoTrades when the user's ledger is empty. Tickers are returned
// in alphabetical order for stable output.
func (s *PositionService) Positions(ctx context.Context, userID string, notify Notifier) ([]model.Position, error) {
	normalized, err := s.fxService.Normalize(ctx, userID, notify)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, apperrors.ErrNoTrades
	}

	byTicker := make(map[string]*model.Position)
	for _, t := range normalized {
		pos, ok := byTicker[t.Ticker]
		if !ok {
			pos = &model.Position{
				Ticker:    t.Ticker,
				Breakdown: make(map[string]model.OperationTotals),
				IsFiat:    model.IsFiat(t.Ticker),
			}
			byTicker[t.Ticker] = pos
		}
		pos.Quantity += t.Quantity
		pos.CashValueFx += t.CashValueFx
		pos.FeesFx += t.FeesFx

		op := pos.Breakdown[t.Operation]
		op.Quantity += t.Quantity
		op.CashValueFx += t.CashValueFx
		op.FeesFx += t.FeesFx
		op.TradeCount++
		pos.Breakdown[t.Operation] = op
	}

	tickers := make([]string, 0, len(byTicker))
	for ticker := range byTicker {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	positions := make([]model.Position, 0, len(tickers))
	for _, ticker := range tickers {
		pos := byTicker[ticker]
		costBasis, err := s.costBasisService.Calculate(normalized, ticker)
		if err != nil {
			return nil, err
		}
		pos.CostBasis = costBasis
		positions = append(positions, *pos)
	}

	return positions, nil
}

// PositionsDynamic builds the live view: the static positions stripped of
// fiat rows, joined with market quotes and all derived valuation fields.
//
// All non-fiat tickers go out in one batched quote request. A ticker
// missing from the batch result falls back to a single-ticker quote call
// cached under a short TTL. A ticker failing both paths is zero-filled and
// reported as a warning; valuation continues for the rest.
func (s *PositionService) PositionsDynamic(ctx context.Context, userID string, notify Notifier) (model.PositionReport, error) {
	rec := newRecorder(notify)

	static, err := s.Positions(ctx, userID, rec)
	if err != nil {
		return model.PositionReport{}, err
	}

	assets := make([]model.Position, 0, len(static))
	tickers := make([]string, 0, len(static))
	for _, pos := range static {
		if pos.IsFiat {
			continue
		}
		assets = append(assets, pos)
		tickers = append(tickers, pos.Ticker)
	}
	if len(assets) == 0 {
		return model.PositionReport{Warnings: rec.list()}, nil
	}

	currency := s.fxService.ReportingCurrency()

	matrix, err := s.source.BatchSpotQuotes(ctx, tickers, []string{currency})
	if err != nil {
		s.log.Warn().Err(err).Msg("batched quote request failed; falling back per ticker")
		rec.warn(model.WarnPriceSourceFailure, "", fmt.Sprintf("batched quote request failed: %v", err))
		matrix = pricesource.QuoteMatrix{}
	}

	snapshots := make([]model.PositionSnapshot, 0, len(assets))
	for _, pos := range assets {
		quote, ok := matrix[pos.Ticker][currency]
		if !ok || quote.Price == 0 {
			quote, ok = s.fallbackQuote(ctx, pos.Ticker, currency)
			if !ok {
				rec.warn(model.WarnPriceSourceFailure, pos.Ticker,
					"no live quote available; position valued at zero")
			}
		}
		snapshots = append(snapshots, s.buildSnapshot(pos, quote))
	}

	// Allocation needs the grand total, so it is a second pass.
	totalValue := 0.0
	for _, snap := range snapshots {
		totalValue += snap.PositionValue
	}
	totals := model.PortfolioTotals{RefreshTime: time.Now().UTC()}
	for i := range snapshots {
		if totalValue != 0 {
			snapshots[i].Allocation = snapshots[i].PositionValue / totalValue
		}
		snapshots[i].SmallPosition = snapshots[i].Allocation <= smallPositionThreshold

		totals.TotalValue += snapshots[i].PositionValue
		totals.TotalCashFx += snapshots[i].CashValueFx
		totals.TotalFeesFx += snapshots[i].FeesFx
		totals.Change24hFx += snapshots[i].Change24hFx
		totals.TotalPnlGross += snapshots[i].PnlGross
		totals.TotalPnlNet += snapshots[i].PnlNet
	}
	if totals.TotalValue != 0 {
		totals.ChangePct24h = round(totals.Change24hFx / totals.TotalValue * 100)
	}

	return model.PositionReport{
		Positions: snapshots,
		Totals:    totals,
		Warnings:  rec.list(),
	}, nil
}

// fallbackQuote serves the single-ticker path for tickers the batch request
// missed. Results are cached briefly so repeated page refreshes do not
// hammer the provider for the same laggard ticker.
func (s *PositionService) fallbackQuote(ctx context.Context, ticker, currency string) (model.Quote, bool) {
	quote, err := navcache.GetOrCompute(s.quoteCache, "quote_"+ticker+"_"+currency, quoteFallbackTTL,
		func() (model.Quote, error) {
			return s.source.SpotQuote(ctx, ticker, currency)
		})
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("fallback quote failed")
		return model.Quote{}, false
	}
	return quote, true
}

// buildSnapshot derives every valuation field for one ticker from its
// static position and a quote. A zero quote produces a zero-filled but
// well-formed snapshot.
func (s *PositionService) buildSnapshot(pos model.Position, quote model.Quote) model.PositionSnapshot {
	snap := model.PositionSnapshot{Position: pos, Quote: quote}

	snap.PositionValue = quote.Price * pos.Quantity
	snap.Change24hFx = snap.PositionValue * quote.ChangePct24h / 100
	if pos.Quantity != 0 {
		snap.Breakeven = pos.CashValueFx / pos.Quantity
	}
	snap.PnlGross = snap.PositionValue - pos.CashValueFx
	snap.PnlNet = snap.PnlGross - pos.FeesFx

	snap.FIFO = methodPnl(quote.Price, pos.Quantity, snap.PnlNet, pos.CostBasis.FIFO)
	snap.LIFO = methodPnl(quote.Price, pos.Quantity, snap.PnlNet, pos.CostBasis.LIFO)

	return snap
}

// methodPnl splits net P&L into unrealized and realized parts under one
// cost convention. A degenerate matrix (closed position) yields zero
// unrealized P&L, so everything already booked shows as realized.
func methodPnl(price, quantity, pnlNet float64, matrix model.CostMatrix) model.MethodPnl {
	var pnl model.MethodPnl
	if matrix.MatchedQuantity > 0 && !math.IsNaN(matrix.AverageCost) {
		pnl.UnrealizedPnl = (price - matrix.AverageCost) * quantity
	}
	pnl.RealizedPnl = pnlNet - pnl.UnrealizedPnl
	if quantity != 0 {
		pnl.Breakeven = price - pnl.UnrealizedPnl/quantity
	}
	return pnl
}
