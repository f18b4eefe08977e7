package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/config"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/navcache"
	"github.com/rmartins/navengine/internal/pricesource"
	"github.com/rmartins/navengine/internal/timeseries"
)

// historicalFetchParallelism bounds concurrent historical-price requests so
// one NAV rebuild cannot flood the provider.
const historicalFetchParallelism = 4

// NavService builds the daily portfolio valuation series: per-asset
// positions and cash flows on a canonical date axis, portfolio totals, the
// Modified Dietz daily return and the cumulative NAV index. Results are
// persisted in a disk cache keyed by a hash of the user identity.
type NavService struct {
	fxService *FxService
	source    pricesource.Source
	cache     *navcache.Cache
	cfg       config.NavConfig
	log       zerolog.Logger
}

// NewNavService creates a new NavService. cfg carries the cache freshness
// window and the dust threshold; both are explicit here rather than global.
func NewNavService(
	fxService *FxService,
	source pricesource.Source,
	cache *navcache.Cache,
	cfg config.NavConfig,
	log zerolog.Logger,
) *NavService {
	return &NavService{
		fxService: fxService,
		source:    source,
		cache:     cache,
		cfg:       cfg,
		log:       log.With().Str("service", "nav").Logger(),
	}
}

// GenerateOptions controls a NAV generation run.
type GenerateOptions struct {
	// Force invalidates the cached series before recomputing. The deletion
	// happens first so a concurrent reader sees either the old complete
	// entry or a miss, never a partial write.
	Force bool

	// Filter restricts the run to trades the predicate accepts (a date
	// range, a sub-portfolio). Nil means all trades. Filtered runs bypass
	// the cache entirely: only the full-ledger series is ever persisted.
	Filter func(model.NormalizedTrade) bool
}

// CacheKey returns the stable cache key for a user identity.
func CacheKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// Generate returns the user's NAV series, serving a cached copy when it is
// younger than the configured renewal window and recomputing otherwise.
//
// A recomputed series is persisted only when every ticker's price history
// was obtained; an incomplete series is returned to the caller but left out
// of the cache so the next request retries.
//
// Returns ErrNoTrades when the (filtered) ledger is empty.
func (s *NavService) Generate(ctx context.Context, userID string, notify Notifier, opts GenerateOptions) (model.NavSeries, error) {
	if userID == "" {
		return model.NavSeries{}, apperrors.ErrEmptyUserID
	}
	key := CacheKey(userID)

	// Filtered runs never touch the cache: the persisted entry always holds
	// the full-ledger series.
	if opts.Filter != nil {
		return s.recompute(ctx, userID, key, notify, opts.Filter)
	}

	if opts.Force {
		if err := s.cache.Invalidate(key); err != nil {
			s.log.Warn().Err(err).Msg("failed to invalidate NAV cache before rebuild")
		}
	} else if s.cache.Fresh(key, s.cfg.RenewalTTL()) {
		var cached model.NavSeries
		if err := s.cache.Read(key, &cached); err == nil {
			s.log.Debug().Str("user", userID).Msg("serving NAV from cache")
			return cached, nil
		}
		// Corrupt or vanished between the stat and the read: recompute.
	}

	return s.recompute(ctx, userID, key, notify, opts.Filter)
}

// Regenerate forces a cache-invalidating rebuild. Intended for background
// tasks and new-trade events.
func (s *NavService) Regenerate(ctx context.Context, userID string, notify Notifier) (model.NavSeries, error) {
	return s.Generate(ctx, userID, notify, GenerateOptions{Force: true})
}

// InvalidateCache deletes the persisted series for the user so the next
// read recomputes. Used when new trades land.
func (s *NavService) InvalidateCache(userID string) error {
	return s.cache.Invalidate(CacheKey(userID))
}

// CacheModTime returns the last-modified timestamp of the persisted series,
// without deserializing it. Returns ErrCacheMiss when nothing is cached.
func (s *NavService) CacheModTime(userID string) (time.Time, error) {
	return s.cache.ModTime(CacheKey(userID))
}

// recompute rebuilds the full series from the normalized ledger and the
// provider's historical prices.
func (s *NavService) recompute(ctx context.Context, userID, key string, notify Notifier, filter func(model.NormalizedTrade) bool) (model.NavSeries, error) {
	rec := newRecorder(notify)
	started := time.Now()

	normalized, err := s.fxService.Normalize(ctx, userID, rec)
	if err != nil {
		return model.NavSeries{}, err
	}
	if filter != nil {
		filtered := normalized[:0:0]
		for _, t := range normalized {
			if filter(t) {
				filtered = append(filtered, t)
			}
		}
		normalized = filtered
	}
	if len(normalized) == 0 {
		return model.NavSeries{}, apperrors.ErrNoTrades
	}

	// Canonical axis: the day before the first trade through today. The
	// extra leading day anchors the Dietz return of the first trade day.
	first := normalized[0].Day()
	for _, t := range normalized {
		if t.Day().Before(first) {
			first = t.Day()
		}
	}
	axis := timeseries.NewDailyAxis(first.AddDate(0, 0, -1), time.Now())

	tickers := nonFiatTickers(normalized)
	histories := s.fetchHistories(ctx, tickers, rec)

	n := axis.Len()
	portValue := make([]float64, n)
	portFlow := make([]float64, n)

	assetValues := make(map[string][]float64, len(tickers))
	assetFlows := make(map[string][]float64, len(tickers))

	complete := true
	for _, ticker := range tickers {
		points, ok := histories[ticker]
		if !ok {
			// No price history at all: the ticker contributes zero for its
			// whole span and the series is marked incomplete.
			complete = false
			continue
		}

		// Reindex onto the axis. A provider series can start before the
		// axis or have a gap at its first days; the most recent pre-axis
		// observation seeds the forward fill so early days are not priced
		// at zero.
		pricePoints := make([]timeseries.Point, 0, len(points))
		axisStart := axis.Date(0)
		var preAxis float64
		var preAxisDate time.Time
		havePreAxis := false
		for _, p := range points {
			day := timeseries.Day(p.Date)
			if day.Before(axisStart) {
				if !havePreAxis || day.After(preAxisDate) {
					preAxis = p.Price
					preAxisDate = day
					havePreAxis = true
				}
				continue
			}
			pricePoints = append(pricePoints, timeseries.Point{Date: p.Date, Value: p.Price})
		}
		prices, present := axis.Last(pricePoints)
		if havePreAxis && !present[0] {
			prices[0] = preAxis
			present[0] = true
		}
		timeseries.ForwardFill(prices, present)

		var quantityPoints, flowPoints []timeseries.Point
		for _, t := range normalized {
			if t.Ticker != ticker {
				continue
			}
			quantityPoints = append(quantityPoints, timeseries.Point{Date: t.Day(), Value: t.Quantity})
			flowPoints = append(flowPoints, timeseries.Point{Date: t.Day(), Value: t.CashValueFx})
		}

		quantities, qPresent := axis.Sum(quantityPoints)
		timeseries.ZeroFill(quantities, qPresent)
		positions := timeseries.CumulativeSum(quantities)

		flows, fPresent := axis.Sum(flowPoints)
		timeseries.ZeroFill(flows, fPresent)

		values := make([]float64, n)
		for i := 0; i < n; i++ {
			values[i] = prices[i] * positions[i]
			portValue[i] += values[i]
			portFlow[i] += flows[i]
		}
		assetValues[ticker] = values
		assetFlows[ticker] = flows
	}

	returns := s.dietzReturns(portValue, portFlow)

	points := make([]model.DailyNavPoint, n)
	navIndex := 100.0
	cumFlows := 0.0
	for i := 0; i < n; i++ {
		if i > 0 {
			navIndex *= 1 + returns[i]
		}
		cumFlows += portFlow[i]

		values := make(map[string]float64, len(assetValues))
		flows := make(map[string]float64, len(assetFlows))
		allocations := make(map[string]float64, len(assetValues))
		for ticker, series := range assetValues {
			values[ticker] = series[i]
			flows[ticker] = assetFlows[ticker][i]
			if portValue[i] != 0 {
				allocations[ticker] = series[i] / portValue[i]
			}
		}

		points[i] = model.DailyNavPoint{
			Date:                axis.Date(i),
			AssetValues:         values,
			AssetCashFlows:      flows,
			AssetAllocations:    allocations,
			PortfolioValue:      portValue[i],
			PortfolioCashFlow:   portFlow[i],
			DietzReturn:         returns[i],
			NavIndex:            navIndex,
			CumulativeCashFlows: cumFlows,
		}
	}

	series := model.NavSeries{
		ReportingCurrency: s.fxService.ReportingCurrency(),
		Points:            points,
		GeneratedAt:       time.Now().UTC(),
		Complete:          complete,
	}

	if complete && filter == nil {
		if err := s.cache.Write(key, series); err != nil {
			s.log.Error().Err(err).Msg("failed to persist NAV series")
		}
	} else if !complete {
		rec.warn(model.WarnIncompleteHistory, "",
			"NAV series built with missing price history; result not cached")
	}
	series.Warnings = rec.list()

	s.log.Info().
		Str("user", userID).
		Int("days", n).
		Int("tickers", len(tickers)).
		Bool("complete", complete).
		Dur("elapsed", time.Since(started)).
		Msg("NAV series generated")

	return series, nil
}

// fetchHistories pulls historical price series for all tickers with bounded
// parallelism. Failures are per-ticker: the ticker is absent from the
// result and a warning is recorded.
func (s *NavService) fetchHistories(ctx context.Context, tickers []string, rec *recorder) map[string][]pricesource.PricePoint {
	histories := make(map[string][]pricesource.PricePoint, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historicalFetchParallelism)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			points, err := s.source.HistoricalSeries(gctx, ticker, s.fxService.ReportingCurrency())
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", ticker).Msg("historical prices unavailable")
				rec.warn(model.WarnPriceSourceFailure, ticker,
					fmt.Sprintf("historical prices unavailable: %v", err))
				return nil
			}
			mu.Lock()
			histories[ticker] = points
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; the group is used for bounding and ctx plumbing.
	_ = g.Wait()

	return histories
}

// dietzReturns computes the Modified Dietz daily return series.
//
// For day t: (V[t] − V[t−1] − F[t]) / (V[t−1] + |F[t]|), where F is the
// day's net cash flow. Days whose previous-day value is at or below the
// dust threshold get a forced 0, avoiding division blow-ups on near-empty
// portfolios. Day 0 has no previous value and is always 0.
func (s *NavService) dietzReturns(portValue, portFlow []float64) []float64 {
	returns := make([]float64, len(portValue))
	for i := 1; i < len(portValue); i++ {
		prev := portValue[i-1]
		if prev <= s.cfg.MinPortfolioSize {
			continue
		}
		flow := portFlow[i]
		returns[i] = (portValue[i] - prev - flow) / (prev + math.Abs(flow))
	}
	return returns
}

// nonFiatTickers returns the distinct non-fiat tickers of the ledger in
// first-seen order.
func nonFiatTickers(trades []model.NormalizedTrade) []string {
	seen := make(map[string]bool)
	var tickers []string
	for _, t := range trades {
		if seen[t.Ticker] || model.IsFiat(t.Ticker) {
			continue
		}
		seen[t.Ticker] = true
		tickers = append(tickers, t.Ticker)
	}
	return tickers
}
