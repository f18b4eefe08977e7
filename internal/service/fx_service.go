package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/pricesource"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/timeseries"
)

// FxService normalizes a user's raw trade ledger into the reporting
// currency using historical daily FX rates.
type FxService struct {
	tradeRepo         *repository.TradeRepository
	source            pricesource.Source
	reportingCurrency string
	log               zerolog.Logger
}

// NewFxService creates a new FxService. reportingCurrency is the single
// currency all trades are normalized into.
func NewFxService(
	tradeRepo *repository.TradeRepository,
	source pricesource.Source,
	reportingCurrency string,
	log zerolog.Logger,
) *FxService {
	return &FxService{
		tradeRepo:         tradeRepo,
		source:            source,
		reportingCurrency: reportingCurrency,
		log:               log.With().Str("service", "fx").Logger(),
	}
}

// ReportingCurrency returns the currency trades are normalized into.
func (s *FxService) ReportingCurrency() string {
	return s.reportingCurrency
}

// Normalize loads the user's full ledger and converts every trade's cash
// value, fees and price into the reporting currency using the FX rate of
// the trade date (floored to the day).
//
// One historical-series fetch is made per distinct trade currency; within a
// call, every trade of the same day and currency reuses the same rate. The
// reporting currency itself maps to rate 1.0 without a lookup.
//
// A missing rate for a currency/date degrades that trade to a zero rate
// (normalized fields 0) and reports a fx_rate_unavailable warning; the run
// continues. Returns an empty slice when the user has no trades.
func (s *FxService) Normalize(ctx context.Context, userID string, notify Notifier) ([]model.NormalizedTrade, error) {
	rec := newRecorder(notify)

	trades, err := s.tradeRepo.GetTrades(userID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return []model.NormalizedTrade{}, nil
	}

	// One rate table per distinct non-reporting currency, fetched lazily.
	// rate = units of the trade currency per unit of reporting currency,
	// so dividing trade amounts by it yields reporting-currency amounts.
	rateTables := make(map[string]map[time.Time]float64)
	failedCurrencies := make(map[string]bool)

	for _, t := range trades {
		if t.Currency == s.reportingCurrency {
			continue
		}
		if _, seen := rateTables[t.Currency]; seen || failedCurrencies[t.Currency] {
			continue
		}
		points, err := s.source.HistoricalSeries(ctx, s.reportingCurrency, t.Currency)
		if err != nil {
			s.log.Warn().Err(err).Str("currency", t.Currency).Msg("FX history unavailable")
			failedCurrencies[t.Currency] = true
			continue
		}
		table := make(map[time.Time]float64, len(points))
		for _, p := range points {
			table[timeseries.Day(p.Date)] = p.Price
		}
		rateTables[t.Currency] = table
	}

	normalized := make([]model.NormalizedTrade, 0, len(trades))
	for _, t := range trades {
		n := model.NormalizedTrade{Trade: t}

		rate := 0.0
		if t.Currency == s.reportingCurrency {
			rate = 1.0
		} else if table, ok := rateTables[t.Currency]; ok {
			rate = table[t.Day()]
		}

		if rate == 0 {
			rec.warn(model.WarnFxRateUnavailable, t.Ticker, fmt.Sprintf(
				"no %s/%s rate for %s; trade normalized with zero rate",
				t.Currency, s.reportingCurrency, t.Day().Format("2006-01-02")))
			normalized = append(normalized, n)
			continue
		}

		n.FxRate = rate
		n.CashValueFx = t.CashValue / rate
		n.FeesFx = t.Fees / rate
		n.PriceFx = t.Price / rate
		normalized = append(normalized, n)
	}

	return normalized, nil
}
