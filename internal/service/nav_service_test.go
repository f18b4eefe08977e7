package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/pricesource"
	"github.com/rmartins/navengine/internal/service"
	"github.com/rmartins/navengine/internal/testutil"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// historyWithJump builds a daily series priced `before` until jumpDate
// (exclusive) and `after` from jumpDate through today.
func historyWithJump(start, jumpDate string, before, after float64) []pricesource.PricePoint {
	from, _ := time.Parse("2006-01-02", start)
	jump, _ := time.Parse("2006-01-02", jumpDate)
	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var points []pricesource.PricePoint
	for d := from; !d.After(end); d = d.AddDate(0, 0, 1) {
		price := before
		if !d.Before(jump) {
			price = after
		}
		points = append(points, pricesource.PricePoint{Date: d, Price: price})
	}
	return points
}

// TestNavService_Generate tests the daily NAV series computation.
//
// WHY: The NAV index is the product of every daily return, so one wrong day
// poisons every day after it. These tests pin the axis anchoring, the Dietz
// formula, the dust gate and the index seeding with hand-checkable numbers.
func TestNavService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("flat prices yield a flat index seeded at 100", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", testutil.FlatHistory("2024-01-01", 10000))
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 10000)

		series, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}

		if !series.Complete {
			t.Error("Expected a complete series")
		}
		if len(series.Points) < 2 {
			t.Fatalf("Expected a multi-day series, got %d points", len(series.Points))
		}

		first := series.Points[0]
		wantStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		if !first.Date.Equal(wantStart) {
			t.Errorf("Series starts at %v, want the day before the first trade (%v)", first.Date, wantStart)
		}
		if first.NavIndex != 100 {
			t.Errorf("NavIndex[0] = %v, want 100", first.NavIndex)
		}
		if first.DietzReturn != 0 {
			t.Errorf("DietzReturn[0] = %v, want 0", first.DietzReturn)
		}

		last := series.Points[len(series.Points)-1]
		if !approx(last.NavIndex, 100) {
			t.Errorf("Flat prices moved the index: NavIndex = %v, want 100", last.NavIndex)
		}
		if last.PortfolioValue != 10000 {
			t.Errorf("PortfolioValue = %v, want 10000", last.PortfolioValue)
		}
		if last.CumulativeCashFlows != 10000 {
			t.Errorf("CumulativeCashFlows = %v, want 10000", last.CumulativeCashFlows)
		}
		if !approx(last.AssetAllocations["BTC"], 1) {
			t.Errorf("BTC allocation = %v, want 1", last.AssetAllocations["BTC"])
		}
	})

	t.Run("a price jump compounds into the index once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", historyWithJump("2024-01-01", "2024-01-06", 100, 110))
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 100)

		series, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}

		// Day 5 on the axis is 2024-01-06, the jump day: 100 -> 110 with no
		// flow gives a 10% Dietz return.
		jumpDay := series.Points[5]
		if !jumpDay.Date.Equal(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("Points[5].Date = %v, want 2024-01-06", jumpDay.Date)
		}
		if !approx(jumpDay.DietzReturn, 0.1) {
			t.Errorf("Jump-day return = %v, want 0.1", jumpDay.DietzReturn)
		}
		if !approx(jumpDay.NavIndex, 110) {
			t.Errorf("Jump-day NavIndex = %v, want 110", jumpDay.NavIndex)
		}

		last := series.Points[len(series.Points)-1]
		if !approx(last.NavIndex, 110) {
			t.Errorf("Final NavIndex = %v, want 110 (the jump compounds once)", last.NavIndex)
		}
	})

	t.Run("a history gap at the axis start fills from the last prior price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		// The provider's last observation before the axis is 2023-12-28;
		// the series then resumes on 2024-01-06, leaving the axis's first
		// five days unobserved.
		history := append(
			[]pricesource.PricePoint{{Date: time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC), Price: 10000}},
			testutil.FlatHistory("2024-01-06", 10000)...,
		)
		source := testutil.NewMockPriceSource().WithHistory("BTC", "USD", history)
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 10000)

		series, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}

		// The trade day falls inside the gap. Valued at the carried-over
		// price the buy is flow-neutral; valued at zero it would book a
		// -100% day and pin the index at 0 forever.
		tradeDay := series.Points[1]
		if !tradeDay.Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("Points[1].Date = %v, want 2024-01-02", tradeDay.Date)
		}
		if tradeDay.PortfolioValue != 10000 {
			t.Errorf("Trade-day PortfolioValue = %v, want 10000", tradeDay.PortfolioValue)
		}
		if !approx(tradeDay.DietzReturn, 0) {
			t.Errorf("Trade-day return = %v, want 0", tradeDay.DietzReturn)
		}

		last := series.Points[len(series.Points)-1]
		if !approx(last.NavIndex, 100) {
			t.Errorf("Final NavIndex = %v, want 100", last.NavIndex)
		}
	})

	t.Run("trade-day flows cancel out of the return", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", testutil.FlatHistory("2024-01-01", 100))
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 100)
		// A second buy much later, well past the dust gate.
		testutil.CreateBuy(t, db, "BTC", "2024-02-02", 2, 100)

		series, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}

		// 2024-02-02 is axis day 32: value goes 100 -> 300 against a +200
		// flow, so the Dietz numerator is zero.
		buyDay := series.Points[32]
		if !buyDay.Date.Equal(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("Points[32].Date = %v, want 2024-02-02", buyDay.Date)
		}
		if buyDay.PortfolioCashFlow != 200 {
			t.Errorf("Buy-day flow = %v, want 200", buyDay.PortfolioCashFlow)
		}
		if !approx(buyDay.DietzReturn, 0) {
			t.Errorf("Buy-day return = %v, want 0 (flow-neutral)", buyDay.DietzReturn)
		}
		last := series.Points[len(series.Points)-1]
		if !approx(last.NavIndex, 100) {
			t.Errorf("Final NavIndex = %v, want 100", last.NavIndex)
		}
	})

	t.Run("dust-sized portfolios never produce returns", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		// Value 3 is below the dust threshold of 5, so even a 33% price
		// move is gated to zero.
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", historyWithJump("2024-01-01", "2024-01-06", 3, 4))
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 3)

		series, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}

		for i, p := range series.Points {
			if p.DietzReturn != 0 {
				t.Fatalf("Points[%d].DietzReturn = %v, want 0 below the dust threshold", i, p.DietzReturn)
			}
		}
		last := series.Points[len(series.Points)-1]
		if last.NavIndex != 100 {
			t.Errorf("Final NavIndex = %v, want 100", last.NavIndex)
		}
	})

	t.Run("fresh cache short-circuits recomputation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", testutil.FlatHistory("2024-01-01", 10000))
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 10000)

		first, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}
		fetchesAfterFirst := source.HistoryCalls
		if fetchesAfterFirst == 0 {
			t.Fatal("Expected the first run to fetch histories")
		}

		second, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}
		if source.HistoryCalls != fetchesAfterFirst {
			t.Errorf("Second run fetched histories again (%d calls)", source.HistoryCalls)
		}
		if len(second.Points) != len(first.Points) {
			t.Errorf("Cached series has %d points, computed had %d", len(second.Points), len(first.Points))
		}

		// A forced refresh invalidates and recomputes.
		if _, err := svc.Regenerate(ctx, testutil.DefaultUser, nil); err != nil {
			t.Fatalf("Regenerate() returned unexpected error: %v", err)
		}
		if source.HistoryCalls == fetchesAfterFirst {
			t.Error("Forced refresh did not recompute")
		}
	})

	t.Run("incomplete history is returned but not cached", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", testutil.FlatHistory("2024-01-01", 10000)).
			WithFailingHistory("OBSCURE", "USD")
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 10000)
		testutil.CreateBuy(t, db, "OBSCURE", "2024-01-03", 100, 50)

		series, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate() returned unexpected error: %v", err)
		}

		if series.Complete {
			t.Error("Series with a failed ticker reported as complete")
		}
		found := false
		for _, w := range series.Warnings {
			if w.Code == model.WarnIncompleteHistory {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected an incomplete_history warning, got %v", series.Warnings)
		}

		// The failed ticker contributes nothing; the healthy one still does.
		last := series.Points[len(series.Points)-1]
		if last.PortfolioValue != 10000 {
			t.Errorf("PortfolioValue = %v, want 10000 from the healthy ticker", last.PortfolioValue)
		}

		if _, err := svc.CacheModTime(testutil.DefaultUser); !errors.Is(err, apperrors.ErrCacheMiss) {
			t.Errorf("CacheModTime() error = %v, want ErrCacheMiss for an uncached incomplete series", err)
		}
	})

	t.Run("filtered runs can empty the ledger", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		source := testutil.NewMockPriceSource().
			WithHistory("BTC", "USD", testutil.FlatHistory("2024-01-01", 10000))
		svc := testutil.NewTestNavService(t, db, source)

		testutil.CreateBuy(t, db, "BTC", "2024-01-02", 1, 10000)

		_, err := svc.Generate(ctx, testutil.DefaultUser, nil, service.GenerateOptions{
			Filter: func(model.NormalizedTrade) bool { return false },
		})
		if !errors.Is(err, apperrors.ErrNoTrades) {
			t.Errorf("Generate() error = %v, want ErrNoTrades", err)
		}
	})

	t.Run("empty user is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestNavService(t, db, testutil.NewMockPriceSource())

		_, err := svc.Generate(ctx, "", nil, service.GenerateOptions{})
		if !errors.Is(err, apperrors.ErrEmptyUserID) {
			t.Errorf("Generate() error = %v, want ErrEmptyUserID", err)
		}
	})
}

// TestNavService_CacheKey pins the cache key derivation.
//
// WHY: The key doubles as the on-disk filename; it must be stable across
// runs and never leak the raw user identity into the filesystem.
func TestNavService_CacheKey(t *testing.T) {
	key := service.CacheKey("alice")

	if len(key) != 64 {
		t.Errorf("CacheKey length = %d, want 64 hex chars", len(key))
	}
	if key == "alice" {
		t.Error("CacheKey must not be the raw user identity")
	}
	if key != service.CacheKey("alice") {
		t.Error("CacheKey is not deterministic")
	}
	if key == service.CacheKey("bob") {
		t.Error("Distinct users share a cache key")
	}
}
