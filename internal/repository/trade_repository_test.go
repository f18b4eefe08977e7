package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/testutil"
)

// TestTradeRepository_GetTrades tests ledger reads.
//
// WHY: Every computation starts with GetTrades; the ascending date order is
// an assumption the NAV axis anchoring relies on.
func TestTradeRepository_GetTrades(t *testing.T) {
	t.Run("returns trades sorted by date ascending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		// Inserted out of order on purpose.
		testutil.CreateBuy(t, db, "BTC", "2024-03-01", 1, 100)
		testutil.CreateBuy(t, db, "BTC", "2024-01-01", 1, 100)
		testutil.CreateBuy(t, db, "ETH", "2024-02-01", 1, 100)

		trades, err := repo.GetTrades(testutil.DefaultUser)
		if err != nil {
			t.Fatalf("GetTrades() returned unexpected error: %v", err)
		}

		if len(trades) != 3 {
			t.Fatalf("Expected 3 trades, got %d", len(trades))
		}
		for i := 1; i < len(trades); i++ {
			if trades[i].Date.Before(trades[i-1].Date) {
				t.Errorf("Trades out of order: %v before %v", trades[i].Date, trades[i-1].Date)
			}
		}
	})

	t.Run("scopes trades to the user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		testutil.NewTrade().WithUser("alice").Buy(1, 100).Build(t, db)
		testutil.NewTrade().WithUser("bob").Buy(2, 200).Build(t, db)

		trades, err := repo.GetTrades("alice")
		if err != nil {
			t.Fatalf("GetTrades() returned unexpected error: %v", err)
		}
		if len(trades) != 1 || trades[0].UserID != "alice" {
			t.Errorf("GetTrades(alice) = %d trades for %q", len(trades), trades[0].UserID)
		}
	})

	t.Run("unknown user yields an empty slice", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		trades, err := repo.GetTrades("nobody")
		if err != nil {
			t.Fatalf("GetTrades() returned unexpected error: %v", err)
		}
		if len(trades) != 0 {
			t.Errorf("Expected empty slice, got %d trades", len(trades))
		}
	})

	t.Run("empty user id is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		if _, err := repo.GetTrades(""); !errors.Is(err, apperrors.ErrEmptyUserID) {
			t.Errorf("GetTrades(\"\") error = %v, want ErrEmptyUserID", err)
		}
	})
}

// TestTradeRepository_Create tests ledger writes and their validation.
func TestTradeRepository_Create(t *testing.T) {
	t.Run("persists a trade and generates an id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		created, err := repo.Create(model.Trade{
			UserID:    "alice",
			Date:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Ticker:    "BTC",
			Operation: model.OperationBuy,
			Quantity:  0.5,
			Price:     60000,
			CashValue: 30000,
			Currency:  "USD",
		})
		if err != nil {
			t.Fatalf("Create() returned unexpected error: %v", err)
		}
		if created.ID == "" {
			t.Error("Create() did not generate an ID")
		}

		got, err := repo.GetTrade(created.ID)
		if err != nil {
			t.Fatalf("GetTrade() returned unexpected error: %v", err)
		}
		if got.Quantity != 0.5 || got.CashValue != 30000 || got.Ticker != "BTC" {
			t.Errorf("GetTrade() = %+v, want the created trade back", got)
		}
		if !got.Date.Equal(created.Date) {
			t.Errorf("GetTrade().Date = %v, want %v", got.Date, created.Date)
		}
	})

	t.Run("rejects unknown operations", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		_, err := repo.Create(model.Trade{UserID: "alice", Operation: "X"})
		if !errors.Is(err, apperrors.ErrInvalidOperation) {
			t.Errorf("Create() error = %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("rejects a missing user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		_, err := repo.Create(model.Trade{Operation: model.OperationBuy})
		if !errors.Is(err, apperrors.ErrEmptyUserID) {
			t.Errorf("Create() error = %v, want ErrEmptyUserID", err)
		}
	})
}

// TestTradeRepository_GetTrade tests single-trade lookup.
func TestTradeRepository_GetTrade(t *testing.T) {
	t.Run("missing trade returns ErrTradeNotFound", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		if _, err := repo.GetTrade("no-such-id"); !errors.Is(err, apperrors.ErrTradeNotFound) {
			t.Errorf("GetTrade() error = %v, want ErrTradeNotFound", err)
		}
	})
}

// TestTradeRepository_GetOldestTradeDate tests the axis anchor lookup.
func TestTradeRepository_GetOldestTradeDate(t *testing.T) {
	t.Run("returns the earliest trade date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		testutil.CreateBuy(t, db, "BTC", "2024-03-01", 1, 100)
		testutil.CreateBuy(t, db, "BTC", "2024-01-15", 1, 100)

		oldest := repo.GetOldestTradeDate(testutil.DefaultUser)
		want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		if !oldest.Equal(want) {
			t.Errorf("GetOldestTradeDate() = %v, want %v", oldest, want)
		}
	})

	t.Run("no trades yields the zero time", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewTradeRepository(db)

		if oldest := repo.GetOldestTradeDate("nobody"); !oldest.IsZero() {
			t.Errorf("GetOldestTradeDate() = %v, want zero time", oldest)
		}
	})
}
