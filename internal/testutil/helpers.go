package testutil

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/config"
	"github.com/rmartins/navengine/internal/navcache"
	"github.com/rmartins/navengine/internal/pricesource"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/service"
)

// NewTestCache creates a disk cache in a per-test temp directory.
func NewTestCache(t *testing.T) *navcache.Cache {
	t.Helper()

	cache, err := navcache.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	return cache
}

// NewTestNavConfig returns the NAV settings tests run with unless they
// override fields themselves.
func NewTestNavConfig(t *testing.T) config.NavConfig {
	t.Helper()

	return config.NavConfig{
		CacheDir:          t.TempDir(),
		RenewalMinutes:    10,
		MinPortfolioSize:  5,
		ReportingCurrency: "USD",
	}
}

func NewTestFxService(t *testing.T, db *sql.DB, source pricesource.Source) *service.FxService {
	t.Helper()

	return service.NewFxService(
		repository.NewTradeRepository(db),
		source,
		"USD",
		zerolog.Nop(),
	)
}

func NewTestPositionService(t *testing.T, db *sql.DB, source pricesource.Source) *service.PositionService {
	t.Helper()

	return service.NewPositionService(
		NewTestFxService(t, db, source),
		service.NewCostBasisService(zerolog.Nop()),
		source,
		NewTestCache(t),
		zerolog.Nop(),
	)
}

func NewTestNavService(t *testing.T, db *sql.DB, source pricesource.Source) *service.NavService {
	t.Helper()

	return service.NewNavService(
		NewTestFxService(t, db, source),
		source,
		NewTestCache(t),
		NewTestNavConfig(t),
		zerolog.Nop(),
	)
}
