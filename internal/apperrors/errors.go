package apperrors

import "errors"

// Caller errors represent malformed input. These are the only failures the
// core surfaces as hard rejections; everything else degrades the output and
// is reported through warnings.
var (
	// ErrUnknownTicker indicates that a cost-basis or position request named
	// a ticker with no trades in the user's ledger.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrNoTrades indicates that the user has no trades at all, so there is
	// nothing to value.
	ErrNoTrades = errors.New("no trades recorded for user")

	// ErrEmptyUserID indicates that a required user identity is missing.
	ErrEmptyUserID = errors.New("user ID cannot be empty")

	// ErrTradeNotFound indicates that a trade with the given ID does not exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrInvalidOperation indicates a trade operation outside B, S, D, W.
	ErrInvalidOperation = errors.New("invalid trade operation")
)

// Recoverable degradations. These are wrapped into warnings at the lowest
// level that can still produce a usable result.
var (
	// ErrFxRateUnavailable indicates that no historical FX rate exists for a
	// currency/date pair. Normalization proceeds with a degraded zero rate.
	ErrFxRateUnavailable = errors.New("fx rate unavailable")

	// ErrPriceSourceFailure indicates that the market-data provider returned
	// no usable data for a ticker. Affected fields are zero-filled.
	ErrPriceSourceFailure = errors.New("price source failure")

	// ErrIncompleteHistoricalData indicates that a NAV series was built with
	// at least one ticker missing its price history. The series is returned
	// but not cached.
	ErrIncompleteHistoricalData = errors.New("incomplete historical price data")
)

// Cache errors.
var (
	// ErrCacheMiss indicates that no cached entry exists for the key, or the
	// entry is older than its time-to-live. Callers recompute.
	ErrCacheMiss = errors.New("cache entry missing or stale")

	// ErrCacheCorrupt indicates that a cached payload could not be decoded.
	// Treated identically to a miss: the entry is discarded and recomputed.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)
