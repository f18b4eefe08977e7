package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
)

// TradeRepository provides data access methods for the trades table — the
// ledger store. The analytical core only ever reads from it; writes exist
// for the import/API shell.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// GetTrades retrieves all trades for the given user, sorted by trade date
// ascending. Returns an empty slice when the user has no trades; callers
// decide whether that is an error for their operation.
func (r *TradeRepository) GetTrades(userID string) ([]model.Trade, error) {
	if userID == "" {
		return nil, apperrors.ErrEmptyUserID
	}

	query := `
		SELECT id, user_id, trade_date, ticker, operation, quantity, price, cash_value, fees, currency, created_at
		FROM trades
		WHERE user_id = ?
		ORDER BY trade_date ASC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades table: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var dateStr, createdAtStr string
		var t model.Trade

		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&dateStr,
			&t.Ticker,
			&t.Operation,
			&t.Quantity,
			&t.Price,
			&t.CashValue,
			&t.Fees,
			&t.Currency,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trades table results: %w", err)
		}

		t.Date, err = ParseTime(dateStr)
		if err != nil || t.Date.IsZero() {
			return nil, fmt.Errorf("failed to parse trade date: %w", err)
		}
		t.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			t.CreatedAt = t.Date
		}

		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades table: %w", err)
	}

	return trades, nil
}

// GetOldestTradeDate finds the date of the earliest trade for the user.
// Returns time.Time{} (zero value) when the user has no trades.
func (r *TradeRepository) GetOldestTradeDate(userID string) time.Time {
	var oldestDateStr sql.NullString

	err := r.db.QueryRow(`SELECT MIN(trade_date) FROM trades WHERE user_id = ?`, userID).Scan(&oldestDateStr)
	if err != nil || !oldestDateStr.Valid {
		return time.Time{}
	}

	oldest, err := ParseTime(oldestDateStr.String)
	if err != nil {
		return time.Time{}
	}
	return oldest
}

// Create inserts a new trade into the ledger. A missing ID is generated.
// The analytical core never calls this; it exists for the API shell and
// import tooling.
func (r *TradeRepository) Create(t model.Trade) (model.Trade, error) {
	if t.UserID == "" {
		return model.Trade{}, apperrors.ErrEmptyUserID
	}
	switch t.Operation {
	case model.OperationBuy, model.OperationSell, model.OperationDeposit, model.OperationWithdraw:
	default:
		return model.Trade{}, apperrors.ErrInvalidOperation
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO trades (id, user_id, trade_date, ticker, operation, quantity, price, cash_value, fees, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Date.UTC().Format(time.RFC3339),
		t.Ticker,
		t.Operation,
		t.Quantity,
		t.Price,
		t.CashValue,
		t.Fees,
		t.Currency,
		t.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return model.Trade{}, fmt.Errorf("failed to insert trade: %w", err)
	}

	return t, nil
}

// GetTrade retrieves a single trade by ID.
func (r *TradeRepository) GetTrade(id string) (model.Trade, error) {
	var dateStr, createdAtStr string
	var t model.Trade

	err := r.db.QueryRow(`
		SELECT id, user_id, trade_date, ticker, operation, quantity, price, cash_value, fees, currency, created_at
		FROM trades WHERE id = ?`, id).Scan(
		&t.ID, &t.UserID, &dateStr, &t.Ticker, &t.Operation,
		&t.Quantity, &t.Price, &t.CashValue, &t.Fees, &t.Currency, &createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trade{}, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return model.Trade{}, fmt.Errorf("failed to query trade: %w", err)
	}

	t.Date, err = ParseTime(dateStr)
	if err != nil {
		return model.Trade{}, fmt.Errorf("failed to parse trade date: %w", err)
	}
	t.CreatedAt, _ = ParseTime(createdAtStr)

	return t, nil
}
