package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/service"
)

// TradeHandler handles trade ledger HTTP requests
type TradeHandler struct {
	repo *repository.TradeRepository
	nav  *service.NavService
	log  zerolog.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(repo *repository.TradeRepository, nav *service.NavService, log zerolog.Logger) *TradeHandler {
	return &TradeHandler{repo: repo, nav: nav, log: log}
}

// List returns the user's trades in ascending date order.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusBadRequest, "missing user", "the user query parameter is required")
		return
	}

	trades, err := h.repo.GetTrades(user)
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to load trades")
		respondError(w, http.StatusInternalServerError, "failed to load trades", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

// Get returns a single trade by ID.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trade, err := h.repo.GetTrade(id)
	if errors.Is(err, apperrors.ErrTradeNotFound) {
		respondError(w, http.StatusNotFound, "trade not found", id)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("trade", id).Msg("failed to load trade")
		respondError(w, http.StatusInternalServerError, "failed to load trade", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, trade)
}

// CreateTradeRequest is the payload for recording a new trade.
type CreateTradeRequest struct {
	UserID    string  `json:"user_id"`
	Date      string  `json:"date"`
	Ticker    string  `json:"ticker"`
	Operation string  `json:"operation"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
	CashValue float64 `json:"cash_value"`
	Fees      float64 `json:"fees"`
	Currency  string  `json:"currency"`
}

// Create records a trade and invalidates the user's NAV cache so the next
// series read reflects it.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	date, err := repository.ParseTime(req.Date)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid trade date", req.Date)
		return
	}

	trade, err := h.repo.Create(model.Trade{
		UserID:    req.UserID,
		Date:      date,
		Ticker:    strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Operation: strings.ToUpper(strings.TrimSpace(req.Operation)),
		Quantity:  req.Quantity,
		Price:     req.Price,
		CashValue: req.CashValue,
		Fees:      req.Fees,
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
	if errors.Is(err, apperrors.ErrEmptyUserID) || errors.Is(err, apperrors.ErrInvalidOperation) {
		respondError(w, http.StatusBadRequest, "invalid trade", err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", req.UserID).Msg("failed to record trade")
		respondError(w, http.StatusInternalServerError, "failed to record trade", err.Error())
		return
	}

	if err := h.nav.InvalidateCache(trade.UserID); err != nil {
		h.log.Warn().Err(err).Str("user", trade.UserID).Msg("failed to invalidate NAV cache after trade")
	}

	respondJSON(w, http.StatusCreated, trade)
}
