package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/service"
)

// PositionHandler handles position HTTP requests
type PositionHandler struct {
	positions *service.PositionService
	log       zerolog.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positions *service.PositionService, log zerolog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, log: log}
}

// List returns the static per-ticker positions, built from the ledger alone.
func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusBadRequest, "missing user", "the user query parameter is required")
		return
	}

	positions, err := h.positions.Positions(r.Context(), user, service.NopNotifier())
	if errors.Is(err, apperrors.ErrNoTrades) {
		respondError(w, http.StatusNotFound, "no trades on record", user)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to build positions")
		respondError(w, http.StatusInternalServerError, "failed to build positions", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// Live returns the full position report with live quotes, valuations and
// allocations. Quote failures degrade to zero-valued entries flagged in the
// report's warnings rather than failing the request.
func (h *PositionHandler) Live(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusBadRequest, "missing user", "the user query parameter is required")
		return
	}

	report, err := h.positions.PositionsDynamic(r.Context(), user, service.NopNotifier())
	if errors.Is(err, apperrors.ErrNoTrades) {
		respondError(w, http.StatusNotFound, "no trades on record", user)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to build position report")
		respondError(w, http.StatusInternalServerError, "failed to build position report", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}
