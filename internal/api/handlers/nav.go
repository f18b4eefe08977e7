package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/apperrors"
	"github.com/rmartins/navengine/internal/model"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/service"
)

// NavHandler handles NAV series and return heatmap HTTP requests
type NavHandler struct {
	nav *service.NavService
	log zerolog.Logger
}

// NewNavHandler creates a new NAV handler
func NewNavHandler(nav *service.NavService, log zerolog.Logger) *NavHandler {
	return &NavHandler{nav: nav, log: log}
}

// Series returns the user's daily NAV series, from cache when fresh.
//
// Optional from/to query parameters (YYYY-MM-DD) restrict the run to trades
// inside the window; a filtered run bypasses the cache.
func (h *NavHandler) Series(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusBadRequest, "missing user", "the user query parameter is required")
		return
	}

	opts := service.GenerateOptions{}
	filter, err := dateFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}
	if filter != nil {
		opts.Filter = filter
	}

	series, err := h.nav.Generate(r.Context(), user, service.NopNotifier(), opts)
	if errors.Is(err, apperrors.ErrNoTrades) {
		respondError(w, http.StatusNotFound, "no trades on record", user)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to generate NAV series")
		respondError(w, http.StatusInternalServerError, "failed to generate NAV series", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Refresh forces a cache-invalidating rebuild of the user's NAV series.
func (h *NavHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusBadRequest, "missing user", "the user query parameter is required")
		return
	}

	series, err := h.nav.Regenerate(r.Context(), user, service.NopNotifier())
	if errors.Is(err, apperrors.ErrNoTrades) {
		respondError(w, http.StatusNotFound, "no trades on record", user)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to rebuild NAV series")
		respondError(w, http.StatusInternalServerError, "failed to rebuild NAV series", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Heatmap returns the per-year monthly compounded return table with summary
// statistics.
func (h *NavHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		respondError(w, http.StatusBadRequest, "missing user", "the user query parameter is required")
		return
	}

	heatmap, err := h.nav.Heatmap(r.Context(), user, service.NopNotifier())
	if errors.Is(err, apperrors.ErrNoTrades) {
		respondError(w, http.StatusNotFound, "no trades on record", user)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("user", user).Msg("failed to build return heatmap")
		respondError(w, http.StatusInternalServerError, "failed to build return heatmap", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, heatmap)
}

// dateFilter builds a trade predicate from the from/to query parameters.
// Returns nil when neither is present.
func dateFilter(r *http.Request) (func(model.NormalizedTrade) bool, error) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}

	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = repository.ParseTime(fromStr); err != nil {
			return nil, fmt.Errorf("invalid from date %q", fromStr)
		}
	}
	if toStr != "" {
		if to, err = repository.ParseTime(toStr); err != nil {
			return nil, fmt.Errorf("invalid to date %q", toStr)
		}
	}

	return func(t model.NormalizedTrade) bool {
		if !from.IsZero() && t.Date.Before(from) {
			return false
		}
		if !to.IsZero() && t.Date.After(to) {
			return false
		}
		return true
	}, nil
}
