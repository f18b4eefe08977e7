package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// respondError sends a structured error response with the given status code.
func respondError(w http.ResponseWriter, status int, message, detail string) {
	respondJSON(w, status, map[string]string{
		"error":  message,
		"detail": detail,
	})
}

// userID extracts the user identity from the request query. Authentication
// lives outside this service; the shell only needs to know whose ledger to
// load.
func userID(r *http.Request) string {
	return r.URL.Query().Get("user")
}
