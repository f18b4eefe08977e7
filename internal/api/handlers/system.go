package handlers

import (
	"database/sql"
	"net/http"

	"github.com/rmartins/navengine/internal/database"
)

// SystemHandler handles system-level HTTP requests
type SystemHandler struct {
	db *sql.DB
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db *sql.DB) *SystemHandler {
	return &SystemHandler{db: db}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health reports service liveness and database reachability.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := database.HealthCheck(h.db); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}
