package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fleetops/fuelrecon/internal/api/dto"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
	db Pinger
}

// NewHealthHandler creates a new health handler. A nil db skips the
// database check.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		Base: NewBase(logger),
		db:   db,
	}
}

// ServeHTTP handles the health check request. It answers 503 when the
// database does not respond.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse()
	if h.db == nil {
		h.WriteJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("Database ping failed", "error", err)
		response.Status = "degraded"
		response.Database = "unreachable"
		h.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Database = "ok"
	h.WriteJSON(w, http.StatusOK, response)
}
