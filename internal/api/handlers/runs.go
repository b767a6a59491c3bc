package handlers

import (
	"log/slog"
	"net/http"

	"github.com/fleetops/fuelrecon/internal/api/dto"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// RunsHandler handles scan run history requests.
type RunsHandler struct {
	*Base
	repo storage.RunRepository
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.RunRepository, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(logger),
		repo: repo,
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", dto.DefaultRunLimit)

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.RunListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

// Get handles GET /api/runs/{id} - returns a single run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	run, err := h.repo.GetRun(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, run)
}
