package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/fuelrecon/internal/api/dto"
	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/application/service"
)

// ScansHandler manages background period scans.
type ScansHandler struct {
	*Base
	scans    *service.ScanService
	defaults reconcile.Params
}

// NewScansHandler creates a new scans handler.
func NewScansHandler(scans *service.ScanService, defaults reconcile.Params, logger *slog.Logger) *ScansHandler {
	return &ScansHandler{
		Base:     NewBase(logger),
		scans:    scans,
		defaults: defaults,
	}
}

// Start handles POST /api/scans - starts a new scan job.
func (h *ScansHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.PeriodRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	params := req.Params.Apply(h.defaults)
	jobID, err := h.scans.StartScan(r.Context(), service.ScanRequest{
		From:    req.From,
		To:      req.To,
		Filters: req.Filters(),
		Params:  &params,
		Trigger: "api",
	})
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	job, err := h.scans.GetScan(jobID)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.StartScanResponse{
		JobID:  jobID,
		RunID:  job.RunID,
		Status: string(job.Status),
	})
}

// List handles GET /api/scans - lists retained scan jobs.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.scans.ListScans()

	response := dto.ScanListResponse{
		Jobs:  make([]dto.ScanJobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, dto.NewScanJobResponse(job))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/scans/{jobID} - gets scan job status.
func (h *ScansHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.scans.GetScan(chi.URLParam(r, "jobID"))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewScanJobResponse(*job))
}

// Cancel handles DELETE /api/scans/{jobID} - cancels a scan job.
func (h *ScansHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.scans.CancelScan(chi.URLParam(r, "jobID")); err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "Scan job cancelling",
	})
}
