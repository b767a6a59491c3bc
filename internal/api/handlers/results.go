package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fleetops/fuelrecon/internal/api/dto"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// ResultsHandler serves stored analysis results.
type ResultsHandler struct {
	*Base
	repo storage.ResultRepository
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(repo storage.ResultRepository, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		Base: NewBase(logger),
		repo: repo,
	}
}

// List handles GET /api/results - returns a filtered, paginated list.
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseResultFilter(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	list, err := h.repo.ListResults(r.Context(), filter)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ResultListResponse{
		Results:    list.Results,
		TotalCount: list.TotalCount,
		Limit:      list.Limit,
		Offset:     list.Offset,
	})
}

// Get handles GET /api/results/{transactionID} - returns one result.
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "transactionID")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	result, err := h.repo.GetResult(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Summary handles GET /api/results/summary - counts per status and anomaly
// type over an optional transaction date range.
func (h *ResultsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	from, err := ParseTimeParam(r, "from", false)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	to, err := ParseTimeParam(r, "to", true)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("to is before from"))
		return
	}

	summary, err := h.repo.GetResultSummary(r.Context(), from, to)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.SummaryResponse{ResultSummary: summary}
	if !from.IsZero() {
		s := from.UTC().Format(time.RFC3339)
		response.From = &s
	}
	if !to.IsZero() {
		s := to.UTC().Format(time.RFC3339)
		response.To = &s
	}
	h.WriteJSON(w, http.StatusOK, response)
}

func parseResultFilter(r *http.Request) (storage.ResultFilter, error) {
	q := r.URL.Query()
	filter := storage.ResultFilter{
		Status:      fleet.MatchStatus(q.Get("status")),
		AnomalyType: fleet.AnomalyType(q.Get("anomaly_type")),
		Limit:       ParseIntParam(r, "limit", dto.DefaultResultLimit),
		Offset:      ParseIntParam(r, "offset", 0),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, errInvalidParam("status", q.Get("status"))
	}
	if filter.AnomalyType != "" && !filter.AnomalyType.Valid() {
		return filter, errInvalidParam("anomaly_type", q.Get("anomaly_type"))
	}

	var err error
	if filter.IsAnomaly, err = ParseBoolParam(r, "is_anomaly"); err != nil {
		return filter, err
	}
	if filter.VehicleID, err = ParseInt64Param(r, "vehicle_id"); err != nil {
		return filter, err
	}
	if filter.CardID, err = ParseInt64Param(r, "card_id"); err != nil {
		return filter, err
	}
	if filter.OrganizationID, err = ParseInt64Param(r, "organization_id"); err != nil {
		return filter, err
	}
	if filter.From, err = ParseTimeParam(r, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = ParseTimeParam(r, "to", true); err != nil {
		return filter, err
	}
	return filter, nil
}
