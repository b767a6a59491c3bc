package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fleetops/fuelrecon/internal/api/dto"
	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// Analyzer runs on-demand analyses. Implemented by reconcile.Orchestrator.
type Analyzer interface {
	AnalyzeTransaction(ctx context.Context, transactionID int64, params reconcile.Params) (*fleet.AnalysisResult, error)
	AnalyzeCard(ctx context.Context, cardID int64, from, to *time.Time, params reconcile.Params) ([]*fleet.AnalysisResult, error)
	AnalyzePeriod(ctx context.Context, from, to time.Time, filters reconcile.PeriodFilters, params reconcile.Params) (*fleet.PeriodStats, error)
}

// AnalysisHandler triggers synchronous analyses.
type AnalysisHandler struct {
	*Base
	analyzer Analyzer
	defaults reconcile.Params
}

// NewAnalysisHandler creates a new analysis handler. defaults apply to every
// field a request does not override.
func NewAnalysisHandler(analyzer Analyzer, defaults reconcile.Params, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		Base:     NewBase(logger),
		analyzer: analyzer,
		defaults: defaults,
	}
}

// Transaction handles POST /api/analysis/transactions/{transactionID}.
func (h *AnalysisHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "transactionID")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	var req dto.AnalyzeTransactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	result, err := h.analyzer.AnalyzeTransaction(r.Context(), id, req.Params.Apply(h.defaults))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Card handles POST /api/analysis/cards/{cardID}.
func (h *AnalysisHandler) Card(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "cardID")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	var req dto.AnalyzeCardRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	results, err := h.analyzer.AnalyzeCard(r.Context(), id, req.From, req.To, req.Params.Apply(h.defaults))
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.CardAnalysisResponse{
		CardID:  id,
		Results: results,
		Count:   len(results),
	})
}

// Period handles POST /api/analysis/period. The scan runs within the
// request; use /api/scans for long periods.
func (h *AnalysisHandler) Period(w http.ResponseWriter, r *http.Request) {
	var req dto.PeriodRequest
	if err := DecodeJSON(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	stats, err := h.analyzer.AnalyzePeriod(r.Context(), req.From, req.To, req.Filters(), req.Params.Apply(h.defaults))
	if err != nil && stats == nil {
		h.WriteServiceError(w, r, err)
		return
	}

	// A cancelled request still reports what was analyzed
	h.WriteJSON(w, http.StatusOK, stats)
}
