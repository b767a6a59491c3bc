package dto

import (
	"time"

	"github.com/fleetops/fuelrecon/internal/application/service"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ResultListResponse is returned when listing analysis results.
type ResultListResponse struct {
	Results    []*fleet.AnalysisResult `json:"results"`
	TotalCount int                     `json:"total_count"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

// SummaryResponse aggregates stored results over a transaction date range.
type SummaryResponse struct {
	From *string `json:"from,omitempty"`
	To   *string `json:"to,omitempty"`
	*storage.ResultSummary
}

// CardAnalysisResponse is returned by a card analysis.
type CardAnalysisResponse struct {
	CardID  int64                   `json:"card_id"`
	Results []*fleet.AnalysisResult `json:"results"`
	Count   int                     `json:"count"`
}

// RunListResponse is returned when listing scan runs.
type RunListResponse struct {
	Runs  []storage.Run `json:"runs"`
	Count int           `json:"count"`
}

// StartScanResponse is returned when a scan is started.
type StartScanResponse struct {
	JobID  string `json:"job_id"`
	RunID  int64  `json:"run_id"`
	Status string `json:"status"`
}

// ScanJobResponse represents a scan job's status.
type ScanJobResponse struct {
	JobID       string             `json:"job_id"`
	RunID       int64              `json:"run_id"`
	Status      string             `json:"status"`
	From        string             `json:"from"`
	To          string             `json:"to"`
	Trigger     string             `json:"trigger"`
	StartedAt   string             `json:"started_at"`
	CompletedAt *string            `json:"completed_at,omitempty"`
	Stats       *fleet.PeriodStats `json:"stats,omitempty"`
	Error       *string            `json:"error,omitempty"`
}

// ScanListResponse lists retained scan jobs.
type ScanListResponse struct {
	Jobs  []ScanJobResponse `json:"jobs"`
	Count int               `json:"count"`
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewScanJobResponse converts a service snapshot to an API response.
func NewScanJobResponse(job service.ScanJob) ScanJobResponse {
	response := ScanJobResponse{
		JobID:     job.ID,
		RunID:     job.RunID,
		Status:    string(job.Status),
		From:      job.Request.From.UTC().Format(time.RFC3339),
		To:        job.Request.To.UTC().Format(time.RFC3339),
		Trigger:   job.Request.Trigger,
		StartedAt: job.StartedAt.UTC().Format(time.RFC3339),
		Stats:     job.Stats,
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC().Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Error != "" {
		errMsg := job.Error
		response.Error = &errMsg
	}

	return response
}
