package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("not found")

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultRunLimit  = 20
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// ResultList contains paginated results
type ResultList struct {
	Results    []*fleet.AnalysisResult `json:"results"`
	TotalCount int                     `json:"total_count"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

// ResultSummary contains aggregate counts over stored results
type ResultSummary struct {
	Total             int                       `json:"total"`
	Anomalies         int                       `json:"anomalies"`
	AverageConfidence float64                   `json:"average_confidence"`
	ByStatus          map[fleet.MatchStatus]int `json:"by_status"`
	ByAnomaly         map[fleet.AnomalyType]int `json:"by_anomaly"`
}

func newResultSummary() *ResultSummary {
	s := &ResultSummary{
		ByStatus:  make(map[fleet.MatchStatus]int, len(fleet.MatchStatuses)),
		ByAnomaly: make(map[fleet.AnomalyType]int, len(fleet.AnomalyTypes)),
	}
	for _, st := range fleet.MatchStatuses {
		s.ByStatus[st] = 0
	}
	for _, a := range fleet.AnomalyTypes {
		s.ByAnomaly[a] = 0
	}
	return s
}

// RunStatus is the lifecycle state of a scan run
type RunStatus string

const (
	RunStatusRunning             RunStatus = "running"
	RunStatusCompleted           RunStatus = "completed"
	RunStatusCompletedWithErrors RunStatus = "completed_with_errors"
	RunStatusCancelled           RunStatus = "cancelled"
	RunStatusFailed              RunStatus = "failed"
)

// RunStatusFor derives the final status of a run from its stats
func RunStatusFor(stats *fleet.PeriodStats) RunStatus {
	switch {
	case stats.Cancelled:
		return RunStatusCancelled
	case stats.Errored > 0:
		return RunStatusCompletedWithErrors
	default:
		return RunStatusCompleted
	}
}

// Run represents a period scan record
type Run struct {
	ID          int64      `json:"id"`
	Trigger     string     `json:"trigger"`
	PeriodFrom  time.Time  `json:"period_from"`
	PeriodTo    time.Time  `json:"period_to"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Total       int        `json:"total"`
	Analyzed    int        `json:"analyzed"`
	Errored     int        `json:"errored"`
	Anomalies   int        `json:"anomalies"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func anomalyCount(stats *fleet.PeriodStats) int {
	n := 0
	for _, c := range stats.ByAnomaly {
		n += c
	}
	return n
}
