package fleet

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the reconciliation verdict for a transaction.
type MatchStatus string

const (
	StatusMatched          MatchStatus = "matched"
	StatusLocationMismatch MatchStatus = "location_mismatch"
	StatusMultipleMatches  MatchStatus = "multiple_matches"
	StatusNoRefuel         MatchStatus = "no_refuel"
)

// MatchStatuses lists every status in a stable order.
var MatchStatuses = []MatchStatus{
	StatusMatched,
	StatusLocationMismatch,
	StatusMultipleMatches,
	StatusNoRefuel,
}

// Valid reports whether s is a known status.
func (s MatchStatus) Valid() bool {
	for _, known := range MatchStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AnomalyType categorises a flagged transaction.
type AnomalyType string

const (
	AnomalyDataError  AnomalyType = "data_error"
	AnomalyFuelTheft  AnomalyType = "fuel_theft"
	AnomalyCardMisuse AnomalyType = "card_misuse"
)

// AnomalyTypes lists every anomaly category in a stable order.
var AnomalyTypes = []AnomalyType{
	AnomalyDataError,
	AnomalyFuelTheft,
	AnomalyCardMisuse,
}

// Valid reports whether a is a known anomaly category.
func (a AnomalyType) Valid() bool {
	for _, known := range AnomalyTypes {
		if a == known {
			return true
		}
	}
	return false
}

// GeofenceOutcome is the result of testing the vehicle position against the
// station geofence.
type GeofenceOutcome string

const (
	GeofenceInside       GeofenceOutcome = "inside"
	GeofenceOutside      GeofenceOutcome = "outside"
	GeofenceUnresolvable GeofenceOutcome = "unresolvable"
)

// UnresolvedReason explains why no geofence check was performed.
type UnresolvedReason string

const (
	ReasonNoStation            UnresolvedReason = "no_station"
	ReasonNoStationCoordinates UnresolvedReason = "no_station_coordinates"
	ReasonNoLocation           UnresolvedReason = "no_location"
)

// TransactionSnapshot is the transaction as it looked when analyzed.
type TransactionSnapshot struct {
	ID             int64           `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	CardNumber     string          `json:"card_number,omitempty"`
	FuelType       string          `json:"fuel_type,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	StationID      *int64          `json:"station_id,omitempty"`
	VehicleID      *int64          `json:"vehicle_id,omitempty"`
	OrganizationID *int64          `json:"organization_id,omitempty"`
}

// StationSnapshot is the station as it looked when analyzed.
type StationSnapshot struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// LocationSnapshot is the telemetry sample used for the geofence check.
type LocationSnapshot struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
}

// Diagnostics is the evidence behind a result.
type Diagnostics struct {
	Transaction      TransactionSnapshot `json:"transaction"`
	Station          *StationSnapshot    `json:"station,omitempty"`
	Location         *LocationSnapshot   `json:"location,omitempty"`
	CandidateCount   int                 `json:"candidate_count"`
	Geofence         GeofenceOutcome     `json:"geofence"`
	UnresolvedReason UnresolvedReason    `json:"unresolved_reason,omitempty"`
}

// AnalysisResult is the stored outcome of reconciling one transaction.
type AnalysisResult struct {
	TransactionID   int64            `json:"transaction_id"`
	RefuelID        *int64           `json:"refuel_id,omitempty"`
	FuelCardID      *int64           `json:"fuel_card_id,omitempty"`
	VehicleID       *int64           `json:"vehicle_id,omitempty"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
	Status          MatchStatus      `json:"status"`
	Confidence      int              `json:"confidence"`
	DistanceMeters  *float64         `json:"distance_meters,omitempty"`
	TimeDiffSeconds *int64           `json:"time_diff_seconds,omitempty"`
	QuantityDiff    *decimal.Decimal `json:"quantity_diff,omitempty"`
	Diagnostics     Diagnostics      `json:"diagnostics"`
	IsAnomaly       bool             `json:"is_anomaly"`
	AnomalyType     *AnomalyType     `json:"anomaly_type,omitempty"`
}

// Validate checks the result invariants.
func (r *AnalysisResult) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown match status %q", r.Status)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range [0,100]", r.Confidence)
	}
	if r.IsAnomaly != (r.AnomalyType != nil) {
		return fmt.Errorf("anomaly type must be set iff is_anomaly (is_anomaly=%t)", r.IsAnomaly)
	}
	if r.AnomalyType != nil && !r.AnomalyType.Valid() {
		return fmt.Errorf("unknown anomaly type %q", *r.AnomalyType)
	}
	return nil
}

// TransactionError records a transaction that could not be analyzed.
type TransactionError struct {
	TransactionID int64  `json:"transaction_id"`
	Message       string `json:"message"`
}

// PeriodStats aggregates a batch analysis.
type PeriodStats struct {
	Total     int                 `json:"total"`
	Analyzed  int                 `json:"analyzed"`
	Errored   int                 `json:"errored"`
	ByStatus  map[MatchStatus]int `json:"by_status"`
	ByAnomaly map[AnomalyType]int `json:"by_anomaly"`
	Errors    []TransactionError  `json:"errors"`
	Cancelled bool                `json:"cancelled"`
}

// NewPeriodStats returns stats with every known key present and zeroed.
func NewPeriodStats() *PeriodStats {
	stats := &PeriodStats{
		ByStatus:  make(map[MatchStatus]int, len(MatchStatuses)),
		ByAnomaly: make(map[AnomalyType]int, len(AnomalyTypes)),
		Errors:    make([]TransactionError, 0),
	}
	for _, s := range MatchStatuses {
		stats.ByStatus[s] = 0
	}
	for _, a := range AnomalyTypes {
		stats.ByAnomaly[a] = 0
	}
	return stats
}

// Record counts a produced result.
func (s *PeriodStats) Record(r *AnalysisResult) {
	s.Analyzed++
	s.ByStatus[r.Status]++
	if r.AnomalyType != nil {
		s.ByAnomaly[*r.AnomalyType]++
	}
}

// RecordError counts a failed transaction.
func (s *PeriodStats) RecordError(transactionID int64, err error) {
	s.Errored++
	s.Errors = append(s.Errors, TransactionError{
		TransactionID: transactionID,
		Message:       err.Error(),
	})
}
