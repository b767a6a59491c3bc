// Package fleet holds the entities the reconciliation engine reads and the
// analysis result it owns.
//
// Transactions, cards, stations, refuels and locations are produced by
// collaborators outside this module (importers, telemetry collectors, reference
// data services). The engine only reads them. AnalysisResult is the one entity
// written here, exactly one per transaction.
package fleet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a fuel-card purchase.
type Transaction struct {
	ID             int64           `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	CardNumber     string          `json:"card_number,omitempty"`
	FuelType       string          `json:"fuel_type,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	StationID      *int64          `json:"station_id,omitempty"`
	VehicleID      *int64          `json:"vehicle_id,omitempty"`
	OrganizationID *int64          `json:"organization_id,omitempty"`
}

// FuelCard is a payment card, optionally assigned to a vehicle.
type FuelCard struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	VehicleID *int64 `json:"vehicle_id,omitempty"`
}

// CardAssignment binds a card to a vehicle for a period. ValidTo is nil while
// the assignment is still open.
type CardAssignment struct {
	ID        int64      `json:"id"`
	CardID    int64      `json:"card_id"`
	VehicleID int64      `json:"vehicle_id"`
	ValidFrom time.Time  `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
}

// Covers reports whether the assignment was active at t.
func (a CardAssignment) Covers(t time.Time) bool {
	if t.Before(a.ValidFrom) {
		return false
	}
	return a.ValidTo == nil || t.Before(*a.ValidTo)
}

// GasStation is a fuel station (AZS). Coordinates may be unknown.
type GasStation struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (s *GasStation) HasCoordinates() bool {
	return s != nil && s.Latitude != nil && s.Longitude != nil
}

// Provenance identifies the upstream record a feed entry came from.
type Provenance struct {
	SourceSystem string `json:"source_system,omitempty"`
	SourceID     string `json:"source_id,omitempty"`
}

// VehicleRefuel is a refuel event reported by the vehicle (tank sensor,
// odometer log).
type VehicleRefuel struct {
	ID         int64           `json:"id"`
	VehicleID  int64           `json:"vehicle_id"`
	Timestamp  time.Time       `json:"timestamp"`
	FuelType   string          `json:"fuel_type,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Provenance Provenance      `json:"provenance"`
}

// VehicleLocation is a single telemetry sample.
type VehicleLocation struct {
	ID         int64      `json:"id"`
	VehicleID  int64      `json:"vehicle_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Accuracy   *float64   `json:"accuracy,omitempty"` // meters
	Speed      *float64   `json:"speed,omitempty"`
	Heading    *float64   `json:"heading,omitempty"`
	Provenance Provenance `json:"provenance"`
}
