package storage

import (
	"context"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory mock)
// and makes testing with mocks straightforward.
type Repository interface {
	TransactionRepository
	ReferenceRepository
	TelemetryRepository
	ResultRepository
	RunRepository
	Ping(ctx context.Context) error
	Close() error
}

// TransactionRepository reads and writes fuel-card transactions
type TransactionRepository interface {
	// GetTransaction retrieves a transaction by ID. Returns ErrNotFound if absent.
	GetTransaction(ctx context.Context, id int64) (*fleet.Transaction, error)

	// ListTransactions returns transactions matching the filter, oldest first
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*fleet.Transaction, error)

	// SaveTransaction inserts or replaces a transaction. A zero ID is assigned.
	SaveTransaction(ctx context.Context, tx *fleet.Transaction) error
}

// TransactionFilter selects transactions for batch analysis.
// Zero values mean "no restriction".
type TransactionFilter struct {
	From            time.Time // Inclusive
	To              time.Time // Inclusive
	CardIDs         []int64   // Matched through the card number
	VehicleIDs      []int64   // Transaction vehicle or the card's assigned vehicle
	OrganizationIDs []int64
	Limit           int
}

// ReferenceRepository handles cards, stations and assignments
type ReferenceRepository interface {
	GetFuelCard(ctx context.Context, id int64) (*fleet.FuelCard, error)
	GetFuelCardByNumber(ctx context.Context, number string) (*fleet.FuelCard, error)
	SaveFuelCard(ctx context.Context, card *fleet.FuelCard) error

	GetGasStation(ctx context.Context, id int64) (*fleet.GasStation, error)
	SaveGasStation(ctx context.Context, station *fleet.GasStation) error

	// ListCardAssignments returns the dated assignments of a card, oldest first
	ListCardAssignments(ctx context.Context, cardID int64) ([]fleet.CardAssignment, error)
	SaveCardAssignment(ctx context.Context, a *fleet.CardAssignment) error
}

// TelemetryRepository reads the append-only vehicle feeds
type TelemetryRepository interface {
	// ListRefuels returns refuels of a vehicle within [from, to]. A non-empty
	// fuelType restricts the label.
	ListRefuels(ctx context.Context, vehicleID int64, from, to time.Time, fuelType string) ([]fleet.VehicleRefuel, error)
	SaveRefuel(ctx context.Context, r *fleet.VehicleRefuel) error

	// ListLocations returns location samples of a vehicle within [from, to]
	ListLocations(ctx context.Context, vehicleID int64, from, to time.Time) ([]fleet.VehicleLocation, error)
	SaveLocation(ctx context.Context, l *fleet.VehicleLocation) error
}

// ResultRepository handles analysis results, one row per transaction
type ResultRepository interface {
	// UpsertResult creates the result or overwrites every field of the
	// existing one, atomically per transaction ID
	UpsertResult(ctx context.Context, r *fleet.AnalysisResult) error

	// GetResult retrieves the result of a transaction. Returns ErrNotFound if absent.
	GetResult(ctx context.Context, transactionID int64) (*fleet.AnalysisResult, error)

	// ListResults returns results matching the filter with pagination
	ListResults(ctx context.Context, filter ResultFilter) (*ResultList, error)

	// GetResultSummary aggregates results whose transaction falls in [from, to]
	GetResultSummary(ctx context.Context, from, to time.Time) (*ResultSummary, error)
}

// ResultFilter defines filters for listing results
type ResultFilter struct {
	Status         fleet.MatchStatus // Empty = all
	IsAnomaly      *bool
	AnomalyType    fleet.AnomalyType // Empty = all
	VehicleID      *int64
	CardID         *int64
	OrganizationID *int64
	From           time.Time // Transaction time, inclusive
	To             time.Time // Transaction time, inclusive
	Limit          int       // Max results (0 = default 50)
	Offset         int       // Pagination offset
}

// RunRepository tracks period scans
type RunRepository interface {
	// StartRun records the start of a scan and returns the run ID
	StartRun(ctx context.Context, from, to time.Time, trigger string) (int64, error)

	// CompleteRun records the outcome of a scan
	CompleteRun(ctx context.Context, runID int64, stats *fleet.PeriodStats) error

	// FailRun marks a scan that could not run at all
	FailRun(ctx context.Context, runID int64, reason string) error

	// ListRuns returns recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun retrieves a run by ID. Returns ErrNotFound if absent.
	GetRun(ctx context.Context, runID int64) (*Run, error)
}
