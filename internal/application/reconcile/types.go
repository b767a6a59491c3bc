package reconcile

import (
	"log/slog"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/vehicle"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// DefaultWorkers bounds concurrent analyses in batch calls
const DefaultWorkers = 4

// DefaultCardLookback is the range AnalyzeCard uses when none is given
const DefaultCardLookback = 30 * 24 * time.Hour

// Store is the storage surface the orchestrator needs
type Store interface {
	storage.TransactionRepository
	storage.ReferenceRepository
	storage.TelemetryRepository
	storage.ResultRepository
}

// PeriodFilters narrows AnalyzePeriod. Empty slices mean no restriction.
type PeriodFilters struct {
	CardIDs         []int64 `json:"card_ids,omitempty"`
	VehicleIDs      []int64 `json:"vehicle_ids,omitempty"`
	OrganizationIDs []int64 `json:"organization_ids,omitempty"`
}

// Orchestrator drives single-transaction and batch reconciliation
type Orchestrator struct {
	store    Store
	vehicles vehicle.Resolver
	workers  int
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithVehicleResolver swaps the vehicle resolution policy
func WithVehicleResolver(r vehicle.Resolver) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.vehicles = r
		}
	}
}

// WithWorkers sets the batch worker pool size
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithClock overrides the time source used for analysis timestamps and
// default ranges
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// NewOrchestrator creates a new reconciliation orchestrator
func NewOrchestrator(store Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		store:    store,
		vehicles: vehicle.CardAssignment{},
		workers:  DefaultWorkers,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
