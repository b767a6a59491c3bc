package reconcile

import (
	"fmt"
	"math"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/locator"
	"github.com/fleetops/fuelrecon/internal/domain/matcher"
)

// Default analysis parameters
const (
	DefaultTimeWindow               = 30 * time.Minute
	DefaultQuantityTolerancePercent = 5.0
	DefaultStationRadiusMeters      = 500.0
	DefaultLocationLookupWindow     = locator.DefaultWindow
)

// Params tunes a single analysis call. It is passed by value and never
// stored on the orchestrator.
type Params struct {
	TimeWindow               time.Duration `json:"time_window"`
	QuantityTolerancePercent float64       `json:"quantity_tolerance_percent"`
	StationRadiusMeters      float64       `json:"station_radius_meters"`
	LocationLookupWindow     time.Duration `json:"location_lookup_window"`
}

// DefaultParams returns the documented defaults
func DefaultParams() Params {
	return Params{
		TimeWindow:               DefaultTimeWindow,
		QuantityTolerancePercent: DefaultQuantityTolerancePercent,
		StationRadiusMeters:      DefaultStationRadiusMeters,
		LocationLookupWindow:     DefaultLocationLookupWindow,
	}
}

// Validate rejects non-positive windows and non-positive or non-finite
// tolerances and radii
func (p Params) Validate() error {
	switch {
	case p.TimeWindow <= 0:
		return fmt.Errorf("time window must be positive, got %s: %w", p.TimeWindow, ErrInvalidRange)
	case !positiveFinite(p.QuantityTolerancePercent):
		return fmt.Errorf("quantity tolerance must be a positive number, got %g: %w", p.QuantityTolerancePercent, ErrInvalidRange)
	case !positiveFinite(p.StationRadiusMeters):
		return fmt.Errorf("station radius must be a positive number, got %g: %w", p.StationRadiusMeters, ErrInvalidRange)
	case p.LocationLookupWindow <= 0:
		return fmt.Errorf("location lookup window must be positive, got %s: %w", p.LocationLookupWindow, ErrInvalidRange)
	}
	return nil
}

func positiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

func (p Params) matcherConfig() matcher.Config {
	return matcher.Config{
		TimeWindow:               p.TimeWindow,
		QuantityTolerancePercent: p.QuantityTolerancePercent,
	}
}

// validatePeriod checks a batch date range
func validatePeriod(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("both period bounds are required: %w", ErrInvalidRange)
	}
	if to.Before(from) {
		return fmt.Errorf("period end %s is before start %s: %w",
			to.Format(time.RFC3339), from.Format(time.RFC3339), ErrInvalidRange)
	}
	return nil
}
