package dto

import (
	"time"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
)

// ParamsOverride carries optional per-request analysis parameters. Absent
// fields keep the server defaults.
type ParamsOverride struct {
	TimeWindowMinutes           *float64 `json:"time_window_minutes,omitempty"`
	QuantityTolerancePercent    *float64 `json:"quantity_tolerance_percent,omitempty"`
	AZSRadiusMeters             *float64 `json:"azs_radius_meters,omitempty"`
	LocationLookupWindowSeconds *float64 `json:"location_lookup_window_seconds,omitempty"`
}

// Apply returns base with the set fields replaced. Validation is left to
// the engine.
func (o *ParamsOverride) Apply(base reconcile.Params) reconcile.Params {
	if o == nil {
		return base
	}
	if o.TimeWindowMinutes != nil {
		base.TimeWindow = time.Duration(*o.TimeWindowMinutes * float64(time.Minute))
	}
	if o.QuantityTolerancePercent != nil {
		base.QuantityTolerancePercent = *o.QuantityTolerancePercent
	}
	if o.AZSRadiusMeters != nil {
		base.StationRadiusMeters = *o.AZSRadiusMeters
	}
	if o.LocationLookupWindowSeconds != nil {
		base.LocationLookupWindow = time.Duration(*o.LocationLookupWindowSeconds * float64(time.Second))
	}
	return base
}

// AnalyzeTransactionRequest is the optional body of a single-transaction
// analysis.
type AnalyzeTransactionRequest struct {
	Params *ParamsOverride `json:"params,omitempty"`
}

// AnalyzeCardRequest is the optional body of a card analysis. Missing bounds
// default to the trailing 30 days.
type AnalyzeCardRequest struct {
	From   *time.Time      `json:"from,omitempty"`
	To     *time.Time      `json:"to,omitempty"`
	Params *ParamsOverride `json:"params,omitempty"`
}

// PeriodRequest is the body of a period analysis or scan.
type PeriodRequest struct {
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	CardIDs         []int64         `json:"card_ids,omitempty"`
	VehicleIDs      []int64         `json:"vehicle_ids,omitempty"`
	OrganizationIDs []int64         `json:"organization_ids,omitempty"`
	Params          *ParamsOverride `json:"params,omitempty"`
}

// Filters returns the period filters of the request
func (r PeriodRequest) Filters() reconcile.PeriodFilters {
	return reconcile.PeriodFilters{
		CardIDs:         r.CardIDs,
		VehicleIDs:      r.VehicleIDs,
		OrganizationIDs: r.OrganizationIDs,
	}
}

// Default list sizes
const (
	DefaultResultLimit = 50
	DefaultRunLimit    = 20
)
