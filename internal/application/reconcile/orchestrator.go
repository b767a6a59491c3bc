package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fleetops/fuelrecon/internal/domain/classifier"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
	"github.com/fleetops/fuelrecon/internal/domain/geofence"
	"github.com/fleetops/fuelrecon/internal/domain/locator"
	"github.com/fleetops/fuelrecon/internal/domain/matcher"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

// AnalyzeTransaction reconciles one transaction and upserts its result.
// Missing optional data (station coordinates, telemetry, refuels) is a
// classification outcome, not an error.
func (o *Orchestrator) AnalyzeTransaction(ctx context.Context, transactionID int64, params Params) (*fleet.AnalysisResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	tx, err := o.store.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("transaction %d: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load transaction %d: %w", transactionID, err)
	}

	return o.analyze(ctx, tx, params)
}

// analyze runs the full pipeline for a loaded transaction
func (o *Orchestrator) analyze(ctx context.Context, tx *fleet.Transaction, params Params) (*fleet.AnalysisResult, error) {
	card, err := o.lookupCard(ctx, tx)
	if err != nil {
		return nil, err
	}

	vehicleID, err := o.vehicles.Resolve(ctx, tx, card)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	if vehicleID == nil {
		return nil, fmt.Errorf("transaction %d (card %q): %w", tx.ID, tx.CardNumber, ErrVehicleUnresolved)
	}

	candidates, err := matcher.NewMatcher(params.matcherConfig(), o.store).FindCandidates(ctx, tx, *vehicleID)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}

	station, err := o.lookupStation(ctx, tx)
	if err != nil {
		return nil, err
	}

	location, err := locator.NewResolver(o.store).Nearest(ctx, *vehicleID, tx.Timestamp, params.LocationLookupWindow)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}

	check := verifyGeofence(tx, station, location, params.StationRadiusMeters)
	decision := classifier.Classify(len(candidates), check.outcome)

	result := &fleet.AnalysisResult{
		TransactionID:  tx.ID,
		VehicleID:      vehicleID,
		AnalyzedAt:     o.now().UTC(),
		Status:         decision.Status,
		Confidence:     decision.Confidence,
		DistanceMeters: check.distance,
		IsAnomaly:      decision.IsAnomaly,
		AnomalyType:    decision.AnomalyType,
		Diagnostics: fleet.Diagnostics{
			Transaction:      snapshotTransaction(tx),
			Station:          snapshotStation(station),
			Location:         snapshotLocation(location),
			CandidateCount:   len(candidates),
			Geofence:         check.outcome,
			UnresolvedReason: check.reason,
		},
	}
	if card != nil {
		id := card.ID
		result.FuelCardID = &id
	}

	// The closest candidate is kept as a reference even when ambiguous
	if len(candidates) > 0 {
		best := candidates[0]
		refuelID := best.Refuel.ID
		seconds := int64(math.Round(best.TimeDiff.Seconds()))
		quantityDiff := best.QuantityDiff
		result.RefuelID = &refuelID
		result.TimeDiffSeconds = &seconds
		result.QuantityDiff = &quantityDiff
	}

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("transaction %d produced an invalid result: %w", tx.ID, err)
	}

	if err := o.saveResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// lookupCard resolves the transaction's card. An unknown card number is not
// an error; the vehicle resolver decides what to do without it.
func (o *Orchestrator) lookupCard(ctx context.Context, tx *fleet.Transaction) (*fleet.FuelCard, error) {
	if tx.CardNumber == "" {
		return nil, nil
	}

	card, err := o.store.GetFuelCardByNumber(ctx, tx.CardNumber)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			o.logger.Debug("Card not registered", "transaction_id", tx.ID, "card_number", tx.CardNumber)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load card for transaction %d: %w", tx.ID, err)
	}
	return card, nil
}

// lookupStation resolves the referenced station. A dangling reference is
// logged and treated as no station.
func (o *Orchestrator) lookupStation(ctx context.Context, tx *fleet.Transaction) (*fleet.GasStation, error) {
	if tx.StationID == nil {
		return nil, nil
	}

	station, err := o.store.GetGasStation(ctx, *tx.StationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			o.logger.Warn("Transaction references unknown station",
				"transaction_id", tx.ID,
				"station_id", *tx.StationID,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load station for transaction %d: %w", tx.ID, err)
	}
	return station, nil
}

type geofenceCheck struct {
	outcome  fleet.GeofenceOutcome
	reason   fleet.UnresolvedReason
	distance *float64
}

// verifyGeofence tests the resolved position against the station. The check
// is skipped, not failed, when either side has no coordinates.
func verifyGeofence(tx *fleet.Transaction, station *fleet.GasStation, location *fleet.VehicleLocation, radius float64) geofenceCheck {
	switch {
	case station == nil:
		return geofenceCheck{outcome: fleet.GeofenceUnresolvable, reason: fleet.ReasonNoStation}
	case !station.HasCoordinates():
		return geofenceCheck{outcome: fleet.GeofenceUnresolvable, reason: fleet.ReasonNoStationCoordinates}
	case location == nil:
		return geofenceCheck{outcome: fleet.GeofenceUnresolvable, reason: fleet.ReasonNoLocation}
	}

	res := geofence.Check(
		geofence.Point{Latitude: *station.Latitude, Longitude: *station.Longitude},
		geofence.Point{Latitude: location.Latitude, Longitude: location.Longitude},
		radius,
		location.Accuracy,
	)

	check := geofenceCheck{outcome: fleet.GeofenceOutside, distance: &res.Distance}
	if res.InRadius {
		check.outcome = fleet.GeofenceInside
	}
	return check
}

func snapshotTransaction(tx *fleet.Transaction) fleet.TransactionSnapshot {
	return fleet.TransactionSnapshot{
		ID:             tx.ID,
		Timestamp:      tx.Timestamp.UTC(),
		CardNumber:     tx.CardNumber,
		FuelType:       tx.FuelType,
		Quantity:       tx.Quantity,
		StationID:      tx.StationID,
		VehicleID:      tx.VehicleID,
		OrganizationID: tx.OrganizationID,
	}
}

func snapshotStation(st *fleet.GasStation) *fleet.StationSnapshot {
	if st == nil {
		return nil
	}
	return &fleet.StationSnapshot{
		ID:        st.ID,
		Name:      st.Name,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
	}
}

func snapshotLocation(l *fleet.VehicleLocation) *fleet.LocationSnapshot {
	if l == nil {
		return nil
	}
	return &fleet.LocationSnapshot{
		ID:        l.ID,
		Timestamp: l.Timestamp.UTC(),
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Accuracy:  l.Accuracy,
	}
}
