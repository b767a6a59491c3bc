// Package locator finds the telemetry sample closest in time to a moment of
// interest, such as the timestamp of a card purchase.
package locator

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// DefaultWindow is the default search half-window around the target time.
const DefaultWindow = 5 * time.Minute

// Source reads telemetry samples for a vehicle within [from, to].
type Source interface {
	ListLocations(ctx context.Context, vehicleID int64, from, to time.Time) ([]fleet.VehicleLocation, error)
}

// Resolver looks up the nearest sample through a Source.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver backed by source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Nearest returns the sample of vehicleID with the smallest absolute time
// difference to target within ±window, or nil if none falls in the window.
func (r *Resolver) Nearest(ctx context.Context, vehicleID int64, target time.Time, window time.Duration) (*fleet.VehicleLocation, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	samples, err := r.source.ListLocations(ctx, vehicleID, target.Add(-window), target.Add(window))
	if err != nil {
		return nil, fmt.Errorf("failed to list locations for vehicle %d: %w", vehicleID, err)
	}

	return Pick(samples, target, window), nil
}

// Pick selects the sample nearest to target among samples within ±window.
// On an exact tie the earlier sample wins, then the lower id, so the result
// does not depend on input order.
func Pick(samples []fleet.VehicleLocation, target time.Time, window time.Duration) *fleet.VehicleLocation {
	var best *fleet.VehicleLocation
	var bestDiff time.Duration

	for i := range samples {
		s := &samples[i]
		diff := absDuration(s.Timestamp.Sub(target))
		if diff > window {
			continue
		}
		if best == nil || diff < bestDiff || (diff == bestDiff && earlier(s, best)) {
			best = s
			bestDiff = diff
		}
	}

	if best == nil {
		return nil
	}
	picked := *best
	return &picked
}

func earlier(a, b *fleet.VehicleLocation) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
