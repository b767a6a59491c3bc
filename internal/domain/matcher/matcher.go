// Package matcher finds vehicle refuel events that could correspond to a
// fuel-card transaction.
//
// The matcher uses strict criteria:
//   - Refuel must belong to the resolved vehicle
//   - Refuel time must be within ±TimeWindow of the transaction (inclusive)
//   - Refuel quantity must be within ±QuantityTolerancePercent (inclusive)
//   - Fuel type must match exactly when the transaction carries one
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig(), store)
//	candidates, err := m.FindCandidates(ctx, tx, vehicleID)
//	if len(candidates) == 1 {
//		// Found a match!
//		refuel := candidates[0].Refuel
//	}
package matcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

var hundred = decimal.NewFromInt(100)

// RefuelSource reads refuel events of a vehicle within [from, to]. A
// non-empty fuelType restricts the result to that label.
type RefuelSource interface {
	ListRefuels(ctx context.Context, vehicleID int64, from, to time.Time, fuelType string) ([]fleet.VehicleRefuel, error)
}

// Matcher matches transactions with refuel events
type Matcher struct {
	config Config
	source RefuelSource
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config, source RefuelSource) *Matcher {
	return &Matcher{
		config: config,
		source: source,
	}
}

// Config returns the matcher configuration
func (m *Matcher) Config() Config {
	return m.config
}

// QuantityRange returns the inclusive quantity bounds for q under the given
// tolerance in percent.
func QuantityRange(q decimal.Decimal, tolerancePercent float64) (decimal.Decimal, decimal.Decimal) {
	tol := decimal.NewFromFloat(tolerancePercent).Div(hundred)
	one := decimal.NewFromInt(1)
	return q.Mul(one.Sub(tol)), q.Mul(one.Add(tol))
}

// FindCandidates returns every refuel of vehicleID compatible with tx,
// closest in time first. Returns an empty slice when nothing matches.
func (m *Matcher) FindCandidates(ctx context.Context, tx *fleet.Transaction, vehicleID int64) ([]Candidate, error) {
	from := tx.Timestamp.Add(-m.config.TimeWindow)
	to := tx.Timestamp.Add(m.config.TimeWindow)

	refuels, err := m.source.ListRefuels(ctx, vehicleID, from, to, tx.FuelType)
	if err != nil {
		return nil, fmt.Errorf("failed to list refuels for vehicle %d: %w", vehicleID, err)
	}

	return Filter(tx, refuels, m.config), nil
}

// Filter applies the matching criteria to refuels already loaded in memory
// and orders the survivors by time difference, then by refuel id.
func Filter(tx *fleet.Transaction, refuels []fleet.VehicleRefuel, config Config) []Candidate {
	minQty, maxQty := QuantityRange(tx.Quantity, config.QuantityTolerancePercent)

	candidates := make([]Candidate, 0)
	for _, r := range refuels {
		timeDiff := absDuration(r.Timestamp.Sub(tx.Timestamp))
		if timeDiff > config.TimeWindow {
			continue
		}
		if r.Quantity.LessThan(minQty) || r.Quantity.GreaterThan(maxQty) {
			continue
		}
		if tx.FuelType != "" && r.FuelType != tx.FuelType {
			continue
		}

		candidates = append(candidates, Candidate{
			Refuel:       r,
			TimeDiff:     timeDiff,
			QuantityDiff: tx.Quantity.Sub(r.Quantity).Abs(),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].TimeDiff != candidates[j].TimeDiff {
			return candidates[i].TimeDiff < candidates[j].TimeDiff
		}
		return candidates[i].Refuel.ID < candidates[j].Refuel.ID
	})

	return candidates
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
