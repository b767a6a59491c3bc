// Package vehicle decides which vehicle a transaction belongs to.
//
// Resolution is a single step with two interchangeable policies:
//   - CardAssignment: the vehicle statically assigned to the card, falling
//     back to the vehicle recorded on the transaction itself
//   - AssignmentHistory: the card-to-vehicle assignment that was active at
//     the transaction time, falling back to CardAssignment
//
// Example usage:
//
//	r := vehicle.NewAssignmentHistory(store)
//	id, err := r.Resolve(ctx, tx, card)
//	if id == nil {
//		// unresolved
//	}
package vehicle

import (
	"context"
	"fmt"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// Policy names accepted by ParsePolicy.
const (
	PolicyCard    = "card"
	PolicyHistory = "history"
)

// Resolver resolves the vehicle of a transaction. card is nil when the
// transaction's card number is unknown. A nil id with a nil error means the
// vehicle could not be determined.
type Resolver interface {
	Resolve(ctx context.Context, tx *fleet.Transaction, card *fleet.FuelCard) (*int64, error)
}

// AssignmentSource lists the dated assignments of a card.
type AssignmentSource interface {
	ListCardAssignments(ctx context.Context, cardID int64) ([]fleet.CardAssignment, error)
}

// CardAssignment resolves through the card's assigned vehicle field.
type CardAssignment struct{}

// Resolve implements Resolver.
func (CardAssignment) Resolve(_ context.Context, tx *fleet.Transaction, card *fleet.FuelCard) (*int64, error) {
	if card != nil && card.VehicleID != nil {
		id := *card.VehicleID
		return &id, nil
	}
	if tx.VehicleID != nil {
		id := *tx.VehicleID
		return &id, nil
	}
	return nil, nil
}

// AssignmentHistory resolves through dated card assignments.
type AssignmentHistory struct {
	source   AssignmentSource
	fallback CardAssignment
}

// NewAssignmentHistory creates a history-based resolver.
func NewAssignmentHistory(source AssignmentSource) *AssignmentHistory {
	return &AssignmentHistory{source: source}
}

// Resolve implements Resolver. When several assignments cover the
// transaction time the most recently started one wins.
func (h *AssignmentHistory) Resolve(ctx context.Context, tx *fleet.Transaction, card *fleet.FuelCard) (*int64, error) {
	if card == nil {
		return h.fallback.Resolve(ctx, tx, card)
	}

	assignments, err := h.source.ListCardAssignments(ctx, card.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for card %d: %w", card.ID, err)
	}

	var active *fleet.CardAssignment
	for i := range assignments {
		a := &assignments[i]
		if !a.Covers(tx.Timestamp) {
			continue
		}
		if active == nil || a.ValidFrom.After(active.ValidFrom) {
			active = a
		}
	}
	if active != nil {
		id := active.VehicleID
		return &id, nil
	}

	return h.fallback.Resolve(ctx, tx, card)
}

// ParsePolicy builds the resolver for a configured policy name. An empty
// name selects PolicyCard.
func ParsePolicy(name string, source AssignmentSource) (Resolver, error) {
	switch name {
	case "", PolicyCard:
		return CardAssignment{}, nil
	case PolicyHistory:
		if source == nil {
			return nil, fmt.Errorf("policy %q requires an assignment source", name)
		}
		return NewAssignmentHistory(source), nil
	default:
		return nil, fmt.Errorf("unknown vehicle resolution policy %q", name)
	}
}
