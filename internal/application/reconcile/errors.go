package reconcile

import "errors"

var (
	// ErrNotFound is returned for an unknown transaction or card ID
	ErrNotFound = errors.New("not found")

	// ErrInvalidRange is returned for a reversed period or a non-positive parameter
	ErrInvalidRange = errors.New("invalid range")

	// ErrVehicleUnresolved is returned when neither the card nor the
	// transaction identify a vehicle
	ErrVehicleUnresolved = errors.New("vehicle unresolved")
)
