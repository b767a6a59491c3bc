package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// Config holds matcher configuration
type Config struct {
	TimeWindow               time.Duration // Default: 30 minutes either side
	QuantityTolerancePercent float64       // Default: 5 (%)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TimeWindow:               30 * time.Minute,
		QuantityTolerancePercent: 5,
	}
}

// Candidate is a refuel compatible with a transaction
type Candidate struct {
	Refuel       fleet.VehicleRefuel
	TimeDiff     time.Duration   // Absolute
	QuantityDiff decimal.Decimal // Absolute
}
