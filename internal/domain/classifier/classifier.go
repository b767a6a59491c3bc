// Package classifier turns the evidence gathered for a transaction into a
// verdict: match status, confidence and anomaly category.
package classifier

import "github.com/fleetops/fuelrecon/internal/domain/fleet"

// Confidence per branch of the decision table.
const (
	ConfidenceMatched          = 95
	ConfidenceLocationMismatch = 75
	ConfidenceMultipleMatches  = 60
	ConfidenceFuelTheft        = 40
	ConfidenceCardMisuse       = 20
)

// Decision is the classifier output.
type Decision struct {
	Status      fleet.MatchStatus
	Confidence  int
	IsAnomaly   bool
	AnomalyType *fleet.AnomalyType
}

// Classify maps the number of candidate refuels and the geofence outcome to a
// decision. An unresolvable geofence is treated the same as outside.
//
// Precedence:
//
//	1 candidate,  inside          -> matched           95
//	1 candidate,  outside         -> location_mismatch 75 data_error
//	>1 candidates, any            -> multiple_matches  60 data_error
//	0 candidates, inside          -> no_refuel         40 fuel_theft
//	0 candidates, outside         -> no_refuel         20 card_misuse
func Classify(candidates int, outcome fleet.GeofenceOutcome) Decision {
	inside := outcome == fleet.GeofenceInside

	switch {
	case candidates == 1 && inside:
		return Decision{Status: fleet.StatusMatched, Confidence: ConfidenceMatched}
	case candidates == 1:
		return anomaly(fleet.StatusLocationMismatch, ConfidenceLocationMismatch, fleet.AnomalyDataError)
	case candidates > 1:
		return anomaly(fleet.StatusMultipleMatches, ConfidenceMultipleMatches, fleet.AnomalyDataError)
	case inside:
		return anomaly(fleet.StatusNoRefuel, ConfidenceFuelTheft, fleet.AnomalyFuelTheft)
	default:
		return anomaly(fleet.StatusNoRefuel, ConfidenceCardMisuse, fleet.AnomalyCardMisuse)
	}
}

func anomaly(status fleet.MatchStatus, confidence int, kind fleet.AnomalyType) Decision {
	return Decision{
		Status:      status,
		Confidence:  confidence,
		IsAnomaly:   true,
		AnomalyType: &kind,
	}
}
