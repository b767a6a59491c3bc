package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		candidates  int
		outcome     fleet.GeofenceOutcome
		wantStatus  fleet.MatchStatus
		wantConf    int
		wantAnomaly fleet.AnomalyType
	}{
		{"single inside", 1, fleet.GeofenceInside, fleet.StatusMatched, 95, ""},
		{"single outside", 1, fleet.GeofenceOutside, fleet.StatusLocationMismatch, 75, fleet.AnomalyDataError},
		{"single unresolvable", 1, fleet.GeofenceUnresolvable, fleet.StatusLocationMismatch, 75, fleet.AnomalyDataError},
		{"two inside", 2, fleet.GeofenceInside, fleet.StatusMultipleMatches, 60, fleet.AnomalyDataError},
		{"many outside", 5, fleet.GeofenceOutside, fleet.StatusMultipleMatches, 60, fleet.AnomalyDataError},
		{"many unresolvable", 3, fleet.GeofenceUnresolvable, fleet.StatusMultipleMatches, 60, fleet.AnomalyDataError},
		{"none inside", 0, fleet.GeofenceInside, fleet.StatusNoRefuel, 40, fleet.AnomalyFuelTheft},
		{"none outside", 0, fleet.GeofenceOutside, fleet.StatusNoRefuel, 20, fleet.AnomalyCardMisuse},
		{"none unresolvable", 0, fleet.GeofenceUnresolvable, fleet.StatusNoRefuel, 20, fleet.AnomalyCardMisuse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.candidates, tt.outcome)

			assert.Equal(t, tt.wantStatus, d.Status)
			assert.Equal(t, tt.wantConf, d.Confidence)
			if tt.wantAnomaly == "" {
				assert.False(t, d.IsAnomaly)
				assert.Nil(t, d.AnomalyType)
				return
			}
			assert.True(t, d.IsAnomaly)
			require.NotNil(t, d.AnomalyType)
			assert.Equal(t, tt.wantAnomaly, *d.AnomalyType)
		})
	}
}

func TestClassify_DecisionsSatisfyResultInvariants(t *testing.T) {
	outcomes := []fleet.GeofenceOutcome{fleet.GeofenceInside, fleet.GeofenceOutside, fleet.GeofenceUnresolvable}

	for n := 0; n <= 3; n++ {
		for _, o := range outcomes {
			d := Classify(n, o)
			r := fleet.AnalysisResult{
				Status:      d.Status,
				Confidence:  d.Confidence,
				IsAnomaly:   d.IsAnomaly,
				AnomalyType: d.AnomalyType,
			}
			assert.NoError(t, r.Validate(), "candidates=%d outcome=%s", n, o)
		}
	}
}

func TestClassify_AnomalyTypeNotShared(t *testing.T) {
	a := Classify(0, fleet.GeofenceOutside)
	b := Classify(0, fleet.GeofenceOutside)

	*a.AnomalyType = fleet.AnomalyDataError

	assert.Equal(t, fleet.AnomalyCardMisuse, *b.AnomalyType)
}
