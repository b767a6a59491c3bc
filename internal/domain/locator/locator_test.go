package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

type stubSource struct {
	samples  []fleet.VehicleLocation
	err      error
	gotFrom  time.Time
	gotTo    time.Time
	gotVehID int64
}

func (s *stubSource) ListLocations(_ context.Context, vehicleID int64, from, to time.Time) ([]fleet.VehicleLocation, error) {
	s.gotVehID = vehicleID
	s.gotFrom = from
	s.gotTo = to
	return s.samples, s.err
}

var target = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sample(id int64, offset time.Duration) fleet.VehicleLocation {
	return fleet.VehicleLocation{
		ID:        id,
		VehicleID: 1,
		Timestamp: target.Add(offset),
		Latitude:  55,
		Longitude: 37,
	}
}

func TestPick_Nearest(t *testing.T) {
	samples := []fleet.VehicleLocation{
		sample(1, -4*time.Minute),
		sample(2, 90*time.Second),
		sample(3, 3*time.Minute),
	}

	got := Pick(samples, target, DefaultWindow)

	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestPick_OutsideWindow(t *testing.T) {
	samples := []fleet.VehicleLocation{
		sample(1, -6*time.Minute),
		sample(2, 5*time.Minute+time.Second),
	}

	assert.Nil(t, Pick(samples, target, DefaultWindow))
}

func TestPick_WindowIsInclusive(t *testing.T) {
	samples := []fleet.VehicleLocation{sample(1, 5*time.Minute)}

	got := Pick(samples, target, DefaultWindow)

	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
}

func TestPick_TieGoesToEarliest(t *testing.T) {
	t.Run("earlier timestamp wins", func(t *testing.T) {
		samples := []fleet.VehicleLocation{
			sample(1, time.Minute),
			sample(2, -time.Minute),
		}

		got := Pick(samples, target, DefaultWindow)

		require.NotNil(t, got)
		assert.Equal(t, int64(2), got.ID)
	})

	t.Run("same timestamp falls back to id", func(t *testing.T) {
		samples := []fleet.VehicleLocation{
			sample(9, time.Minute),
			sample(4, time.Minute),
		}

		got := Pick(samples, target, DefaultWindow)

		require.NotNil(t, got)
		assert.Equal(t, int64(4), got.ID)
	})
}

func TestPick_ReturnsCopy(t *testing.T) {
	samples := []fleet.VehicleLocation{sample(1, 0)}

	got := Pick(samples, target, DefaultWindow)
	got.Latitude = 0

	assert.Equal(t, 55.0, samples[0].Latitude)
}

func TestResolver_Nearest(t *testing.T) {
	src := &stubSource{samples: []fleet.VehicleLocation{sample(1, 2*time.Minute)}}
	r := NewResolver(src)

	got, err := r.Nearest(context.Background(), 42, target, 0)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), src.gotVehID)
	assert.Equal(t, target.Add(-DefaultWindow), src.gotFrom)
	assert.Equal(t, target.Add(DefaultWindow), src.gotTo)
}

func TestResolver_SourceError(t *testing.T) {
	r := NewResolver(&stubSource{err: errors.New("db down")})

	got, err := r.Nearest(context.Background(), 1, target, time.Minute)

	assert.Error(t, err)
	assert.Nil(t, got)
}
