package vehicle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

type stubAssignments struct {
	byCard map[int64][]fleet.CardAssignment
	err    error
	calls  int
}

func (s *stubAssignments) ListCardAssignments(_ context.Context, cardID int64) ([]fleet.CardAssignment, error) {
	s.calls++
	return s.byCard[cardID], s.err
}

func int64Ptr(v int64) *int64 { return &v }

var txTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestCardAssignment_Resolve(t *testing.T) {
	tests := []struct {
		name string
		tx   *fleet.Transaction
		card *fleet.FuelCard
		want *int64
	}{
		{
			name: "card vehicle wins",
			tx:   &fleet.Transaction{VehicleID: int64Ptr(2)},
			card: &fleet.FuelCard{ID: 1, VehicleID: int64Ptr(1)},
			want: int64Ptr(1),
		},
		{
			name: "falls back to transaction vehicle",
			tx:   &fleet.Transaction{VehicleID: int64Ptr(2)},
			card: &fleet.FuelCard{ID: 1},
			want: int64Ptr(2),
		},
		{
			name: "unknown card uses transaction vehicle",
			tx:   &fleet.Transaction{VehicleID: int64Ptr(3)},
			want: int64Ptr(3),
		},
		{
			name: "nothing to go on",
			tx:   &fleet.Transaction{},
			card: &fleet.FuelCard{ID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CardAssignment{}.Resolve(context.Background(), tt.tx, tt.card)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignmentHistory_Resolve(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	src := &stubAssignments{byCard: map[int64][]fleet.CardAssignment{
		1: {
			{ID: 1, CardID: 1, VehicleID: 10, ValidFrom: jan, ValidTo: &apr},
			{ID: 2, CardID: 1, VehicleID: 20, ValidFrom: apr},
		},
		2: {
			{ID: 3, CardID: 2, VehicleID: 30, ValidFrom: jun},
		},
		3: {
			{ID: 4, CardID: 3, VehicleID: 40, ValidFrom: jan},
			{ID: 5, CardID: 3, VehicleID: 50, ValidFrom: apr},
		},
	}}
	h := NewAssignmentHistory(src)
	tx := &fleet.Transaction{Timestamp: txTime, VehicleID: int64Ptr(99)}

	t.Run("active assignment", func(t *testing.T) {
		got, err := h.Resolve(context.Background(), tx, &fleet.FuelCard{ID: 1, VehicleID: int64Ptr(10)})
		require.NoError(t, err)
		assert.Equal(t, int64Ptr(20), got)
	})

	t.Run("no assignment covers the time", func(t *testing.T) {
		got, err := h.Resolve(context.Background(), tx, &fleet.FuelCard{ID: 2, VehicleID: int64Ptr(7)})
		require.NoError(t, err)
		assert.Equal(t, int64Ptr(7), got)
	})

	t.Run("overlap picks latest start", func(t *testing.T) {
		got, err := h.Resolve(context.Background(), tx, &fleet.FuelCard{ID: 3})
		require.NoError(t, err)
		assert.Equal(t, int64Ptr(50), got)
	})

	t.Run("unknown card skips lookup", func(t *testing.T) {
		before := src.calls
		got, err := h.Resolve(context.Background(), tx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64Ptr(99), got)
		assert.Equal(t, before, src.calls)
	})
}

func TestAssignmentHistory_SourceError(t *testing.T) {
	h := NewAssignmentHistory(&stubAssignments{err: errors.New("db down")})

	got, err := h.Resolve(context.Background(), &fleet.Transaction{}, &fleet.FuelCard{ID: 1})

	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestParsePolicy(t *testing.T) {
	src := &stubAssignments{}

	r, err := ParsePolicy("", src)
	require.NoError(t, err)
	assert.IsType(t, CardAssignment{}, r)

	r, err = ParsePolicy(PolicyHistory, src)
	require.NoError(t, err)
	assert.IsType(t, &AssignmentHistory{}, r)

	_, err = ParsePolicy(PolicyHistory, nil)
	assert.Error(t, err)

	_, err = ParsePolicy("magic", src)
	assert.Error(t, err)
}
