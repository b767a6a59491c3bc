package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/application/service"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

func TestParamsOverride_Apply(t *testing.T) {
	base := reconcile.DefaultParams()

	t.Run("nil override keeps defaults", func(t *testing.T) {
		var o *ParamsOverride
		assert.Equal(t, base, o.Apply(base))
	})

	t.Run("set fields replace defaults", func(t *testing.T) {
		window, radius := 15.0, 150.0
		got := (&ParamsOverride{TimeWindowMinutes: &window, AZSRadiusMeters: &radius}).Apply(base)

		assert.Equal(t, 15*time.Minute, got.TimeWindow)
		assert.Equal(t, 150.0, got.StationRadiusMeters)
		assert.Equal(t, base.QuantityTolerancePercent, got.QuantityTolerancePercent)
		assert.Equal(t, base.LocationLookupWindow, got.LocationLookupWindow)
	})

	t.Run("fractional units", func(t *testing.T) {
		window, lookup := 0.5, 90.0
		got := (&ParamsOverride{TimeWindowMinutes: &window, LocationLookupWindowSeconds: &lookup}).Apply(base)

		assert.Equal(t, 30*time.Second, got.TimeWindow)
		assert.Equal(t, 90*time.Second, got.LocationLookupWindow)
	})
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{fmt.Errorf("transaction 9: %w", reconcile.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("run 9: %w", storage.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{service.ErrJobNotFound, http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("to before from: %w", reconcile.ErrInvalidRange), http.StatusBadRequest, ErrCodeValidation},
		{reconcile.ErrVehicleUnresolved, http.StatusUnprocessableEntity, ErrCodeVehicleUnresolved},
		{service.ErrScanRunning, http.StatusConflict, ErrCodeConflict},
		{service.ErrJobFinished, http.StatusConflict, ErrCodeConflict},
		{errors.New("sql: database is closed"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, body := ErrorFor(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, body.Code)
		})
	}
}

func TestErrorFor_HidesInternalMessage(t *testing.T) {
	_, body := ErrorFor(errors.New("sql: database is closed"))
	assert.NotContains(t, body.Message, "sql")
}
