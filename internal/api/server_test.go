package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fuelrecon/internal/api"
	"github.com/fleetops/fuelrecon/internal/api/dto"
	"github.com/fleetops/fuelrecon/internal/application/reconcile"
	"github.com/fleetops/fuelrecon/internal/application/service"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

var txTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type testEnv struct {
	server *api.Server
	repo   *storage.MockRepository
	scans  *service.ScanService
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := reconcile.NewOrchestrator(repo, logger)
	scans := service.NewScanService(orch, repo, logger)
	server := api.NewServer(api.DefaultConfig(), repo, orch, scans, logger)
	return &testEnv{server: server, repo: repo, scans: scans}
}

// seed stores the reference scenario: transaction 100 on card 20 of
// vehicle 1, a matching refuel and a position next to the station
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.repo.SaveGasStation(ctx, &fleet.GasStation{ID: 10, Latitude: ptr(55.0), Longitude: ptr(37.0)}))
	require.NoError(t, e.repo.SaveFuelCard(ctx, &fleet.FuelCard{ID: 20, Number: "7005-0020", VehicleID: ptr(int64(1))}))
	require.NoError(t, e.repo.SaveTransaction(ctx, &fleet.Transaction{
		ID: 100, Timestamp: txTime, CardNumber: "7005-0020", FuelType: "АИ-95",
		Quantity: decimal.NewFromInt(40), StationID: ptr(int64(10)),
	}))
	require.NoError(t, e.repo.SaveRefuel(ctx, &fleet.VehicleRefuel{
		VehicleID: 1, Timestamp: txTime.Add(10 * time.Minute), FuelType: "АИ-95", Quantity: decimal.NewFromInt(39),
	}))
	require.NoError(t, e.repo.SaveLocation(ctx, &fleet.VehicleLocation{
		VehicleID: 1, Timestamp: txTime.Add(5 * time.Minute), Latitude: 55.0005, Longitude: 37.0006,
	}))
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestServer_HealthEndpoint(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[dto.HealthResponse](t, rec).Status)
}

func TestServer_AnalyzeTransactionThenQuery(t *testing.T) {
	env := newTestServer(t)
	env.seed(t)

	rec := env.do(t, http.MethodPost, "/api/analysis/transactions/100", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[fleet.AnalysisResult](t, rec)
	assert.Equal(t, fleet.StatusMatched, result.Status)
	assert.Equal(t, 95, result.Confidence)
	assert.Equal(t, fleet.GeofenceInside, result.Diagnostics.Geofence)

	rec = env.do(t, http.MethodGet, "/api/results/100", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(100), decode[fleet.AnalysisResult](t, rec).TransactionID)

	rec = env.do(t, http.MethodGet, "/api/results?status=matched&is_anomaly=false&card_id=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.ResultListResponse](t, rec)
	assert.Equal(t, 1, list.TotalCount)
	assert.Equal(t, dto.DefaultResultLimit, list.Limit)

	rec = env.do(t, http.MethodGet, "/api/results?is_anomaly=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[dto.ResultListResponse](t, rec).TotalCount)

	rec = env.do(t, http.MethodGet, "/api/results/summary?from=2024-05-01&to=2024-05-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[dto.SummaryResponse](t, rec)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.ByStatus[fleet.StatusMatched])
	require.NotNil(t, summary.To)
	assert.Equal(t, "2024-05-01T23:59:59Z", *summary.To)
}

func TestServer_AnalyzeTransactionParamsOverride(t *testing.T) {
	env := newTestServer(t)
	env.seed(t)

	// A 30 m radius puts the vehicle (about 67 m away) outside
	body := dto.AnalyzeTransactionRequest{Params: &dto.ParamsOverride{AZSRadiusMeters: ptr(30.0)}}
	rec := env.do(t, http.MethodPost, "/api/analysis/transactions/100", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[fleet.AnalysisResult](t, rec)
	assert.Equal(t, fleet.StatusLocationMismatch, result.Status)
	require.NotNil(t, result.AnomalyType)
	assert.Equal(t, fleet.AnomalyDataError, *result.AnomalyType)
}

func TestServer_AnalysisErrors(t *testing.T) {
	env := newTestServer(t)
	env.seed(t)
	require.NoError(t, env.repo.SaveTransaction(context.Background(), &fleet.Transaction{
		ID: 200, Timestamp: txTime, Quantity: decimal.NewFromInt(10),
	}))

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown transaction", http.MethodPost, "/api/analysis/transactions/999", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"non-numeric id", http.MethodPost, "/api/analysis/transactions/abc", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"vehicle unresolved", http.MethodPost, "/api/analysis/transactions/200", nil, http.StatusUnprocessableEntity, dto.ErrCodeVehicleUnresolved},
		{"non-positive radius", http.MethodPost, "/api/analysis/transactions/100",
			dto.AnalyzeTransactionRequest{Params: &dto.ParamsOverride{AZSRadiusMeters: ptr(0.0)}},
			http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown body field", http.MethodPost, "/api/analysis/transactions/100",
			map[string]any{"radius": 5}, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"unknown card", http.MethodPost, "/api/analysis/cards/999", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"reversed period", http.MethodPost, "/api/analysis/period",
			dto.PeriodRequest{From: txTime, To: txTime.Add(-time.Hour)}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"missing period", http.MethodPost, "/api/analysis/period", nil, http.StatusBadRequest, dto.ErrCodeValidation},
		{"unknown result", http.MethodGet, "/api/results/999", nil, http.StatusNotFound, dto.ErrCodeNotFound},
		{"bad status filter", http.MethodGet, "/api/results?status=stolen", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"bad date filter", http.MethodGet, "/api/results?from=yesterday", nil, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"reversed summary range", http.MethodGet, "/api/results/summary?from=2024-05-02&to=2024-05-01", nil, http.StatusBadRequest, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[dto.APIError](t, rec).Code)
		})
	}
}

func TestServer_AnalyzeCard(t *testing.T) {
	env := newTestServer(t)
	env.seed(t)

	body := dto.AnalyzeCardRequest{From: ptr(txTime.Add(-time.Hour)), To: ptr(txTime.Add(time.Hour))}
	rec := env.do(t, http.MethodPost, "/api/analysis/cards/20", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[dto.CardAnalysisResponse](t, rec)
	assert.Equal(t, int64(20), resp.CardID)
	assert.Equal(t, 1, resp.Count)
}

func TestServer_AnalyzePeriod(t *testing.T) {
	env := newTestServer(t)
	env.seed(t)

	body := dto.PeriodRequest{From: txTime.Add(-time.Hour), To: txTime.Add(time.Hour), VehicleIDs: []int64{1}}
	rec := env.do(t, http.MethodPost, "/api/analysis/period", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[fleet.PeriodStats](t, rec)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Analyzed)
	assert.Equal(t, 1, stats.ByStatus[fleet.StatusMatched])
}

func TestServer_ScanLifecycle(t *testing.T) {
	env := newTestServer(t)
	env.seed(t)

	body := dto.PeriodRequest{From: txTime.Add(-time.Hour), To: txTime.Add(time.Hour)}
	rec := env.do(t, http.MethodPost, "/api/scans", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	started := decode[dto.StartScanResponse](t, rec)
	require.NotEmpty(t, started.JobID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := env.scans.Wait(ctx, started.JobID)
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/scans/"+started.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[dto.ScanJobResponse](t, rec)
	assert.Equal(t, string(service.StatusCompleted), job.Status)
	require.NotNil(t, job.Stats)
	assert.Equal(t, 1, job.Stats.Analyzed)

	rec = env.do(t, http.MethodGet, "/api/scans", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[dto.ScanListResponse](t, rec).Count)

	rec = env.do(t, http.MethodDelete, "/api/scans/"+started.JobID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[dto.RunListResponse](t, rec)
	require.Equal(t, 1, runs.Count)
	assert.Equal(t, storage.RunStatusCompleted, runs.Runs[0].Status)
	assert.Equal(t, started.RunID, runs.Runs[0].ID)

	rec = env.do(t, http.MethodGet, "/api/runs/"+jsonNumber(started.RunID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[storage.Run](t, rec).Analyzed)
}

func TestServer_ScanErrors(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodPost, "/api/scans", dto.PeriodRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/scans/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/scans/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/runs/12345", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ReadOnlyWithoutEngine(t *testing.T) {
	repo := storage.NewMockRepository()
	server := api.NewServer(api.DefaultConfig(), repo, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	env := newTestServer(t)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		env.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/results", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		env.server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
