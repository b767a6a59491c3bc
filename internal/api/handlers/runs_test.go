package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fuelrecon/internal/api/dto"
	"github.com/fleetops/fuelrecon/internal/api/handlers"
	"github.com/fleetops/fuelrecon/internal/domain/fleet"
	"github.com/fleetops/fuelrecon/internal/infrastructure/storage"
)

var periodFrom = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func startRun(t *testing.T, repo *storage.MockRepository, trigger string, analyzed int) int64 {
	t.Helper()
	ctx := context.Background()
	runID, err := repo.StartRun(ctx, periodFrom, periodFrom.AddDate(0, 0, 7), trigger)
	require.NoError(t, err)

	stats := fleet.NewPeriodStats()
	stats.Total = analyzed
	stats.Analyzed = analyzed
	require.NoError(t, repo.CompleteRun(ctx, runID, stats))
	return runID
}

func TestRunsHandler_List(t *testing.T) {
	t.Run("returns empty list when no runs", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := handlers.NewRunsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Empty(t, response.Runs)
		assert.Equal(t, 0, response.Count)
	})

	t.Run("returns runs newest first", func(t *testing.T) {
		repo := storage.NewMockRepository()
		first := startRun(t, repo, "cli", 10)
		second := startRun(t, repo, "api", 5)
		handler := handlers.NewRunsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Equal(t, 2, response.Count)
		assert.Equal(t, second, response.Runs[0].ID)
		assert.Equal(t, first, response.Runs[1].ID)
		assert.Equal(t, storage.RunStatusCompleted, response.Runs[1].Status)
	})

	t.Run("respects limit parameter", func(t *testing.T) {
		repo := storage.NewMockRepository()
		for i := 0; i < 5; i++ {
			startRun(t, repo, "cli", 1)
		}
		handler := handlers.NewRunsHandler(repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=3", nil)
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Len(t, response.Runs, 3)
	})
}

func TestRunsHandler_Get(t *testing.T) {
	t.Run("returns run by ID", func(t *testing.T) {
		repo := storage.NewMockRepository()
		runID := startRun(t, repo, "cli", 8)
		handler := handlers.NewRunsHandler(repo, nil)

		idStr := strconv.FormatInt(runID, 10)
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+idStr, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", idStr))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response storage.Run
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, runID, response.ID)
		assert.Equal(t, "cli", response.Trigger)
		assert.Equal(t, 8, response.Analyzed)
		assert.NotNil(t, response.CompletedAt)
	})

	t.Run("failed run keeps its reason", func(t *testing.T) {
		repo := storage.NewMockRepository()
		runID, err := repo.StartRun(context.Background(), periodFrom, periodFrom.AddDate(0, 0, 1), "api")
		require.NoError(t, err)
		require.NoError(t, repo.FailRun(context.Background(), runID, "database is locked"))
		handler := handlers.NewRunsHandler(repo, nil)

		idStr := strconv.FormatInt(runID, 10)
		req := httptest.NewRequest(http.MethodGet, "/api/runs/"+idStr, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", idStr))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		var response storage.Run
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, storage.RunStatusFailed, response.Status)
		assert.Equal(t, "database is locked", response.Error)
	})

	t.Run("returns 404 for unknown run", func(t *testing.T) {
		handler := handlers.NewRunsHandler(storage.NewMockRepository(), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/999", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "999"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("returns 400 for invalid ID", func(t *testing.T) {
		handler := handlers.NewRunsHandler(storage.NewMockRepository(), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "abc"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

type failingRuns struct {
	*storage.MockRepository
}

func (f failingRuns) ListRuns(context.Context, int) ([]storage.Run, error) {
	return nil, errors.New("disk I/O error")
}

func TestRunsHandler_StorageErrorIsOpaque(t *testing.T) {
	handler := handlers.NewRunsHandler(failingRuns{storage.NewMockRepository()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}
