package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

const resultColumns = `r.transaction_id, r.refuel_id, r.fuel_card_id, r.vehicle_id, r.analyzed_at,
	r.status, r.confidence, r.distance_meters, r.time_diff_seconds, r.quantity_diff,
	r.diagnostics, r.is_anomaly, r.anomaly_type`

// UpsertResult writes the result in a single statement so concurrent
// analyses of the same transaction never produce a second row
func (s *Storage) UpsertResult(ctx context.Context, r *fleet.AnalysisResult) error {
	diagnostics, err := json.Marshal(r.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	var quantityDiff sql.NullString
	if r.QuantityDiff != nil {
		quantityDiff = sql.NullString{String: r.QuantityDiff.String(), Valid: true}
	}
	var anomalyType sql.NullString
	if r.AnomalyType != nil {
		anomalyType = sql.NullString{String: string(*r.AnomalyType), Valid: true}
	}

	query := `
	INSERT INTO analysis_results
	(transaction_id, refuel_id, fuel_card_id, vehicle_id, analyzed_at,
	 status, confidence, distance_meters, time_diff_seconds, quantity_diff,
	 diagnostics, is_anomaly, anomaly_type)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(transaction_id) DO UPDATE SET
		refuel_id = excluded.refuel_id,
		fuel_card_id = excluded.fuel_card_id,
		vehicle_id = excluded.vehicle_id,
		analyzed_at = excluded.analyzed_at,
		status = excluded.status,
		confidence = excluded.confidence,
		distance_meters = excluded.distance_meters,
		time_diff_seconds = excluded.time_diff_seconds,
		quantity_diff = excluded.quantity_diff,
		diagnostics = excluded.diagnostics,
		is_anomaly = excluded.is_anomaly,
		anomaly_type = excluded.anomaly_type
	`

	_, err = s.db.ExecContext(ctx, query,
		r.TransactionID,
		nullInt64(r.RefuelID),
		nullInt64(r.FuelCardID),
		nullInt64(r.VehicleID),
		formatTime(r.AnalyzedAt),
		string(r.Status),
		r.Confidence,
		nullFloat64(r.DistanceMeters),
		nullInt64(r.TimeDiffSeconds),
		quantityDiff,
		string(diagnostics),
		r.IsAnomaly,
		anomalyType,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert result for transaction %d: %w", r.TransactionID, err)
	}
	return nil
}

func scanResult(row rowScanner) (*fleet.AnalysisResult, error) {
	var (
		r                               fleet.AnalysisResult
		refuelID, cardID, vehicleID     sql.NullInt64
		analyzedAt, status, diagnostics string
		distance                        sql.NullFloat64
		timeDiff                        sql.NullInt64
		quantityDiff                    decimal.NullDecimal
		anomalyType                     sql.NullString
	)
	err := row.Scan(&r.TransactionID, &refuelID, &cardID, &vehicleID, &analyzedAt,
		&status, &r.Confidence, &distance, &timeDiff, &quantityDiff,
		&diagnostics, &r.IsAnomaly, &anomalyType)
	if err != nil {
		return nil, err
	}

	if r.AnalyzedAt, err = parseTime(analyzedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(diagnostics), &r.Diagnostics); err != nil {
		return nil, fmt.Errorf("invalid diagnostics for transaction %d: %w", r.TransactionID, err)
	}

	r.Status = fleet.MatchStatus(status)
	r.RefuelID = int64Ptr(refuelID)
	r.FuelCardID = int64Ptr(cardID)
	r.VehicleID = int64Ptr(vehicleID)
	r.DistanceMeters = float64Ptr(distance)
	r.TimeDiffSeconds = int64Ptr(timeDiff)
	if quantityDiff.Valid {
		q := quantityDiff.Decimal
		r.QuantityDiff = &q
	}
	if anomalyType.Valid {
		a := fleet.AnomalyType(anomalyType.String)
		r.AnomalyType = &a
	}
	return &r, nil
}

// GetResult retrieves the result of a transaction
func (s *Storage) GetResult(ctx context.Context, transactionID int64) (*fleet.AnalysisResult, error) {
	query := `SELECT ` + resultColumns + ` FROM analysis_results r WHERE r.transaction_id = ?`

	r, err := scanResult(s.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		return nil, notFound(err, "result for transaction", transactionID)
	}
	return r, nil
}

// resultWhere builds the WHERE clause shared by listing and counting
func resultWhere(filter ResultFilter) (string, []any) {
	where := ` WHERE 1=1`
	var args []any

	if filter.Status != "" {
		where += ` AND r.status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.IsAnomaly != nil {
		where += ` AND r.is_anomaly = ?`
		args = append(args, *filter.IsAnomaly)
	}
	if filter.AnomalyType != "" {
		where += ` AND r.anomaly_type = ?`
		args = append(args, string(filter.AnomalyType))
	}
	if filter.VehicleID != nil {
		where += ` AND r.vehicle_id = ?`
		args = append(args, *filter.VehicleID)
	}
	if filter.CardID != nil {
		where += ` AND r.fuel_card_id = ?`
		args = append(args, *filter.CardID)
	}
	if filter.OrganizationID != nil {
		where += ` AND t.organization_id = ?`
		args = append(args, *filter.OrganizationID)
	}
	if !filter.From.IsZero() {
		where += ` AND t.timestamp >= ?`
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where += ` AND t.timestamp <= ?`
		args = append(args, formatTime(filter.To))
	}
	return where, args
}

// ListResults returns results matching the filter, newest transaction first
func (s *Storage) ListResults(ctx context.Context, filter ResultFilter) (*ResultList, error) {
	limit := clampLimit(filter.Limit, defaultListLimit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	from := ` FROM analysis_results r JOIN transactions t ON t.id = r.transaction_id`
	where, args := resultWhere(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	query := `SELECT ` + resultColumns + from + where +
		` ORDER BY t.timestamp DESC, r.transaction_id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	list := &ResultList{
		Results:    make([]*fleet.AnalysisResult, 0),
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		list.Results = append(list.Results, r)
	}
	return list, rows.Err()
}

// GetResultSummary aggregates results whose transaction falls in [from, to].
// Zero bounds are open.
func (s *Storage) GetResultSummary(ctx context.Context, from, to time.Time) (*ResultSummary, error) {
	where, args := resultWhere(ResultFilter{From: from, To: to})
	query := `
	SELECT r.status, r.anomaly_type, COUNT(*), COALESCE(SUM(r.confidence), 0)
	FROM analysis_results r JOIN transactions t ON t.id = r.transaction_id` + where + `
	GROUP BY r.status, r.anomaly_type`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := newResultSummary()
	var confidenceSum int64
	for rows.Next() {
		var status string
		var anomalyType sql.NullString
		var count int
		var confidence int64
		if err := rows.Scan(&status, &anomalyType, &count, &confidence); err != nil {
			return nil, err
		}
		summary.Total += count
		summary.ByStatus[fleet.MatchStatus(status)] += count
		if anomalyType.Valid {
			summary.Anomalies += count
			summary.ByAnomaly[fleet.AnomalyType(anomalyType.String)] += count
		}
		confidenceSum += confidence
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if summary.Total > 0 {
		summary.AverageConfidence = float64(confidenceSum) / float64(summary.Total)
	}
	return summary, nil
}
