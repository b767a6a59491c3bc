package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

// ListRefuels returns refuels of a vehicle within [from, to]
func (s *Storage) ListRefuels(ctx context.Context, vehicleID int64, from, to time.Time, fuelType string) ([]fleet.VehicleRefuel, error) {
	query := `
	SELECT id, vehicle_id, timestamp, fuel_type, quantity, source_system, source_id
	FROM vehicle_refuels
	WHERE vehicle_id = ? AND timestamp >= ? AND timestamp <= ?`
	args := []any{vehicleID, formatTime(from), formatTime(to)}

	if fuelType != "" {
		query += ` AND fuel_type = ?`
		args = append(args, fuelType)
	}
	query += ` ORDER BY timestamp ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list refuels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	refuels := make([]fleet.VehicleRefuel, 0)
	for rows.Next() {
		var r fleet.VehicleRefuel
		var timestamp string
		var quantity decimal.Decimal
		if err := rows.Scan(&r.ID, &r.VehicleID, &timestamp, &r.FuelType, &quantity,
			&r.Provenance.SourceSystem, &r.Provenance.SourceID); err != nil {
			return nil, err
		}
		if r.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, err
		}
		r.Quantity = quantity
		refuels = append(refuels, r)
	}
	return refuels, rows.Err()
}

// SaveRefuel appends a refuel event
func (s *Storage) SaveRefuel(ctx context.Context, r *fleet.VehicleRefuel) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO vehicle_refuels
		(vehicle_id, timestamp, fuel_type, quantity, source_system, source_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.VehicleID,
		formatTime(r.Timestamp),
		r.FuelType,
		r.Quantity.String(),
		r.Provenance.SourceSystem,
		r.Provenance.SourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to save refuel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// ListLocations returns location samples of a vehicle within [from, to]
func (s *Storage) ListLocations(ctx context.Context, vehicleID int64, from, to time.Time) ([]fleet.VehicleLocation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vehicle_id, timestamp, latitude, longitude, accuracy, speed, heading,
		       source_system, source_id
		FROM vehicle_locations
		WHERE vehicle_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, id ASC
	`, vehicleID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	locations := make([]fleet.VehicleLocation, 0)
	for rows.Next() {
		var l fleet.VehicleLocation
		var timestamp string
		var accuracy, speed, heading sql.NullFloat64
		if err := rows.Scan(&l.ID, &l.VehicleID, &timestamp, &l.Latitude, &l.Longitude,
			&accuracy, &speed, &heading,
			&l.Provenance.SourceSystem, &l.Provenance.SourceID); err != nil {
			return nil, err
		}
		if l.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, err
		}
		l.Accuracy = float64Ptr(accuracy)
		l.Speed = float64Ptr(speed)
		l.Heading = float64Ptr(heading)
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// SaveLocation appends a location sample
func (s *Storage) SaveLocation(ctx context.Context, l *fleet.VehicleLocation) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO vehicle_locations
		(vehicle_id, timestamp, latitude, longitude, accuracy, speed, heading, source_system, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.VehicleID,
		formatTime(l.Timestamp),
		l.Latitude,
		l.Longitude,
		nullFloat64(l.Accuracy),
		nullFloat64(l.Speed),
		nullFloat64(l.Heading),
		l.Provenance.SourceSystem,
		l.Provenance.SourceID,
	)
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}
