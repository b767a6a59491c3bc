package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fleetops/fuelrecon/internal/domain/fleet"
)

func scanFuelCard(row rowScanner) (*fleet.FuelCard, error) {
	var card fleet.FuelCard
	var vehicleID sql.NullInt64
	if err := row.Scan(&card.ID, &card.Number, &vehicleID); err != nil {
		return nil, err
	}
	card.VehicleID = int64Ptr(vehicleID)
	return &card, nil
}

// GetFuelCard retrieves a card by ID
func (s *Storage) GetFuelCard(ctx context.Context, id int64) (*fleet.FuelCard, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, number, vehicle_id FROM fuel_cards WHERE id = ?`, id)
	card, err := scanFuelCard(row)
	if err != nil {
		return nil, notFound(err, "fuel card", id)
	}
	return card, nil
}

// GetFuelCardByNumber retrieves a card by its number
func (s *Storage) GetFuelCardByNumber(ctx context.Context, number string) (*fleet.FuelCard, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, number, vehicle_id FROM fuel_cards WHERE number = ?`, number)
	card, err := scanFuelCard(row)
	if err != nil {
		return nil, notFound(err, "fuel card", number)
	}
	return card, nil
}

// SaveFuelCard inserts or updates a card
func (s *Storage) SaveFuelCard(ctx context.Context, card *fleet.FuelCard) error {
	query := `
	INSERT INTO fuel_cards (id, number, vehicle_id)
	VALUES (NULLIF(?, 0), ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		number = excluded.number,
		vehicle_id = excluded.vehicle_id
	`
	result, err := s.db.ExecContext(ctx, query, card.ID, card.Number, nullInt64(card.VehicleID))
	if err != nil {
		return fmt.Errorf("failed to save fuel card: %w", err)
	}
	if card.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		card.ID = id
	}
	return nil
}

// GetGasStation retrieves a station by ID
func (s *Storage) GetGasStation(ctx context.Context, id int64) (*fleet.GasStation, error) {
	var st fleet.GasStation
	var lat, lon sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude FROM gas_stations WHERE id = ?`, id,
	).Scan(&st.ID, &st.Name, &lat, &lon)
	if err != nil {
		return nil, notFound(err, "gas station", id)
	}
	st.Latitude = float64Ptr(lat)
	st.Longitude = float64Ptr(lon)
	return &st, nil
}

// SaveGasStation inserts or updates a station
func (s *Storage) SaveGasStation(ctx context.Context, station *fleet.GasStation) error {
	query := `
	INSERT INTO gas_stations (id, name, latitude, longitude)
	VALUES (NULLIF(?, 0), ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		latitude = excluded.latitude,
		longitude = excluded.longitude
	`
	result, err := s.db.ExecContext(ctx, query,
		station.ID, station.Name, nullFloat64(station.Latitude), nullFloat64(station.Longitude))
	if err != nil {
		return fmt.Errorf("failed to save gas station: %w", err)
	}
	if station.ID == 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		station.ID = id
	}
	return nil
}

// ListCardAssignments returns the assignments of a card, oldest first
func (s *Storage) ListCardAssignments(ctx context.Context, cardID int64) ([]fleet.CardAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, vehicle_id, valid_from, valid_to
		FROM card_assignments
		WHERE card_id = ?
		ORDER BY valid_from ASC, id ASC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list card assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	assignments := make([]fleet.CardAssignment, 0)
	for rows.Next() {
		var a fleet.CardAssignment
		var validFrom string
		var validTo sql.NullString
		if err := rows.Scan(&a.ID, &a.CardID, &a.VehicleID, &validFrom, &validTo); err != nil {
			return nil, err
		}
		if a.ValidFrom, err = parseTime(validFrom); err != nil {
			return nil, err
		}
		if validTo.Valid {
			to, err := parseTime(validTo.String)
			if err != nil {
				return nil, err
			}
			a.ValidTo = &to
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// SaveCardAssignment appends an assignment
func (s *Storage) SaveCardAssignment(ctx context.Context, a *fleet.CardAssignment) error {
	var validTo sql.NullString
	if a.ValidTo != nil {
		validTo = sql.NullString{String: formatTime(*a.ValidTo), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO card_assignments (card_id, vehicle_id, valid_from, valid_to)
		VALUES (?, ?, ?, ?)
	`, a.CardID, a.VehicleID, formatTime(a.ValidFrom), validTo)
	if err != nil {
		return fmt.Errorf("failed to save card assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}
